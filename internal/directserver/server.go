// Package directserver implements spec §4.9: binds configured listen
// sockets, constructs a Channel per accepted connection with the
// version determined by the listening port, and immediately sends the
// version-appropriate server-init handshake before handing the
// session off to the ordinary authenticated-channel path.
package directserver

import (
	"crypto/rand"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/eventloop"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/session"
	"github.com/quietloop/archon/internal/version"
	"github.com/quietloop/archon/internal/wire"
)

// Listen is one configured port this server accepts on, pre-bound to
// the client Version that port serves.
type Listen struct {
	Addr    string
	Version version.Version
}

// OnSession is invoked once per accepted connection, after the
// server-init handshake has been sent and ciphers installed, so the
// caller can attach its own OnCommand and register the channel with a
// lobby.
type OnSession func(ch *session.Channel)

// Server accepts connections on every configured Listen and hands each
// one to the cooperative Loop as a session.
type Server struct {
	Loop      *eventloop.Loop
	Logger    *logrus.Logger
	OnSession OnSession

	// FinalKeyFile is the private key file this server's one supported
	// Final build ships; a direct-connect server (unlike the proxy)
	// always knows its client population ahead of time, so no Detector
	// trial is needed here.
	FinalKeyFile encryption.KeyFile

	listeners []net.Listener
}

// New returns a Server bound to loop, logging through logger.
func New(loop *eventloop.Loop, logger *logrus.Logger, onSession OnSession) *Server {
	return &Server{Loop: loop, Logger: logger, OnSession: onSession, FinalKeyFile: encryption.GenerateKeyFile(1)}
}

// Serve binds every configured listen address and accepts connections
// until Close is called. Each listener runs its accept loop on its own
// goroutine (blocking on net.Listener.Accept is unavoidable) but hands
// every accepted connection's handling to the cooperative Loop via
// Post, so no session or lobby state is ever touched off-loop.
func (s *Server) Serve(listens []Listen) error {
	for _, l := range listens {
		ln, err := net.Listen("tcp", l.Addr)
		if err != nil {
			s.closeAll()
			return fmt.Errorf("directserver: listen %s: %w", l.Addr, err)
		}
		s.listeners = append(s.listeners, ln)
		go s.acceptLoop(ln, l.Version)
	}
	return nil
}

// Close stops accepting new connections on every listener.
func (s *Server) Close() {
	s.closeAll()
}

func (s *Server) closeAll() {
	for _, ln := range s.listeners {
		ln.Close()
	}
	s.listeners = nil
}

func (s *Server) acceptLoop(ln net.Listener, v version.Version) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.Loop.Post(func() {
			s.handleAccept(conn, v)
		})
	}
}

func (s *Server) handleAccept(conn net.Conn, v version.Version) {
	ch := session.NewChannel(conn, v, false, s.Logger)
	if err := s.sendServerInit(ch, v); err != nil {
		s.Logger.WithError(err).Warn("directserver: server-init handshake failed")
		ch.Disconnect()
		return
	}
	if s.OnSession != nil {
		s.OnSession(ch)
	}
	session.RegisterPump(s.Loop, conn, ch)
}

// sendServerInit sends the version-appropriate welcome command
// containing two random keys and installs the paired ciphers, per
// spec §4.9 and §8 scenario 1.
func (s *Server) sendServerInit(ch *session.Channel, v version.Version) error {
	if v == version.Final {
		serverSeed, clientSeed, err := randomSeedPair()
		if err != nil {
			return err
		}
		body, _ := wire.FromStruct(&packets.ServerInitFinal{ServerKey: serverSeed, ClientKey: clientSeed})
		if err := ch.Send(packets.CommandServerInitLong, 0, body); err != nil {
			return err
		}
		// Server-to-client and client-to-server sides use the same
		// KeyFile with the seed pair in opposite order, per spec §4.2.
		in := encryption.NewFinalBlock(s.FinalKeyFile, clientSeed[:], serverSeed[:])
		out := encryption.NewFinalBlock(s.FinalKeyFile, serverSeed[:], clientSeed[:])
		ch.SetCiphers(in, out)
		return ch.Flush()
	}

	serverKey, clientKey, err := randomUint32Pair()
	if err != nil {
		return err
	}
	body, _ := wire.FromStruct(&packets.ServerInitShort{ServerKey: serverKey, ClientKey: clientKey})
	if err := ch.Send(packets.CommandServerInitShort, 0, body); err != nil {
		return err
	}
	in := newStreamCipherForVersion(v, clientKey)
	out := newStreamCipherForVersion(v, serverKey)
	ch.SetCiphers(in, out)
	return ch.Flush()
}

// newStreamCipherForVersion picks V2Stream or V3Stream by generation,
// per spec §3's cipher-state table.
func newStreamCipherForVersion(v version.Version, key uint32) encryption.Cipher {
	var b [4]byte
	b[0], b[1], b[2], b[3] = byte(key), byte(key>>8), byte(key>>16), byte(key>>24)
	if version.IsV3(v) {
		return encryption.NewV3Stream(b[:])
	}
	return encryption.NewV2Stream(b[:])
}

func randomUint32Pair() (uint32, uint32, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, 0, err
	}
	a := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	c := uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24
	return a, c, nil
}

func randomSeedPair() ([0x30]byte, [0x30]byte, error) {
	var a, c [0x30]byte
	if _, err := rand.Read(a[:]); err != nil {
		return a, c, err
	}
	if _, err := rand.Read(c[:]); err != nil {
		return a, c, err
	}
	return a, c, nil
}
