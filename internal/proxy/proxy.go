// Package proxy implements spec §4.10: a transparent man-in-the-middle
// proxy that accepts a client connection before it knows the client's
// real destination, learns that destination from the client's own
// login command (UnlinkedSession), then bridges two Channels —
// client-facing and remote-facing — with optional mid-stream
// inspection and rewriting (LinkedSession). Grounded on
// original_source/ProxyServer.cc's on_client_connect/UnlinkedSession/
// LinkedSession split and Channel.cc's replace_with, which
// internal/session.Channel.ReplaceWith already implements.
package proxy

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/eventloop"
	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/session"
	"github.com/quietloop/archon/internal/version"
	"github.com/quietloop/archon/internal/wire"
)

// Disconnect timeout categories, spec §4.10/§5.
const (
	CloseImmediately = 0
	ShortTimeout     = 10 * time.Second
	MediumTimeout    = 30 * time.Second
	LongTimeout      = 5 * time.Minute
)

// Destination is a host/port a LinkedSession dials or redirects to.
type Destination struct {
	Host string
	Port uint16
}

func (d Destination) String() string { return fmt.Sprintf("%s:%d", d.Host, d.Port) }

func (d Destination) empty() bool { return d.Host == "" && d.Port == 0 }

// Credentials identifies the license a login command carried, used as
// the LinkedSession lookup key so a client reconnecting mid-session
// resumes the same bridged state instead of opening a second one.
type Credentials struct {
	Serial    uint32
	AccessKey string
	Username  string
}

// Key returns the LinkedSession map key for these credentials: Final's
// username/password family has no serial, so it keys on username
// instead.
func (c Credentials) Key() string {
	if c.Username != "" {
		return "user:" + c.Username
	}
	return fmt.Sprintf("serial:%d", c.Serial)
}

// Direction names which side of a LinkedSession a bridged command is
// travelling toward.
type Direction uint8

const (
	ToRemote Direction = iota
	ToClient
)

// Inspector is given every bridged command before it is forwarded; it
// may rewrite cmd and/or veto the forward by returning forward=false.
// A nil Inspector forwards every command unchanged.
type Inspector func(ls *LinkedSession, dir Direction, cmd frame.Command) (rewritten frame.Command, forward bool)

// Dialer opens the outbound connection to a remote game server. Real
// use passes net.Dial; tests substitute an in-memory pipe.
type Dialer func(addr string) (net.Conn, error)

// Listen is one configured proxy-facing port: the Version it serves
// and, for patch clients (which carry no license), the always-present
// default destination that lets them link immediately without ever
// being Unlinked.
type Listen struct {
	Addr    string
	Version version.Version
	Default *Destination
}

// Server accepts client connections, negotiates the Unlinked handshake,
// and maintains the set of currently Linked sessions keyed by license.
type Server struct {
	Loop      *eventloop.Loop
	Logger    *logrus.Logger
	Dial      Dialer
	Inspect   Inspector
	// ReturnTo is the host/port the synthesized reconnect command
	// points a client back at when its remote server disconnects, per
	// spec §4.10 — normally this proxy's own listening address for the
	// client's Version.
	ReturnTo map[version.Version]Destination

	// FinalKeyFile is the private key file used for every bridged
	// Final session. A real deployment would run encryption.Detector
	// against the remote server's first ciphertext to learn which
	// build it is, the same way a direct-connect server would learn
	// it from a client; this proxy instead assumes one fixed build,
	// which is sufficient when only one Final build is in play.
	FinalKeyFile encryption.KeyFile

	listeners []net.Listener
	unlinked  map[*session.Channel]*UnlinkedSession
	linked    map[string]*LinkedSession

	nextUnlicensedID uint64
}

// New returns a Server. If dial is nil, net.Dial is used.
func New(loop *eventloop.Loop, logger *logrus.Logger, dial Dialer) *Server {
	if dial == nil {
		dial = func(addr string) (net.Conn, error) { return net.Dial("tcp", addr) }
	}
	return &Server{
		Loop:             loop,
		Logger:           logger,
		Dial:             dial,
		ReturnTo:         make(map[version.Version]Destination),
		FinalKeyFile:     encryption.GenerateKeyFile(1),
		unlinked:         make(map[*session.Channel]*UnlinkedSession),
		linked:           make(map[string]*LinkedSession),
		nextUnlicensedID: 0xFF00000000000001,
	}
}

// Serve binds every configured Listen and accepts until Close.
func (s *Server) Serve(listens []Listen) error {
	for _, l := range listens {
		ln, err := net.Listen("tcp", l.Addr)
		if err != nil {
			s.Close()
			return fmt.Errorf("proxy: listen %s: %w", l.Addr, err)
		}
		s.listeners = append(s.listeners, ln)
		go s.acceptLoop(ln, l)
	}
	return nil
}

// Close stops accepting new connections.
func (s *Server) Close() {
	for _, ln := range s.listeners {
		ln.Close()
	}
	s.listeners = nil
}

func (s *Server) acceptLoop(ln net.Listener, l Listen) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.Loop.Post(func() {
			s.handleAccept(conn, l)
		})
	}
}

func (s *Server) handleAccept(conn net.Conn, l Listen) {
	ch := session.NewChannel(conn, l.Version, false, s.Logger)

	// A patch client with a configured default destination needs no
	// license handshake at all — it links immediately, mirroring
	// ProxyServer::on_client_connect's is_patch(version) && default_destination
	// branch.
	if l.Default != nil && version.IsPatch(l.Version) {
		ls := s.newUnlicensedSession(l.Version, *l.Default)
		ls.ClientChannel = ch
		ch.OnCommand = ls.onClientCommand
		ch.OnError = ls.onClientError
		session.RegisterPump(s.Loop, conn, ch)
		s.connectRemote(ls)
		return
	}

	us := &UnlinkedSession{server: s, Channel: ch, ListenAddr: l.Addr, Version: l.Version}
	if l.Default != nil {
		us.NextDestination = *l.Default
	}
	s.unlinked[ch] = us
	ch.OnCommand = us.onCommand
	ch.OnError = func(c *session.Channel, err error) { delete(s.unlinked, c) }

	if err := us.sendServerInit(); err != nil {
		s.Logger.WithError(err).Warn("proxy: unlinked handshake failed")
		delete(s.unlinked, ch)
		ch.Disconnect()
		return
	}
	session.RegisterPump(s.Loop, conn, ch)
}

// newUnlicensedSession allocates a LinkedSession for a patch client,
// keyed by a synthetic monotonically-increasing id rather than a real
// license, per ProxyServer's next_unlicensed_session_id counter.
func (s *Server) newUnlicensedSession(v version.Version, dest Destination) *LinkedSession {
	id := s.nextUnlicensedID
	s.nextUnlicensedID++
	if s.nextUnlicensedID == 0 {
		s.nextUnlicensedID = 0xFF00000000000001
	}
	ls := &LinkedSession{server: s, key: fmt.Sprintf("unlicensed:%d", id), Version: v, Destination: dest}
	s.linked[ls.key] = ls
	return ls
}

// promote is called once an UnlinkedSession has identified a license
// and destination: it either resumes an existing LinkedSession for
// that license (the client reconnected mid-session) or creates a new
// one and dials the remote.
func (s *Server) promote(us *UnlinkedSession, creds Credentials, dest Destination, login *frame.Command) {
	delete(s.unlinked, us.Channel)
	key := creds.Key()

	if existing, ok := s.linked[key]; ok {
		existing.resume(us.Channel)
		return
	}

	ls := &LinkedSession{server: s, key: key, Version: us.Version, Destination: dest, Credentials: creds, StashedLogin: login}
	ls.ClientChannel = us.Channel
	ls.ClientChannel.OnCommand = ls.onClientCommand
	ls.ClientChannel.OnError = ls.onClientError
	s.linked[key] = ls
	s.connectRemote(ls)
}

func (s *Server) connectRemote(ls *LinkedSession) {
	conn, err := s.Dial(ls.Destination.String())
	if err != nil {
		s.Logger.WithError(err).WithField("destination", ls.Destination.String()).Warn("proxy: failed to reach remote server")
		ls.teardown()
		return
	}
	ls.RemoteChannel = session.NewChannel(conn, ls.Version, false, s.Logger)
	ls.RemoteChannel.OnCommand = ls.onRemoteCommand
	ls.RemoteChannel.OnError = ls.onRemoteError
	session.RegisterPump(s.Loop, conn, ls.RemoteChannel)
}

func (s *Server) forget(ls *LinkedSession) {
	if s.linked[ls.key] == ls {
		delete(s.linked, ls.key)
	}
}

// UnlinkedSession is a connection that has completed the encryption
// handshake but has not yet sent a login command, per spec §4.10.
type UnlinkedSession struct {
	server *Server

	Channel    *session.Channel
	ListenAddr string
	Version    version.Version

	// NextDestination is the listening port's configured default,
	// used when the client's own config blob carries no destination
	// of its own (most non-patch versions on first-ever connect).
	NextDestination Destination
}

func (u *UnlinkedSession) sendServerInit() error {
	return sendHandshake(u.Channel, u.Version, u.server.FinalKeyFile)
}

// onCommand waits for any recognized login command, extracts its
// license credentials and destination, and hands off to the owning
// Server to promote this connection into a LinkedSession.
func (u *UnlinkedSession) onCommand(ch *session.Channel, cmd frame.Command) {
	creds, cfg, ok := u.tryParseLogin(cmd)
	if !ok {
		u.server.Logger.WithField("command", fmt.Sprintf("0x%02X", cmd.ID)).Debug("proxy: ignoring pre-login command")
		return
	}

	dest := u.NextDestination
	if cfg.Ports[0] != 0 && dest.Host != "" {
		dest.Port = cfg.Ports[0]
	}
	if dest.empty() {
		u.server.Logger.Warn("proxy: no destination known for unlinked client; dropping")
		delete(u.server.unlinked, ch)
		ch.Disconnect()
		return
	}

	loginCopy := cmd
	u.server.promote(u, creds, dest, &loginCopy)
}

// tryParseLogin calls parseLogin, converting a short/malformed body
// (wire.ToStruct panics rather than returning an error) into ok=false
// instead of crashing the loop goroutine — the same defensive posture
// internal/subcommand.Table.Dispatch takes around the same API.
func (u *UnlinkedSession) tryParseLogin(cmd frame.Command) (creds Credentials, cfg packets.ClientConfig, ok bool) {
	defer func() {
		if recover() != nil {
			creds, cfg, ok = Credentials{}, packets.ClientConfig{}, false
		}
	}()
	return parseLogin(u.Version, cmd)
}

// loginV1Size, loginV2V3Size, and loginFinalSize are the exact encoded
// sizes of the corresponding packets.Login* structs, computed the same
// way wire.ToStruct walks them: every field packed with no padding.
const (
	loginV1Size      = 8 + 2 + 6 + 1 + 1 + 17 + 1 + 17 + 1                         // 54
	clientConfigSize = 4 + 1 + 1 + 2 + 4*2 + 4*4 + 2*4                             // 40
	loginV2V3Size    = 17 + 1 + 17 + 1 + 32 + 1 + 1 + 1 + 1 + 16 + clientConfigSize // 128
	loginFinalSize   = 4 + 4 + 16 + 32 + 16 + 40 + 2 + 30 + clientConfigSize        // 184
)

// parseLogin extracts license credentials and the embedded
// ClientConfig from whichever login shape v sends, or reports ok=false
// if cmd isn't a login command at all.
func parseLogin(v version.Version, cmd frame.Command) (Credentials, packets.ClientConfig, bool) {
	switch cmd.ID {
	case packets.CommandLoginV1:
		if len(cmd.Body) < loginV1Size {
			return Credentials{}, packets.ClientConfig{}, false
		}
		var p packets.LoginV1
		wire.ToStruct(cmd.Body, &p)
		return Credentials{Serial: atoiSerial(p.Serial[:]), AccessKey: cstring(p.AccessKey[:])}, packets.ClientConfig{}, true

	case packets.CommandLoginV2V3:
		if v == version.Final {
			if len(cmd.Body) < loginFinalSize {
				return Credentials{}, packets.ClientConfig{}, false
			}
			var p packets.LoginFinal
			wire.ToStruct(cmd.Body, &p)
			return Credentials{Username: cstring(p.Username[:])}, p.ClientConfig, true
		}
		if len(cmd.Body) < loginV2V3Size {
			return Credentials{}, packets.ClientConfig{}, false
		}
		var p packets.LoginV2V3
		wire.ToStruct(cmd.Body, &p)
		return Credentials{Serial: atoiSerial(p.Serial[:]), AccessKey: cstring(p.AccessKey[:])}, p.ClientConfig, true

	default:
		return Credentials{}, packets.ClientConfig{}, false
	}
}

func atoiSerial(b []byte) uint32 {
	s := cstring(b)
	var n uint32
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + uint32(c-'0')
	}
	return n
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// LinkedSession bridges a client Channel and a remote-server Channel,
// per spec §4.10. Created (or found, for a reconnecting license) by
// Server.promote once an UnlinkedSession identifies its destination.
type LinkedSession struct {
	server *Server
	key    string

	Version     version.Version
	Credentials Credentials
	Destination Destination

	ClientChannel *session.Channel
	RemoteChannel *session.Channel

	// StashedLogin is the login command consumed by the UnlinkedSession
	// before the remote channel existed to receive it; replayed once
	// the remote handshake completes, since the original bytes never
	// reached the real server otherwise.
	StashedLogin *frame.Command

	remoteHandshakeDone bool
	destroyTimer        uint64
	hasDestroyTimer     bool
}

func (ls *LinkedSession) cancelDestroyTimer() {
	if ls.hasDestroyTimer {
		ls.server.Loop.Cancel(ls.destroyTimer)
		ls.hasDestroyTimer = false
	}
}

// resume re-attaches a freshly Unlinked channel (the client
// reconnecting) to this still-live LinkedSession, per Channel's
// replace_with-based upgrade path.
func (ls *LinkedSession) resume(newClient *session.Channel) {
	ls.cancelDestroyTimer()
	ls.ClientChannel.ReplaceWith(newClient)
	ls.ClientChannel.OnCommand = ls.onClientCommand
	ls.ClientChannel.OnError = ls.onClientError
}

func (ls *LinkedSession) onClientCommand(ch *session.Channel, cmd frame.Command) {
	if !ls.remoteHandshakeDone || ls.RemoteChannel == nil {
		return
	}
	ls.forward(ToRemote, cmd)
}

func (ls *LinkedSession) onRemoteCommand(ch *session.Channel, cmd frame.Command) {
	if !ls.remoteHandshakeDone {
		ls.completeRemoteHandshake(cmd)
		return
	}
	ls.forward(ToClient, cmd)
}

func (ls *LinkedSession) forward(dir Direction, cmd frame.Command) {
	out := cmd
	forward := true
	if ls.server.Inspect != nil {
		out, forward = ls.server.Inspect(ls, dir, cmd)
	}
	if !forward {
		return
	}
	dest := ls.ClientChannel
	if dir == ToRemote {
		dest = ls.RemoteChannel
	}
	if dest == nil || !dest.Connected() {
		return
	}
	if err := dest.Send(out.ID, out.Flag, out.Body); err != nil {
		ls.server.Logger.WithError(err).Warn("proxy: forward failed")
		return
	}
	dest.Flush()
}

// completeRemoteHandshake consumes the remote server's own server-init
// welcome, installs the matching ciphers (mirroring the real client's
// side of the handshake rather than the server's), and replays the
// stashed login so the remote server sees the session the original
// client actually started.
func (ls *LinkedSession) completeRemoteHandshake(cmd frame.Command) {
	err := ls.tryInstallClientSideCiphers(cmd)
	if err != nil {
		ls.server.Logger.WithError(err).Warn("proxy: remote handshake failed")
		ls.teardown()
		return
	}
	ls.remoteHandshakeDone = true
	if ls.StashedLogin != nil {
		login := *ls.StashedLogin
		ls.StashedLogin = nil
		ls.RemoteChannel.Send(login.ID, login.Flag, login.Body)
		ls.RemoteChannel.Flush()
	}
}

// tryInstallClientSideCiphers wraps installClientSideCiphers, turning a
// panic from a malformed or truncated server-init body (wire.ToStruct's
// failure mode) into an ordinary error instead of crashing the loop.
func (ls *LinkedSession) tryInstallClientSideCiphers(cmd frame.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("proxy: malformed remote server-init: %v", r)
		}
	}()
	return installClientSideCiphers(ls.RemoteChannel, ls.Version, cmd, ls.server.FinalKeyFile)
}

func (ls *LinkedSession) onClientError(ch *session.Channel, err error) {
	// The client disconnected first (a blip, or it quit outright).
	// Keep the bridge's remote side alive and give the client a long
	// window to reconnect and resume, per spec §4.10.
	ls.scheduleDestroy(LongTimeout)
}

func (ls *LinkedSession) onRemoteError(ch *session.Channel, err error) {
	// The remote server disconnected first. Send the client a
	// synthesized reconnect back to this proxy's own listening port
	// for its Version so it comes back here instead of hanging, then
	// tear the session down immediately — a client that reconnects
	// will open a brand new LinkedSession via the Unlinked handshake,
	// not resume this one.
	if ret, ok := ls.server.ReturnTo[ls.Version]; ok && ls.ClientChannel.Connected() {
		body, _ := wire.FromStruct(&packets.Reconnect{Port: ret.Port})
		ls.ClientChannel.Send(packets.CommandRedirect, 0, body)
		ls.ClientChannel.Flush()
	}
	ls.scheduleDestroy(CloseImmediately)
}

func (ls *LinkedSession) scheduleDestroy(after time.Duration) {
	ls.cancelDestroyTimer()
	if after == CloseImmediately {
		ls.teardown()
		return
	}
	ls.destroyTimer = ls.server.Loop.Schedule(after, false, ls.teardown)
	ls.hasDestroyTimer = true
}

func (ls *LinkedSession) teardown() {
	ls.cancelDestroyTimer()
	ls.server.forget(ls)
	if ls.ClientChannel != nil {
		ls.ClientChannel.Disconnect()
	}
	if ls.RemoteChannel != nil {
		ls.RemoteChannel.Disconnect()
	}
}
