// Package session implements the Channel type: one bidirectional byte
// stream driven by the frame codec, with the drain-and-close disconnect
// semantics and the replace_with transplant the proxy's session upgrade
// depends on.
package session

import (
	"errors"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/version"
)

// ErrDisconnected is returned by Send/Pump/Flush once a Channel has been
// disconnected.
var ErrDisconnected = errors.New("session: channel is disconnected")

// Conn is the narrow surface a Channel needs from its transport. A real
// *net.TCPConn satisfies it directly; so does a net.Pipe() half, used
// for virtual connections fed by a simulated IP stack.
type Conn interface {
	net.Conn
}

// OnCommand is invoked once per fully decoded frame.
type OnCommand func(ch *Channel, cmd frame.Command)

// OnError is invoked when the frame codec or the transport returns a
// non-recoverable error.
type OnError func(ch *Channel, err error)

// Channel owns one bidirectional byte stream: a socket (or virtual
// pipe), the session's negotiated version, its two cipher slots, and
// the bookkeeping the frame codec needs to turn bytes into Commands and
// back.
type Channel struct {
	conn    Conn
	version version.Version

	inCipher  encryption.Cipher
	outCipher encryption.Cipher

	DisplayName  string
	SendColorTag string
	RecvColorTag string

	remoteAddr string
	localAddr  string
	virtual    bool

	OnCommand OnCommand
	OnError   OnError

	inbound  []byte
	outbound []byte
	closed   bool

	Logger *logrus.Logger
}

// NewChannel wraps conn in a Channel for v. When virtual is true, conn
// is assumed to be a user-space pipe rather than a real socket, and the
// channel records zero addresses instead of calling conn's address
// accessors (which, for some virtual transports, may not be safe or
// meaningful to call at all).
func NewChannel(conn Conn, v version.Version, virtual bool, logger *logrus.Logger) *Channel {
	c := &Channel{
		conn:    conn,
		version: v,
		virtual: virtual,
		Logger:  logger,
	}
	if !virtual && conn != nil {
		c.remoteAddr = conn.RemoteAddr().String()
		c.localAddr = conn.LocalAddr().String()
	}
	return c
}

// RemoteAddr and LocalAddr return the addresses recorded at
// construction time (always empty for a virtual connection).
func (c *Channel) RemoteAddr() string { return c.remoteAddr }
func (c *Channel) LocalAddr() string  { return c.localAddr }

// Virtual reports whether this channel was built over a simulated
// transport rather than a real socket.
func (c *Channel) Virtual() bool { return c.virtual }

// Version returns the session's negotiated client version.
func (c *Channel) Version() version.Version { return c.version }

// SetCiphers installs the per-direction ciphers the login handshake
// negotiated. Either may be nil, meaning that direction still travels
// unencrypted.
func (c *Channel) SetCiphers(in, out encryption.Cipher) {
	c.inCipher, c.outCipher = in, out
}

// Connected reports whether the channel still owns a live socket. Any
// handler that fires after Disconnect observes false here and must
// early-return, since Disconnect clears every field a stale queued
// handler invocation might otherwise dereference.
func (c *Channel) Connected() bool {
	return c.conn != nil && !c.closed
}

// Send encodes cmd for this channel's version and cipher and appends it
// to the outbound buffer; call Flush to actually write it to the wire.
// Buffering rather than writing inline keeps every channel operation
// non-blocking, which the single-threaded event loop requires.
func (c *Channel) Send(id uint16, flag uint16, body []byte) error {
	if !c.Connected() {
		return ErrDisconnected
	}
	wire, err := frame.WriteOne(frame.Command{ID: id, Flag: flag, Body: body}, c.version, c.outCipher)
	if err != nil {
		return err
	}
	c.outbound = append(c.outbound, wire...)
	return nil
}

// Flush writes as much of the pending outbound buffer as the transport
// will accept without blocking indefinitely.
func (c *Channel) Flush() error {
	if !c.Connected() || len(c.outbound) == 0 {
		return nil
	}
	n, err := c.conn.Write(c.outbound)
	c.outbound = c.outbound[n:]
	return err
}

// Pump reads whatever bytes are currently available from the socket,
// decodes as many complete frames as are buffered, and invokes
// OnCommand for each in wire order. It returns the underlying read
// error, if any, after first delivering every frame that completed
// before the error occurred.
func (c *Channel) Pump() error {
	if !c.Connected() {
		return ErrDisconnected
	}

	readBuf := make([]byte, 64*1024)
	n, readErr := c.conn.Read(readBuf)
	if n > 0 {
		c.Feed(readBuf[:n])
	}

	return readErr
}

// Feed appends already-read bytes to the channel's inbound buffer and
// decodes as many complete frames as are now available, invoking
// OnCommand for each in wire order. It performs no I/O itself, which
// is what lets a dedicated per-connection goroutine own the blocking
// conn.Read call while every buffer mutation and dispatch still runs
// on the cooperative loop goroutine via Loop.Post (see
// session.RegisterPump) — the single-threaded model spec §5 requires.
func (c *Channel) Feed(data []byte) {
	if !c.Connected() {
		return
	}
	c.inbound = append(c.inbound, data...)

	for {
		cmd, consumed, err := frame.ReadOne(c.inbound, c.version, c.inCipher)
		if err == frame.ErrNotReady {
			break
		}
		if err != nil {
			if c.OnError != nil {
				c.OnError(c, err)
			}
			return
		}
		c.inbound = c.inbound[consumed:]
		if c.OnCommand != nil {
			c.OnCommand(c, cmd)
		}
	}
}

// Disconnect tears the channel down. If no output is pending it closes
// the socket immediately; otherwise it hands the socket and the
// remaining bytes off to a background drain goroutine whose only job is
// to flush them and close, so the Channel value itself can be destroyed
// right away regardless of how long the flush takes. Disconnect is
// idempotent.
func (c *Channel) Disconnect() {
	if c.closed {
		return
	}
	c.closed = true

	conn := c.conn
	pending := c.outbound

	c.conn = nil
	c.outbound = nil
	c.inbound = nil
	c.inCipher = nil
	c.outCipher = nil
	c.OnCommand = nil
	c.OnError = nil

	if conn == nil {
		return
	}
	if len(pending) == 0 {
		conn.Close()
		return
	}
	go drainAndClose(conn, pending)
}

func drainAndClose(conn Conn, pending []byte) {
	defer conn.Close()
	_, _ = conn.Write(pending)
}

// ReplaceWith transfers the socket, ciphers, addresses, version, and
// display metadata from other into c, then clears those fields on other
// without ever closing the socket. This is how a proxy UnlinkedSession
// upgrades into an already-established LinkedSession: the donor
// channel is discarded afterward but the live connection it held is
// now owned by c.
func (c *Channel) ReplaceWith(other *Channel) {
	c.conn = other.conn
	c.version = other.version
	c.inCipher = other.inCipher
	c.outCipher = other.outCipher
	c.remoteAddr = other.remoteAddr
	c.localAddr = other.localAddr
	c.virtual = other.virtual
	c.DisplayName = other.DisplayName
	c.SendColorTag = other.SendColorTag
	c.RecvColorTag = other.RecvColorTag
	c.inbound = other.inbound
	c.outbound = other.outbound

	other.conn = nil
	other.version = version.Unknown
	other.inCipher = nil
	other.outCipher = nil
	other.remoteAddr = ""
	other.localAddr = ""
	other.virtual = false
	other.DisplayName = ""
	other.SendColorTag = ""
	other.RecvColorTag = ""
	other.inbound = nil
	other.outbound = nil
}
