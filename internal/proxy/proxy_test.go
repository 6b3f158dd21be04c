package proxy

import (
	"net"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/session"
	"github.com/quietloop/archon/internal/version"
	"github.com/quietloop/archon/internal/wire"
)

func newTestPair(t *testing.T) (serverSide net.Conn, clientSide *net.TCPConn) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("error initializing test listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	clientSide, err = net.DialTCP("tcp", nil, listener.Addr().(*net.TCPAddr))
	if err != nil {
		t.Fatalf("error initializing test connection: %v", err)
	}

	serverConn, err := listener.AcceptTCP()
	if err != nil {
		t.Fatalf("error accepting test connection: %v", err)
	}
	return serverConn, clientSide
}

func TestCredentials_Key(t *testing.T) {
	if got := (Credentials{Serial: 42}).Key(); got != "serial:42" {
		t.Fatalf("Key() = %q, want serial:42", got)
	}
	if got := (Credentials{Username: "alice"}).Key(); got != "user:alice" {
		t.Fatalf("Key() = %q, want user:alice", got)
	}
}

func TestDestination_StringAndEmpty(t *testing.T) {
	var d Destination
	if !d.empty() {
		t.Fatalf("empty() = false for zero Destination")
	}
	d = Destination{Host: "10.0.0.1", Port: 9100}
	if d.empty() {
		t.Fatalf("empty() = true for populated Destination")
	}
	if got := d.String(); got != "10.0.0.1:9100" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParseLogin_V2V3ExtractsSerialAndAccessKey(t *testing.T) {
	var p packets.LoginV2V3
	copy(p.Serial[:], "1234567")
	copy(p.AccessKey[:], "deadbeef")
	p.ClientConfig.Ports[0] = 5110
	body, _ := wire.FromStruct(&p)

	creds, cfg, ok := parseLogin(version.V2, frame.Command{ID: packets.CommandLoginV2V3, Body: body})
	if !ok {
		t.Fatalf("parseLogin() ok = false")
	}
	if creds.Serial != 1234567 || creds.AccessKey != "deadbeef" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if cfg.Ports[0] != 5110 {
		t.Fatalf("ClientConfig not round-tripped: %+v", cfg)
	}
}

func TestParseLogin_FinalExtractsUsername(t *testing.T) {
	var p packets.LoginFinal
	copy(p.Username[:], "bob")
	body, _ := wire.FromStruct(&p)

	creds, _, ok := parseLogin(version.Final, frame.Command{ID: packets.CommandLoginV2V3, Body: body})
	if !ok {
		t.Fatalf("parseLogin() ok = false")
	}
	if creds.Username != "bob" {
		t.Fatalf("Username = %q, want bob", creds.Username)
	}
}

func TestParseLogin_ShortBodyIsRejectedNotPanicked(t *testing.T) {
	_, _, ok := parseLogin(version.V2, frame.Command{ID: packets.CommandLoginV2V3, Body: []byte{1, 2, 3}})
	if ok {
		t.Fatalf("parseLogin() ok = true for a truncated body")
	}
}

func TestParseLogin_UnrecognizedCommandIsIgnored(t *testing.T) {
	_, _, ok := parseLogin(version.V2, frame.Command{ID: 0x1234, Body: []byte{1, 2, 3}})
	if ok {
		t.Fatalf("parseLogin() ok = true for an unrelated command")
	}
}

func TestUnlinkedSession_TryParseLoginRecoversFromMalformedBody(t *testing.T) {
	u := &UnlinkedSession{Version: version.V2}
	// Long enough to pass the length guard is irrelevant here; a body
	// that's simply too short should come back ok=false, not panic.
	_, _, ok := u.tryParseLogin(frame.Command{ID: packets.CommandLoginV2V3, Body: nil})
	if ok {
		t.Fatalf("tryParseLogin() ok = true for nil body")
	}
}

func TestLinkedSession_ForwardRoutesByDirection(t *testing.T) {
	clientServerSide, clientPeer := newTestPair(t)
	defer clientPeer.Close()
	remoteServerSide, remotePeer := newTestPair(t)
	defer remotePeer.Close()

	ls := &LinkedSession{
		server:              &Server{Logger: nil},
		remoteHandshakeDone: true,
		ClientChannel:       session.NewChannel(clientServerSide, version.V2, false, nil),
		RemoteChannel:       session.NewChannel(remoteServerSide, version.V2, false, nil),
	}

	ls.forward(ToRemote, frame.Command{ID: 0x60, Body: []byte{1, 2}})

	buf := make([]byte, 64)
	remotePeer.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := remotePeer.Read(buf)
	if err != nil {
		t.Fatalf("remote read error = %v", err)
	}
	got, _, err := frame.ReadOne(buf[:n], version.V2, nil)
	if err != nil {
		t.Fatalf("ReadOne() error = %v", err)
	}
	if diff := deep.Equal(got.Body, []byte{1, 2}); diff != nil {
		t.Errorf("body mismatch: %v", diff)
	}
}

func TestLinkedSession_ForwardVetoedByInspector(t *testing.T) {
	clientServerSide, clientPeer := newTestPair(t)
	defer clientPeer.Close()
	remoteServerSide, remotePeer := newTestPair(t)
	defer remotePeer.Close()

	vetoed := false
	srv := &Server{Logger: nil, Inspect: func(ls *LinkedSession, dir Direction, cmd frame.Command) (frame.Command, bool) {
		vetoed = true
		return cmd, false
	}}
	ls := &LinkedSession{
		server:              srv,
		remoteHandshakeDone: true,
		ClientChannel:       session.NewChannel(clientServerSide, version.V2, false, nil),
		RemoteChannel:       session.NewChannel(remoteServerSide, version.V2, false, nil),
	}

	ls.forward(ToRemote, frame.Command{ID: 0x60, Body: []byte{1}})

	if !vetoed {
		t.Fatalf("Inspect hook was not invoked")
	}
	remotePeer.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 16)
	if _, err := remotePeer.Read(buf); err == nil {
		t.Fatalf("expected no bytes to arrive after a vetoed forward")
	}
}

func TestLinkedSession_ScheduleDestroyImmediateTearsDownBothChannels(t *testing.T) {
	clientServerSide, clientPeer := newTestPair(t)
	defer clientPeer.Close()
	remoteServerSide, remotePeer := newTestPair(t)
	defer remotePeer.Close()

	srv := &Server{Logger: nil, linked: map[string]*LinkedSession{}}
	ls := &LinkedSession{
		server:        srv,
		key:           "serial:1",
		ClientChannel: session.NewChannel(clientServerSide, version.V2, false, nil),
		RemoteChannel: session.NewChannel(remoteServerSide, version.V2, false, nil),
	}
	srv.linked[ls.key] = ls

	ls.scheduleDestroy(CloseImmediately)

	if ls.ClientChannel.Connected() || ls.RemoteChannel.Connected() {
		t.Fatalf("channels still connected after immediate teardown")
	}
	if _, ok := srv.linked[ls.key]; ok {
		t.Fatalf("session not forgotten by server after teardown")
	}
}
