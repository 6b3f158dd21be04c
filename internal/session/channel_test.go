package session

import (
	"net"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/version"
)

func newTestPair(t *testing.T) (serverSide Conn, clientSide *net.TCPConn) {
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

func TestChannel_SendFlushRoundTrip(t *testing.T) {
	serverConn, clientConn := newTestPair(t)
	defer clientConn.Close()

	ch := NewChannel(serverConn, version.V2, false, nil)
	if err := ch.Send(0x60, 0, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ch.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	buf := make([]byte, 64)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("client read error = %v", err)
	}

	got, _, err := frame.ReadOne(buf[:n], version.V2, nil)
	if err != nil {
		t.Fatalf("ReadOne() error = %v", err)
	}
	if diff := deep.Equal(got.Body, []byte{1, 2, 3}); diff != nil {
		t.Errorf("body mismatch: %v", diff)
	}
}

func TestChannel_PumpDecodesBufferedFrames(t *testing.T) {
	serverConn, clientConn := newTestPair(t)
	defer clientConn.Close()

	ch := NewChannel(serverConn, version.V2, false, nil)

	var got []frame.Command
	ch.OnCommand = func(_ *Channel, cmd frame.Command) { got = append(got, cmd) }

	wireA, _ := frame.WriteOne(frame.Command{ID: 0x60, Body: []byte{1}}, version.V2, nil)
	wireB, _ := frame.WriteOne(frame.Command{ID: 0x62, Body: []byte{2, 2}}, version.V2, nil)
	if _, err := clientConn.Write(append(wireA, wireB...)); err != nil {
		t.Fatalf("client write error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := ch.Pump(); err != nil {
		t.Fatalf("Pump() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d commands, want 2", len(got))
	}
	if got[0].ID != 0x60 || got[1].ID != 0x62 {
		t.Fatalf("unexpected command order: %+v", got)
	}
}

func TestChannel_DisconnectIsIdempotentAndClearsState(t *testing.T) {
	serverConn, clientConn := newTestPair(t)
	defer clientConn.Close()

	ch := NewChannel(serverConn, version.V2, false, nil)
	ch.OnCommand = func(*Channel, frame.Command) {}

	ch.Disconnect()
	ch.Disconnect() // must not panic

	if ch.Connected() {
		t.Fatalf("Connected() = true after Disconnect")
	}
	if ch.OnCommand != nil {
		t.Fatalf("OnCommand not cleared after Disconnect")
	}
	if err := ch.Send(0x60, 0, nil); err != ErrDisconnected {
		t.Fatalf("Send() after Disconnect: err = %v, want ErrDisconnected", err)
	}
}

func TestChannel_DisconnectDrainsPendingOutputInBackground(t *testing.T) {
	serverConn, clientConn := newTestPair(t)
	defer clientConn.Close()

	ch := NewChannel(serverConn, version.V2, false, nil)
	if err := ch.Send(0x60, 0, []byte{9, 9, 9}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	ch.Disconnect() // output buffer is non-empty, so this hands off to the drain goroutine

	buf := make([]byte, 64)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("client read error = %v", err)
	}
	got, _, err := frame.ReadOne(buf[:n], version.V2, nil)
	if err != nil {
		t.Fatalf("ReadOne() error = %v", err)
	}
	if diff := deep.Equal(got.Body, []byte{9, 9, 9}); diff != nil {
		t.Errorf("drained body mismatch: %v", diff)
	}
}

func TestChannel_VirtualConnectionRecordsZeroAddresses(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	ch := NewChannel(serverSide, version.Final, true, nil)
	if ch.RemoteAddr() != "" || ch.LocalAddr() != "" {
		t.Fatalf("virtual channel recorded non-zero addresses: remote=%q local=%q", ch.RemoteAddr(), ch.LocalAddr())
	}
	if !ch.Virtual() {
		t.Fatalf("Virtual() = false")
	}
}

func TestChannel_ReplaceWithTransfersSocketWithoutClosing(t *testing.T) {
	serverConn, clientConn := newTestPair(t)
	defer clientConn.Close()

	donor := NewChannel(serverConn, version.Final, false, nil)
	donor.DisplayName = "unlinked"
	cipher := encryption.NewFinalBlock(encryption.GenerateKeyFile(1), []byte("a"), []byte("b"))
	donor.SetCiphers(cipher, cipher)

	dest := &Channel{}
	dest.ReplaceWith(donor)

	if !dest.Connected() {
		t.Fatalf("destination not connected after ReplaceWith")
	}
	if donor.Connected() {
		t.Fatalf("donor still connected after ReplaceWith")
	}
	if dest.DisplayName != "unlinked" {
		t.Fatalf("display name not transferred")
	}

	if err := dest.Send(0x60, 0, []byte{7}); err != nil {
		t.Fatalf("Send() on destination after transfer: %v", err)
	}
	if err := dest.Flush(); err != nil {
		t.Fatalf("Flush() on destination after transfer: %v", err)
	}
}
