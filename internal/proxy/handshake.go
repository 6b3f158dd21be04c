package proxy

import (
	"crypto/rand"
	"errors"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/session"
	"github.com/quietloop/archon/internal/version"
	"github.com/quietloop/archon/internal/wire"
)

// errNotServerInit means the first command a channel received wasn't
// the welcome/encryption-handshake command expected in that role.
var errNotServerInit = errors.New("proxy: expected server-init command")

// sendHandshake plays the real server's role on behalf of an
// UnlinkedSession: it sends a freshly random key pair in the
// version-appropriate welcome command and installs the matching
// ciphers, exactly as internal/directserver does for a direct
// connection — the client cannot tell the difference.
func sendHandshake(ch *session.Channel, v version.Version, kf encryption.KeyFile) error {
	if v == version.Final {
		serverSeed, clientSeed, err := randomSeedPair()
		if err != nil {
			return err
		}
		body, _ := wire.FromStruct(&packets.ServerInitFinal{ServerKey: serverSeed, ClientKey: clientSeed})
		if err := ch.Send(packets.CommandServerInitLong, 0, body); err != nil {
			return err
		}
		in := encryption.NewFinalBlock(kf, clientSeed[:], serverSeed[:])
		out := encryption.NewFinalBlock(kf, serverSeed[:], clientSeed[:])
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
	in := streamCipherForVersion(v, clientKey)
	out := streamCipherForVersion(v, serverKey)
	ch.SetCiphers(in, out)
	return ch.Flush()
}

// installClientSideCiphers plays the real client's role on the
// remote-facing Channel: cmd is the real server's own unencrypted
// welcome command, from which the two random keys are recovered and
// installed with the in/out assignment a client (not a server) uses —
// the mirror image of sendHandshake.
func installClientSideCiphers(ch *session.Channel, v version.Version, cmd frame.Command, kf encryption.KeyFile) error {
	if v == version.Final {
		if cmd.ID != packets.CommandServerInitLong || len(cmd.Body) < 0x60+0x30+0x30 {
			return errNotServerInit
		}
		var p packets.ServerInitFinal
		wire.ToStruct(cmd.Body, &p)
		in := encryption.NewFinalBlock(kf, p.ServerKey[:], p.ClientKey[:])
		out := encryption.NewFinalBlock(kf, p.ClientKey[:], p.ServerKey[:])
		ch.SetCiphers(in, out)
		return nil
	}

	if cmd.ID != packets.CommandServerInitShort || len(cmd.Body) < 0x40+4+4+0x20 {
		return errNotServerInit
	}
	var p packets.ServerInitShort
	wire.ToStruct(cmd.Body, &p)
	in := streamCipherForVersion(v, p.ServerKey)
	out := streamCipherForVersion(v, p.ClientKey)
	ch.SetCiphers(in, out)
	return nil
}

func streamCipherForVersion(v version.Version, key uint32) encryption.Cipher {
	b := [4]byte{byte(key), byte(key >> 8), byte(key >> 16), byte(key >> 24)}
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
