package frame

import (
	"testing"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/version"
	"github.com/go-test/deep"
)

func TestWriteThenReadRoundTrip_NoCipher(t *testing.T) {
	tests := []struct {
		name string
		v    version.Version
		cmd  Command
	}{
		{"short header, v2", version.V2, Command{ID: 0x60, Body: []byte{1, 2, 3}}},
		{"short header, empty body", version.ConsoleA, Command{ID: 0x05}},
		{"long header, final", version.Final, Command{ID: 0x93, Flag: 1, Body: []byte{1, 2, 3, 4, 5, 6, 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := WriteOne(tt.cmd, tt.v, nil)
			if err != nil {
				t.Fatalf("WriteOne() error = %v", err)
			}
			got, consumed, err := ReadOne(wire, tt.v, nil)
			if err != nil {
				t.Fatalf("ReadOne() error = %v", err)
			}
			if consumed != len(wire) {
				t.Fatalf("consumed = %d, want %d", consumed, len(wire))
			}
			if got.ID != tt.cmd.ID || got.Flag != tt.cmd.Flag {
				t.Fatalf("got id/flag = %x/%x, want %x/%x", got.ID, got.Flag, tt.cmd.ID, tt.cmd.Flag)
			}
			if diff := deep.Equal(got.Body, tt.cmd.Body); diff != nil {
				t.Errorf("body mismatch: %v", diff)
			}
		})
	}
}

func TestWriteThenReadRoundTrip_WithCipher(t *testing.T) {
	tests := []struct {
		name string
		v    version.Version
		mk   func() encryption.Cipher
	}{
		{"v2 stream", version.V2, func() encryption.Cipher { return encryption.NewV2Stream([]byte{1, 2, 3, 4}) }},
		{"v3 stream", version.ConsoleA, func() encryption.Cipher { return encryption.NewV3Stream([]byte{5, 6, 7, 8}) }},
		{"final block", version.Final, func() encryption.Cipher {
			kf := encryption.GenerateKeyFile(42)
			return encryption.NewFinalBlock(kf, []byte("client-seed"), []byte("server-seed"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Command{ID: 0x60, Flag: 2, Body: []byte{9, 8, 7, 6, 5}}

			wire, err := WriteOne(cmd, tt.v, tt.mk())
			if err != nil {
				t.Fatalf("WriteOne() error = %v", err)
			}

			got, consumed, err := ReadOne(wire, tt.v, tt.mk())
			if err != nil {
				t.Fatalf("ReadOne() error = %v", err)
			}
			if consumed != len(wire) {
				t.Fatalf("consumed = %d, want %d", consumed, len(wire))
			}
			if diff := deep.Equal(got.Body, cmd.Body); diff != nil {
				t.Errorf("body mismatch: %v", diff)
			}
		})
	}
}

func TestReadOne_NotReadyOnPartialBuffer(t *testing.T) {
	cmd := Command{ID: 0x60, Body: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	wire, err := WriteOne(cmd, version.V2, nil)
	if err != nil {
		t.Fatalf("WriteOne() error = %v", err)
	}

	if _, _, err := ReadOne(wire[:2], version.V2, nil); err != ErrNotReady {
		t.Fatalf("partial header: err = %v, want ErrNotReady", err)
	}
	if _, _, err := ReadOne(wire[:len(wire)-1], version.V2, nil); err != ErrNotReady {
		t.Fatalf("partial body: err = %v, want ErrNotReady", err)
	}
}

func TestReadOne_TooLarge(t *testing.T) {
	buf := make([]byte, ShortHeaderSize)
	buf[0], buf[1] = 0x00, 0x7E // size field far beyond MaxFrameSize
	if _, _, err := ReadOne(buf, version.V2, nil); err == nil {
		t.Fatalf("expected ErrTooLarge, got nil")
	}
}

func TestWriteOne_TooLarge(t *testing.T) {
	cmd := Command{ID: 0x60, Body: make([]byte, MaxFrameSize)}
	if _, err := WriteOne(cmd, version.V2, nil); err == nil {
		t.Fatalf("expected ErrTooLarge, got nil")
	}
}

func TestReadOne_FinalPadsCiphertextToEightBytes(t *testing.T) {
	cmd := Command{ID: 0x93, Body: []byte{1, 2, 3}} // logical size rounds to 12, not a multiple of 8
	cipher := encryption.NewFinalBlock(encryption.GenerateKeyFile(7), []byte("a"), []byte("b"))

	wire, err := WriteOne(cmd, version.Final, cipher)
	if err != nil {
		t.Fatalf("WriteOne() error = %v", err)
	}
	if len(wire)%8 != 0 {
		t.Fatalf("Final ciphertext length %d not a multiple of 8", len(wire))
	}
}
