// Package frame implements the wire frame codec: reading and writing one
// command at a time off a per-session byte stream, applying whichever
// cipher is installed and handling the Final generation's ciphertext
// padding quirk.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/quietloop/archon/internal/encryption"
	"github.com/quietloop/archon/internal/version"
)

// ShortHeaderSize is the 4-byte header every version but Final uses.
const ShortHeaderSize = 4

// LongHeaderSize is the 8-byte header Final uses.
const LongHeaderSize = 8

// MaxFrameSize is the largest ciphertext frame the protocol allows.
const MaxFrameSize = 0x7C00

// ErrNotReady means the buffer doesn't yet hold a complete frame; the
// caller should wait for more bytes and try again.
var ErrNotReady = errors.New("frame: not ready")

// ErrTooLarge means a frame (read or about to be written) exceeds
// MaxFrameSize.
var ErrTooLarge = errors.New("frame: too large")

// Command is one decoded frame: an outer command id, its flag/size
// byte or word (meaning is version-specific, callers that need it
// interpret Flag themselves), and the logical body.
type Command struct {
	ID   uint16
	Flag uint16
	Body []byte
}

// shortHeader is the 4-byte {size, command} header used by every
// version but Final, matching the teacher's PCHeader layout.
type shortHeader struct {
	Size    uint16
	Command uint16
}

// longHeader is Final's 8-byte {size, command, flag} header.
type longHeader struct {
	Size    uint32
	Command uint16
	Flag    uint16
}

func headerSize(v version.Version) int {
	if version.Header(v) == version.HeaderShapeLong {
		return LongHeaderSize
	}
	return ShortHeaderSize
}

// roundUp4 rounds n up to the next multiple of 4, the padding unit every
// version but Final's ciphertext uses.
func roundUp4(n int) int {
	return (n + 3) &^ 3
}

// roundUp8 rounds n up to the next multiple of 8, Final's ciphertext
// padding unit.
func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// ReadOne attempts to decode one command from the front of buf. On
// success it returns the command and the number of physical bytes
// consumed from buf. ErrNotReady means buf doesn't yet hold a complete
// frame and the caller should retry once more bytes arrive; the
// returned consumed count is always 0 in that case. inCipher may be
// nil, meaning the session hasn't completed its handshake yet and
// frames travel in the clear.
func ReadOne(buf []byte, v version.Version, inCipher encryption.Cipher) (Command, int, error) {
	hdrSize := headerSize(v)
	if len(buf) < hdrSize {
		return Command{}, 0, ErrNotReady
	}

	peeked := make([]byte, hdrSize)
	copy(peeked, buf[:hdrSize])
	if inCipher != nil {
		inCipher.Decrypt(peeked, false)
	}

	var logicalSize int
	var cmdID, flag uint16
	if version.Header(v) == version.HeaderShapeLong {
		var h longHeader
		h.Size = binary.LittleEndian.Uint32(peeked[0:4])
		h.Command = binary.LittleEndian.Uint16(peeked[4:6])
		h.Flag = binary.LittleEndian.Uint16(peeked[6:8])
		logicalSize = int(h.Size)
		cmdID, flag = h.Command, h.Flag
	} else {
		var h shortHeader
		h.Size = binary.LittleEndian.Uint16(peeked[0:2])
		h.Command = binary.LittleEndian.Uint16(peeked[2:4])
		logicalSize = int(h.Size)
		cmdID, flag = h.Command, 0
	}

	if logicalSize > MaxFrameSize {
		return Command{}, 0, fmt.Errorf("frame: %w: logical size %d", ErrTooLarge, logicalSize)
	}
	if logicalSize < hdrSize {
		return Command{}, 0, fmt.Errorf("frame: logical size %d smaller than header", logicalSize)
	}

	physicalSize := logicalSize
	if v == version.Final && inCipher != nil {
		physicalSize = roundUp8(logicalSize)
	}
	if physicalSize > MaxFrameSize {
		return Command{}, 0, fmt.Errorf("frame: %w: physical size %d", ErrTooLarge, physicalSize)
	}

	if len(buf) < physicalSize {
		return Command{}, 0, ErrNotReady
	}

	whole := make([]byte, physicalSize)
	copy(whole, buf[:physicalSize])
	if inCipher != nil {
		inCipher.Decrypt(whole, true)
	}

	return Command{
		ID:   cmdID,
		Flag: flag,
		Body: whole[hdrSize:logicalSize],
	}, physicalSize, nil
}

// WriteOne encodes cmd into a ciphertext-ready frame for v, encrypting
// with outCipher if non-nil.
func WriteOne(cmd Command, v version.Version, outCipher encryption.Cipher) ([]byte, error) {
	hdrSize := headerSize(v)
	logicalSize := hdrSize + len(cmd.Body)

	// Final's logical size field is itself rounded to a 4-byte multiple;
	// every other version's short header pads its body the same way.
	paddedLogical := roundUp4(logicalSize)

	physicalSize := paddedLogical
	if v == version.Final && outCipher != nil {
		physicalSize = roundUp8(paddedLogical)
	}
	if physicalSize > MaxFrameSize {
		return nil, fmt.Errorf("frame: %w: %d bytes", ErrTooLarge, physicalSize)
	}

	out := make([]byte, physicalSize)
	if version.Header(v) == version.HeaderShapeLong {
		binary.LittleEndian.PutUint32(out[0:4], uint32(paddedLogical))
		binary.LittleEndian.PutUint16(out[4:6], cmd.ID)
		binary.LittleEndian.PutUint16(out[6:8], cmd.Flag)
	} else {
		binary.LittleEndian.PutUint16(out[0:2], uint16(paddedLogical))
		binary.LittleEndian.PutUint16(out[2:4], cmd.ID)
	}
	copy(out[hdrSize:], cmd.Body)

	if outCipher != nil {
		outCipher.Encrypt(out, true)
	}
	return out, nil
}
