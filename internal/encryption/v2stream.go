package encryption

import "encoding/binary"

// V2StreamKeySize is the key length (bytes) the V2-generation clients
// negotiate their stream cipher with.
const V2StreamKeySize = 4

// V2StreamWords is the 57-word table size the V2 generation's stream
// cipher operates on (PC_STREAM_LENGTH in the original client).
const V2StreamWords = 57

// V2Stream is the 32-bit stream cipher used by the V1/V2/PC generation
// of clients.
type V2Stream struct {
	gen *laggedStream
}

// NewV2Stream builds a V2Stream cipher from a 4-byte little-endian seed.
func NewV2Stream(key []byte) *V2Stream {
	seed := binary.LittleEndian.Uint32(padKey(key, V2StreamKeySize))
	return &V2Stream{gen: newLaggedStream(seed, V2StreamWords)}
}

func (c *V2Stream) Encrypt(buf []byte, advance bool) { c.gen.process(buf, advance) }
func (c *V2Stream) Decrypt(buf []byte, advance bool) { c.gen.process(buf, advance) }
func (c *V2Stream) Skip(n int)                       { c.gen.skip(n) }

func padKey(key []byte, size int) []byte {
	if len(key) >= size {
		return key[:size]
	}
	padded := make([]byte, size)
	copy(padded, key)
	return padded
}
