package encryption

import "encoding/binary"

// V3StreamKeySize is the key length (bytes) the V3-generation (console)
// clients negotiate their stream cipher with.
const V3StreamKeySize = 4

// V3StreamWords is the 521-word table size the V3 generation's stream
// cipher operates on (GC_STREAM_LENGTH in the original client).
const V3StreamWords = 521

// V3Stream is the 32-bit stream cipher used by the console ("V3")
// generation of clients, including the Ep3 card-battle spin-off.
type V3Stream struct {
	gen *laggedStream
}

// NewV3Stream builds a V3Stream cipher from a 4-byte little-endian seed.
func NewV3Stream(key []byte) *V3Stream {
	seed := binary.LittleEndian.Uint32(padKey(key, V3StreamKeySize))
	return &V3Stream{gen: newLaggedStream(seed, V3StreamWords)}
}

func (c *V3Stream) Encrypt(buf []byte, advance bool) { c.gen.process(buf, advance) }
func (c *V3Stream) Decrypt(buf []byte, advance bool) { c.gen.process(buf, advance) }
func (c *V3Stream) Skip(n int)                       { c.gen.skip(n) }
