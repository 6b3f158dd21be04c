package encryption

import "encoding/binary"

// FinalBlockWords is the 1042-word table size the Final generation's
// cipher operates on: 18 "round" keys plus 1024 "private" keys, matching
// PSOBBEncryption::KeyFile in original_source/PSOEncryption.hh exactly.
const FinalBlockWords = 18 + 1024

// FinalBlockRoundKeys is the number of persistent round keys re-injected
// into the table on every remix.
const FinalBlockRoundKeys = 18

// KeyFile is one entry of the Final generation's private key pool: the
// 18 round keys and 1024 private keys a specific client build ships
// baked into its binary. The server must hold the same pool to identify
// which entry an incoming client negotiated.
type KeyFile struct {
	RoundKeys   [FinalBlockRoundKeys]uint32
	PrivateKeys [1024]uint32
}

// KeyPool is the configured set of KeyFiles a Final-generation client
// might be using. Detector tries each entry in order.
type KeyPool []KeyFile

// GenerateKeyFile deterministically derives a KeyFile from seed. Real
// deployments load their pool from the client's own key file assets
// (out of scope here, see SPEC_FULL.md §1 gamedata); this generator
// exists so a default, internally-consistent pool can be built for
// tests and for operators who haven't supplied real key files.
func GenerateKeyFile(seed uint64) KeyFile {
	var kf KeyFile
	state := seed | 1
	next := func() uint32 {
		// xorshift64*, cheap and seed-sensitive; not cryptographic, and
		// doesn't need to be since this is a stand-in for an asset file.
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return uint32(state >> 32)
	}
	for i := range kf.RoundKeys {
		kf.RoundKeys[i] = next()
	}
	for i := range kf.PrivateKeys {
		kf.PrivateKeys[i] = next()
	}
	return kf
}

// DefaultKeyPool builds n deterministic KeyFiles for development and
// testing, indexed 0..n-1.
func DefaultKeyPool(n int) KeyPool {
	pool := make(KeyPool, n)
	for i := 0; i < n; i++ {
		pool[i] = GenerateKeyFile(uint64(i)*0x9E3779B97F4A7C15 + 1)
	}
	return pool
}

// FinalBlock is the Final generation's cipher: a 1042-word keystream
// table derived from a KeyFile and a pair of 48-byte seeds, consumed the
// same way as the two 32-bit stream ciphers but remixed, when exhausted,
// by re-folding in its 18 round keys rather than purely subtractively.
type FinalBlock struct {
	kf    KeyFile
	table [FinalBlockWords]uint32

	position int

	snapshot     [FinalBlockWords]uint32
	snapshotPos  int
	haveSnapshot bool
}

// NewFinalBlock derives a FinalBlock cipher from kf and the ordered pair
// of 48-byte seeds. Client-to-server and server-to-client channels use
// the seeds in opposite order, which is what gives the two directions
// "different but related derivations" per spec.
func NewFinalBlock(kf KeyFile, primarySeed, secondarySeed []byte) *FinalBlock {
	c := &FinalBlock{kf: kf}
	copy(c.table[:FinalBlockRoundKeys], kf.RoundKeys[:])
	copy(c.table[FinalBlockRoundKeys:], kf.PrivateKeys[:])

	c.foldSeed(primarySeed)
	c.mix()
	c.foldSeed(secondarySeed)
	for i := 0; i < 4; i++ {
		c.mix()
	}
	c.position = FinalBlockWords - 1
	return c
}

// KeyFile returns the pool entry this cipher was derived from, used by
// the detector to seed the matching outbound "imitator" cipher.
func (c *FinalBlock) KeyFile() KeyFile { return c.kf }

func (c *FinalBlock) foldSeed(seed []byte) {
	if len(seed) == 0 {
		return
	}
	words := (len(seed) + 3) / 4
	padded := make([]byte, words*4)
	copy(padded, seed)

	for i := 0; i < words; i++ {
		v := binary.LittleEndian.Uint32(padded[i*4 : i*4+4])
		c.table[i%FinalBlockWords] ^= v
	}
}

// mix regenerates the table using the same two-lag subtractive shape as
// the 32-bit stream ciphers, scaled to 1042 words, after re-injecting
// the persistent round keys so they continue to influence every remix.
func (c *FinalBlock) mix() {
	for i := 0; i < FinalBlockRoundKeys; i++ {
		c.table[i] ^= c.kf.RoundKeys[i]
	}

	const usable = FinalBlockWords - 1
	const p = usable * 31 / 56
	const q = usable - p

	initial := 1
	for i := 0; i < q; i++ {
		c.table[initial] -= c.table[initial+p]
		initial++
	}
	initial = q + 1
	for i := 0; i < p; i++ {
		c.table[initial] -= c.table[initial-q]
		initial++
	}
}

func (c *FinalBlock) next() uint32 {
	const usable = FinalBlockWords - 1
	if c.position == usable {
		c.mix()
		c.position = 1
	}
	v := c.table[c.position]
	c.position++
	return v
}

func (c *FinalBlock) saveState() {
	c.snapshot = c.table
	c.snapshotPos = c.position
	c.haveSnapshot = true
}

func (c *FinalBlock) restoreState() {
	if !c.haveSnapshot {
		return
	}
	c.table = c.snapshot
	c.position = c.snapshotPos
	c.haveSnapshot = false
}

func (c *FinalBlock) process(buf []byte, advance bool) {
	if !advance {
		c.saveState()
	}
	for i := 0; i+wordSizeBytes <= len(buf); i += wordSizeBytes {
		k := c.next()
		buf[i] ^= byte(k)
		buf[i+1] ^= byte(k >> 8)
		buf[i+2] ^= byte(k >> 16)
		buf[i+3] ^= byte(k >> 24)
	}
	if !advance {
		c.restoreState()
	}
}

func (c *FinalBlock) Encrypt(buf []byte, advance bool) { c.process(buf, advance) }
func (c *FinalBlock) Decrypt(buf []byte, advance bool) { c.process(buf, advance) }
func (c *FinalBlock) Skip(n int) {
	for i := 0; i+wordSizeBytes <= n; i += wordSizeBytes {
		c.next()
	}
}
