package encryption

import "encoding/binary"

// DetectorHeaderSize is the number of leading bytes a Detector inspects
// to decide whether a trial decryption looks like a real command.
const DetectorHeaderSize = 8

// DetectorMaxFrame bounds the size field a plausible header may report;
// anything larger than the protocol's maximum frame size disqualifies
// that trial.
const DetectorMaxFrame = 0x7C00

// Detector wraps the Final generation's private key pool and identifies
// which entry a connecting client is using from its first command,
// per spec: trial-decrypt against every candidate and accept the first
// whose header decodes to a recognizable command id and plausible size.
//
// Real clients derive an identical cipher for both stream directions
// from the same KeyFile with the two 48-byte seeds swapped, so a
// Detector is built once per inbound (client-to-server) direction; once
// it settles, callers read back the winning KeyFile via Identified and
// build the paired outbound cipher themselves with NewFinalBlock and the
// seeds reversed.
type Detector struct {
	candidates []*FinalBlock

	identified    int // index into candidates, -1 until settled
	knownCommands map[uint16]bool

	// rawCiphertext records every byte seen before identification so a
	// caller can replay it once the winning cipher is known, e.g. to
	// re-derive an equivalent outbound "imitator" cipher state.
	rawCiphertext []byte
}

// NewDetector builds a Detector over pool, deriving one trial cipher per
// entry from the given client/server seed pair. knownCommands, if
// non-empty, restricts plausible headers to that command id set; pass
// nil to accept any command id within a sane size.
func NewDetector(pool KeyPool, clientSeed, serverSeed []byte, knownCommands []uint16) *Detector {
	d := &Detector{
		candidates: make([]*FinalBlock, len(pool)),
		identified: -1,
	}
	for i, kf := range pool {
		d.candidates[i] = NewFinalBlock(kf, clientSeed, serverSeed)
	}
	if len(knownCommands) > 0 {
		d.knownCommands = make(map[uint16]bool, len(knownCommands))
		for _, c := range knownCommands {
			d.knownCommands[c] = true
		}
	}
	return d
}

// IsIdentified reports whether a candidate has been committed to.
func (d *Detector) IsIdentified() bool { return d.identified >= 0 }

// Identified returns the KeyFile the detector settled on. It panics if
// called before identification succeeds; callers must check
// IsIdentified first.
func (d *Detector) Identified() KeyFile {
	if d.identified < 0 {
		panic("encryption: Detector.Identified called before identification")
	}
	return d.candidates[d.identified].KeyFile()
}

// RawCiphertext returns the bytes seen prior to identification, for
// seeding a matching outbound cipher or for diagnostics on failure.
func (d *Detector) RawCiphertext() []byte { return d.rawCiphertext }

func (d *Detector) headerPlausible(buf []byte) bool {
	if len(buf) < DetectorHeaderSize {
		return false
	}
	size := binary.LittleEndian.Uint32(buf[0:4])
	cmd := binary.LittleEndian.Uint16(buf[4:6])
	if size == 0 || size > DetectorMaxFrame {
		return false
	}
	if d.knownCommands != nil && !d.knownCommands[cmd] {
		return false
	}
	return true
}

// Decrypt trial-decrypts buf against every remaining candidate until
// one produces a plausible header, then commits to it; every later call
// delegates straight to the winner. buf is expected to be the client's
// first command in full (header and body together) on the identifying
// call, per the session layer's handling of unidentified Final ciphers
// (see internal/frame and DESIGN.md's Detector re-decryption note).
func (d *Detector) Decrypt(buf []byte, advance bool) {
	if d.identified >= 0 {
		d.candidates[d.identified].Decrypt(buf, advance)
		return
	}

	if advance {
		d.rawCiphertext = append(d.rawCiphertext, buf...)
	}

	for i, c := range d.candidates {
		trial := make([]byte, len(buf))
		copy(trial, buf)
		c.Decrypt(trial, false)
		if !d.headerPlausible(trial) {
			continue
		}
		if advance {
			c.Decrypt(buf, true)
			d.identified = i
		} else {
			copy(buf, trial)
		}
		return
	}
	// No candidate matched. Leave buf as ciphertext; the caller treats an
	// unidentified first command as a fatal CipherError.
}

// Encrypt is provided only so Detector satisfies Cipher for symmetry in
// tests; a Detector is only ever installed on the inbound direction. It
// panics if called before identification and otherwise delegates to the
// identified candidate.
func (d *Detector) Encrypt(buf []byte, advance bool) {
	if d.identified < 0 {
		panic("encryption: Detector.Encrypt called before identification")
	}
	d.candidates[d.identified].Encrypt(buf, advance)
}

// Skip delegates to the identified candidate once settled; before that
// it is a no-op since the pre-identification protocol never needs to
// skip bytes blind.
func (d *Detector) Skip(n int) {
	if d.identified >= 0 {
		d.candidates[d.identified].Skip(n)
	}
}
