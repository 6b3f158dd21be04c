package item

import "github.com/quietloop/archon/internal/version"

// DecodeForVersion normalizes it, as received from a client running
// v, into the canonical little-endian layout this package otherwise
// assumes everywhere. Call it once, immediately on receipt, before any
// other function in this package touches the item.
func DecodeForVersion(it *Item, v version.Version) {
	if it.Kind() != KindMag {
		return
	}
	if version.IsBigEndian(v) {
		// The big-endian console client byte-swaps Data2 even for mags,
		// which are otherwise interpreted the same way on every version;
		// undo that swap so the canonical layout stays little-endian.
		swap4(&it.Data2)
	}
	if version.IsV2(v) {
		unpackV2Mag(it)
	}
}

// EncodeForVersion mirrors DecodeForVersion immediately before sending
// it to a client running v.
func EncodeForVersion(it *Item, v version.Version) {
	if it.Kind() != KindMag {
		return
	}
	if version.IsV2(v) {
		packV2Mag(it)
	}
	if version.IsBigEndian(v) {
		swap4(&it.Data2)
	}
}

func swap4(b *[4]byte) {
	b[0], b[3] = b[3], b[0]
	b[1], b[2] = b[2], b[1]
}

// V2's Mag encoding packs each of the four growth stats into a single
// byte at one-quarter resolution rather than the canonical layout's full
// uint16 fields,
// reflecting that generation's much lower stat caps. The original
// client's exact bit layout isn't present in the retrieved reference
// material (only the fact that it differs is); this is a
// self-consistent stand-in documented in DESIGN.md, scaled so that
// values landing on 4-point boundaries round-trip exactly.
const v2MagScale = 4

func packV2Mag(it *Item) {
	m := it.MagStats()
	it.Data1[4] = scaleDown(m.Def)
	it.Data1[5] = scaleDown(m.Pow)
	it.Data1[6] = scaleDown(m.Dex)
	it.Data1[7] = scaleDown(m.Mind)
	it.Data1[8] = byte(m.Synchro)
	it.Data1[9] = byte(m.IQ)
	it.Data1[10] = m.Flags | m.PhotonBlasts
	it.Data1[11] = m.Color
}

func unpackV2Mag(it *Item) {
	m := MagStats{
		Def:          scaleUp(it.Data1[4]),
		Pow:          scaleUp(it.Data1[5]),
		Dex:          scaleUp(it.Data1[6]),
		Mind:         scaleUp(it.Data1[7]),
		Synchro:      uint16(it.Data1[8]),
		IQ:           uint16(it.Data1[9]),
		Flags:        it.Data1[10] &^ 0x07,
		PhotonBlasts: it.Data1[10] & 0x07,
		Color:        it.Data1[11],
	}
	it.AssignMagStats(m)
}

func scaleDown(v uint16) byte {
	scaled := v / v2MagScale
	if scaled > 255 {
		scaled = 255
	}
	return byte(scaled)
}

func scaleUp(b byte) uint16 {
	return uint16(b) * v2MagScale
}
