// Package version enumerates the client builds the session core can speak
// to and exposes the small set of predicates the rest of the module uses
// to branch on version-specific wire behavior.
package version

import "fmt"

// Version tags a connected client with the build it identified itself as
// during the login handshake. It never changes for the lifetime of a
// session once assigned.
type Version uint8

const (
	Unknown Version = iota

	// PatchDC and PatchBB are patch-only clients: they speak the minimal
	// patch protocol to update files and never reach the game proper.
	PatchDC
	PatchBB

	// PreA and PreB are the two pre-release builds. They used their own,
	// mutually distinct subcommand numbering (see internal/subcommand).
	PreA
	PreB

	// V1 and V2 are the two Dreamcast disc releases, V2 being the minor
	// revision that added the V2-only content and Ultimate difficulty.
	V1
	V2

	// PCPre is the PC port's earlier trial build; PCV2 is the full PC port.
	PCPre
	PCV2

	// ConsoleAPre and ConsoleA are a console revision and its preview build.
	ConsoleAPre
	ConsoleA

	// Ep3Pre and Ep3 are the card-battle spin-off and its trial.
	Ep3Pre
	Ep3

	// ConsoleB is the other console release (a second platform's port).
	ConsoleB

	// Final is the PC online revision that expects server-authoritative
	// play: inventory, bank, drops, and EXP are all enforced server-side.
	Final
)

var names = map[Version]string{
	Unknown:     "unknown",
	PatchDC:     "patch-dc",
	PatchBB:     "patch-bb",
	PreA:        "pre-a",
	PreB:        "pre-b",
	V1:          "v1",
	V2:          "v2",
	PCPre:       "pc-pre",
	PCV2:        "pc-v2",
	ConsoleAPre: "console-a-pre",
	ConsoleA:    "console-a",
	Ep3Pre:      "ep3-pre",
	Ep3:         "ep3",
	ConsoleB:    "console-b",
	Final:       "final",
}

func (v Version) String() string {
	if n, ok := names[v]; ok {
		return n
	}
	return fmt.Sprintf("version(%d)", uint8(v))
}

// ParseVersion looks up the Version whose String() form equals s, for
// decoding the version name a direct-server/proxy listen config names
// in YAML (spec §6). Returns Unknown, false for no match.
func ParseVersion(s string) (Version, bool) {
	for v, name := range names {
		if name == s {
			return v, true
		}
	}
	return Unknown, false
}

// All enumerates every version this module can negotiate, patch-only
// variants included. Callers that need only game-capable clients should
// filter with IsPatch.
func All() []Version {
	out := make([]Version, 0, len(names))
	for v := range names {
		if v != Unknown {
			out = append(out, v)
		}
	}
	return out
}

// IsPatch reports whether v is one of the two patch-only variants that
// never participate in the game proper.
func IsPatch(v Version) bool {
	return v == PatchDC || v == PatchBB
}

// IsPreV1 reports whether v predates the V1 disc release's subcommand
// and item numbering, i.e. one of the two pre-release builds.
func IsPreV1(v Version) bool {
	return v == PreA || v == PreB
}

// IsV1 reports whether v is exactly the first disc release.
func IsV1(v Version) bool {
	return v == V1
}

// IsV2 reports whether v belongs to the "V2" generation: the V1 and V2
// disc releases, the PC port, or either pre-release build (which share
// V2's item/mag encoding quirks per spec).
func IsV2(v Version) bool {
	switch v {
	case PreA, PreB, V1, V2, PCPre, PCV2:
		return true
	default:
		return false
	}
}

// IsV3 reports whether v belongs to the console "V3" generation,
// including the Ep3 card-battle spin-off.
func IsV3(v Version) bool {
	switch v {
	case ConsoleAPre, ConsoleA, Ep3Pre, Ep3, ConsoleB:
		return true
	default:
		return false
	}
}

// IsV4 reports whether v is the server-authoritative final revision.
func IsV4(v Version) bool {
	return v == Final
}

// IsBigEndian reports whether v's native client runs on big-endian
// hardware, which affects item data2 byte order for mags and Word Select
// phrase encoding.
func IsBigEndian(v Version) bool {
	switch v {
	case ConsoleAPre, ConsoleA, Ep3Pre, Ep3, ConsoleB:
		return true
	default:
		return false
	}
}

// UsesV2Encryption reports whether v negotiates the V2 generation's
// 57-word stream cipher (V2Stream). It is false for the V3 generation,
// which uses V3Stream, and for Final, which uses the block-derived
// stream cipher.
func UsesV2Encryption(v Version) bool {
	return IsV2(v)
}

// IsEp3 reports whether v is one of the card-battle spin-off builds,
// which alone are permitted to exchange the 0xC9/0xCB command family.
func IsEp3(v Version) bool {
	return v == Ep3Pre || v == Ep3
}

// HeaderShape describes which wire header layout a version's frames use.
type HeaderShape uint8

const (
	// HeaderShapeShort is the 4-byte {cmd:u16, flag:u8, size:u8*mult} or
	// {size:u16, cmd:u16} header used by every non-Final version.
	HeaderShapeShort HeaderShape = iota
	// HeaderShapeLong is the 8-byte {size:u32, cmd:u16, flag:u16} header
	// used only by Final.
	HeaderShapeLong
)

// Header returns the wire header shape v uses.
func Header(v Version) HeaderShape {
	if v == Final {
		return HeaderShapeLong
	}
	return HeaderShapeShort
}
