package packets

import "github.com/quietloop/archon/internal/item"

// Subcommand numbers (Final namespace) for the loading-protocol state
// sync stream the existing leader sends to a joining player, per spec
// §4.4 family 3 / §4.6 / §8 scenario 2.
const (
	SubLoadLeaderState      = 0x6B // 6x6B
	SubLoadLobbyState       = 0x6C // 6x6C
	SubLoadPlayerInventory  = 0x6D // 6x6D
	SubLoadPlayerData       = 0x6E // 6x6E
	SubLoadTransferComplete = 0x71 // 6x71, synthesized for bridged joins
	SubLoadEnemyState       = 0x70 // 6x70
	SubLoadObjectState      = 0x72 // 6x72
)

// PreA/PreB numbering aliases for the loading-protocol subcommands,
// taken from spec §8 scenario 2's literal PreA values (0x5C..0x61).
// PreB is not documented with distinct numbers for this family in the
// retrieved pack, so it is treated as identical to Final here — an
// Open Question recorded in DESIGN.md.
var LoadSubcommandPreAAlias = map[uint8]uint8{
	SubLoadLeaderState:     0x5C,
	SubLoadLobbyState:      0x5D,
	SubLoadPlayerInventory: 0x5E,
	SubLoadPlayerData:      0x5F,
	SubLoadEnemyState:      0x60,
	SubLoadObjectState:     0x61,
}

// FinalFromLoadSubcommandPreA is the reverse of LoadSubcommandPreAAlias,
// built once at init so the dispatcher can recognize a PreA-numbered
// loading subcommand without a linear search.
var FinalFromLoadSubcommandPreA = reverseLoadAlias(LoadSubcommandPreAAlias)

func reverseLoadAlias(m map[uint8]uint8) map[uint8]uint8 {
	r := make(map[uint8]uint8, len(m))
	for final, preA := range m {
		r[preA] = final
	}
	return r
}

// LongLoadHeader is the wide-header shape (every version except PreA/PreB)
// used for loading-protocol payloads: an explicit compressed size
// field in addition to the generic ClientIDHeader.
type LongLoadHeader struct {
	Subcommand     uint8
	SizeWords      uint8
	ClientID       uint8
	Unused         uint8
	CompressedSize uint32
}

// NarrowLoadHeader is the pre-release shape that omits the explicit
// compressed size, per spec §4.4 family 3's "pre-release uses a
// narrower header" note; the dispatcher must re-wrap NarrowLoadHeader
// payloads into LongLoadHeader (and vice versa) when bridging clients
// of different generations.
type NarrowLoadHeader struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
}

// MaxSyncedItems is the number of inventory slots PlayerInventorySync
// carries, matching player.MaxInventorySlots (not imported directly,
// to avoid an internal/packets → internal/player dependency the rest
// of this package's wire structs don't otherwise need).
const MaxSyncedItems = 30

// PlayerInventorySync is the decompressed body of 6x6D: the joining
// player's computed initial inventory (re-encoded per recipient
// version by the dispatcher, same as DropItemNotification.Item) plus
// the per-occupant-slot next-item-id table the server cross-checks
// against its own accounting.
type PlayerInventorySync struct {
	ClientID    uint8
	Unused      [3]byte
	NumItems    uint8
	Unused2     [3]byte
	Items       [MaxSyncedItems]item.Item
	NextItemIDs [12]uint32 // indexed by lobby slot; only occupied slots matter
}

// TransferComplete is the synthesized 6x71 marker the dispatcher
// inserts between 6x6E and 6x70 when bridging a pre-release leader to
// a Final joiner, since pre-release never emits this marker on its own
// (spec §8 scenario 2).
type TransferComplete struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
}
