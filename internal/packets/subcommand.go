// Package packets defines the fixed wire-layout structs carried inside
// command and subcommand bodies: login families, the outer-command
// envelope, subcommand inner headers, and the lobby/loading-protocol
// payloads the dispatcher and lobby packages marshal with internal/wire.
package packets

import "github.com/quietloop/archon/internal/item"

// Outer command ids that carry one or more inner subcommands (spec
// §4.4). 0x60/0x62/0x6C/0x6D are the regular-game family; 0xC9/0xCB are
// the Ep3 card-battle family and must be dropped from non-Ep3 senders.
const (
	CommandBroadcastSubcommand    = 0x60
	CommandTargetedSubcommand     = 0x62
	CommandBroadcastSubcommandEx  = 0x6C
	CommandTargetedSubcommandEx   = 0x6D
	CommandEp3BroadcastSubcommand = 0xC9
	CommandEp3TargetedSubcommand  = 0xCB
)

// IsTargeted reports whether outer command cmd is one of the
// private/targeted subcommand envelopes (delivered to exactly one
// slot) rather than a broadcast envelope.
func IsTargeted(cmd uint16) bool {
	return cmd == CommandTargetedSubcommand || cmd == CommandTargetedSubcommandEx
}

// IsEp3Family reports whether cmd belongs to the card-battle outer
// command family, identified generically by the high nibble per
// original_source's ReceiveSubcommands.cc convention ((cmd & 0xF0) ==
// 0xC0) rather than an explicit two-entry list.
func IsEp3Family(cmd uint16) bool {
	return cmd&0xF0 == 0xC0
}

// ShortSubcommandHeader is the 2-byte inner header: {Subcommand,
// SizeWords}. SizeWords counts 4-byte words *including* this header;
// when the payload needs 4 bytes of header (SizeWords==0 on the wire),
// the sender instead emits an ExtendedSubcommandHeader.
type ShortSubcommandHeader struct {
	Subcommand uint8
	SizeWords  uint8
}

// ExtendedSubcommandHeader is the 4-byte inner header used when a
// subcommand's word count doesn't fit in one byte: {Subcommand, 0,
// SizeWords:u16}.
type ExtendedSubcommandHeader struct {
	Subcommand uint8
	Zero       uint8
	SizeWords  uint16
}

// ClientIDHeader is the near-universal {Subcommand, SizeWords,
// ClientID, Zero} shape most subcommand payloads lead with, letting
// the dispatcher validate "client id field must equal sender's slot"
// generically (family 1 in spec §4.4).
type ClientIDHeader struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Zero       uint8
}

// MovementSubcommand is the 6x42/6x43-style position update: client id
// plus a floor-relative position the dispatcher mirrors into the
// sender's shadow position before forwarding (family 2).
type MovementSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	X          float32
	Z          float32
}

// QuestFlagSubcommand is the 6x75 quest-flag write: a difficulty and
// flag-number pair plus the client id raising it.
type QuestFlagSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	Difficulty uint16
	FlagNumber uint16
}

// ExpGainSubcommand carries a client id and a raw exp delta; the
// dispatcher's EXP/level family (spec §4.4.7) applies the
// mode/killer/episode multipliers on top of this before crediting it.
type ExpGainSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	Exp        uint32
}

// DropRequestSubcommand is the 6x60/6xA2 entity-drop entry point (spec
// §4.8): entity kind/index/floor plus position and, for boxes, four
// specialization words.
type DropRequestSubcommand struct {
	Subcommand        uint8
	SizeWords         uint8
	ClientID          uint8
	Unused            uint8
	EntityIndex       uint16
	Floor             uint16
	X                 float32
	Z                 float32
	IgnoreDefaultDrop uint8
	EntityKind        uint8
	Unused2           uint16
	BoxParams         [4]uint32
}

// Inner subcommand numbers the drop engine and pick-up path handle
// directly rather than through the generic dispatch table, since both
// can address more than one recipient with distinct per-recipient
// payloads (spec §4.6, §4.8) — a shape the table's one-Handler/one-
// Delivery contract doesn't express. Numbers per original_source's
// ReceiveSubcommands.cc dispatch table.
const (
	SubPickUpItem          = 0x59 // client-leader-adjudicated notify; also the server->client pick-up announcement
	SubPickUpItemRequest   = 0x5A // server-adjudicated request (Final)
	SubEntityDropRequest   = 0x60 // entity (enemy/box) drop
	SubEntityDropRequestEx = 0xA2 // box-drop variant carrying the same fields
	SubDropItemNotify      = 0x5F // server->client drop announcement
)

// PickUpRequestSubcommand is the 6x5A/6x59 pick-up entry point: the
// floor item id the requester wants, and the floor it claims to be on.
type PickUpRequestSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	Floor      uint16
	Unused2    uint16
	ItemID     uint32
}

// DropItemNotification is the 6x5F the server sends once a drop
// engine decision has been made: the item record, its owning entity's
// floor/position, and whether it came from an enemy (as opposed to a
// box) for clients that render the two differently.
type DropItemNotification struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	IsEnemy    uint8
	Floor      uint16
	Unused     uint16
	X, Z       float32
	Item       item.Item
	EntityID   uint16
	Unused2    uint16
}

// PickedUpNotification is the 6x59 the server echoes to peers once a
// pick-up has been adjudicated: who picked up which floor item. Item
// is filled in for the picker's own client (so its inventory UI has
// the full record to display) and must be re-encoded per recipient
// version via item.EncodeForVersion before sending, same as
// DropItemNotification.Item.
type PickedUpNotification struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
	Floor      uint16
	Unused2    uint16
	Item       item.Item
}

// WordSelectSubcommand carries the six symbolic phrase tokens plus the
// speaking client's slot; the dispatcher re-translates tokens through a
// cross-version table and endian-flips them for big-endian recipients.
type WordSelectSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	Tokens     [6]uint16
	Unused2    uint32
}

// CardBattleSubcommand wraps an 0xB5-family inner payload carried
// inside the Ep3 outer commands. MaskKey is the XOR mask the sender
// chose and recorded so the obfuscated Data can be unmasked/remasked
// without leaking hidden information to a packet capture.
type CardBattleSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	MaskKey    uint8
	Data       []byte
}
