// Package item implements the 20-byte item record, the per-version
// encodings it crosses version boundaries through, and the stack,
// equip-slot, and Mag-stat rules that apply to it.
package item

// Kind is the item category, keyed by Data1[0].
type Kind = uint8

const (
	KindWeapon Kind = 0
	KindArmor  Kind = 1 // sub-kind in Data1[1]: 1=armor, 2=shield, 3=unit
	KindMag    Kind = 2
	KindTool   Kind = 3
	KindMeseta Kind = 4
)

// ArmorSubKind values live in Data1[1] when Kind is KindArmor.
const (
	ArmorSubKindArmor  = 1
	ArmorSubKindShield = 2
	ArmorSubKindUnit   = 3
)

// UnassignedID is the sentinel Item.ID value meaning "not yet assigned
// an id" — used transiently during a stack split until the item
// receives one of the owning player's domain ids.
const UnassignedID uint32 = 0xFFFFFFFF

// Item is the 20-byte wire record: a 12-byte Data1, a 4-byte id, and a
// 4-byte Data2. Its interpretation is keyed by Data1[0].
type Item struct {
	Data1 [12]byte
	ID    uint32
	Data2 [4]byte
}

// Kind returns the item's top-level category.
func (it Item) Kind() Kind { return it.Data1[0] }

// Empty reports whether this slot holds no item, per the spec's
// num_items invariant (Data1[0] == 0xFF marks an empty slot).
func (it Item) Empty() bool { return it.Data1[0] == 0xFF }

// Clear resets it to the empty-slot sentinel value.
func (it *Item) Clear() {
	*it = Item{}
	it.Data1[0] = 0xFF
	it.ID = UnassignedID
}

// PrimaryIdentifier is the version-independent lookup key for the item
// parameter table: Data1[0..2], plus Data1[4] for tools (which encodes
// the tool sub-type, needed to disambiguate e.g. different consumables
// that otherwise share Data1[0..2]).
func (it Item) PrimaryIdentifier() uint32 {
	pid := uint32(it.Data1[0])<<16 | uint32(it.Data1[1])<<8 | uint32(it.Data1[2])
	if it.Data1[0] == KindTool {
		pid |= uint32(it.Data1[4]) << 24
	}
	return pid
}

// FromPrimaryIdentifier builds an otherwise-blank item whose Data1[0..2]
// (and, for tools, Data1[4]) reproduce pid, leaving stat bytes zeroed
// for the caller to fill in.
func FromPrimaryIdentifier(pid uint32) Item {
	var it Item
	it.ID = UnassignedID
	it.Data1[0] = byte(pid >> 16)
	it.Data1[1] = byte(pid >> 8)
	it.Data1[2] = byte(pid)
	if it.Data1[0] == KindTool {
		it.Data1[4] = byte(pid >> 24)
	}
	return it
}

// EquipSlot is the client's slot enumeration for explicit equip
// requests. Unknown is sent by the Item Pack pause menu, which leaves
// slot resolution to whoever is handling the request.
type EquipSlot uint8

const (
	EquipSlotUnknown EquipSlot = 0x00
	EquipSlotMag     EquipSlot = 0x01
	EquipSlotArmor   EquipSlot = 0x02
	EquipSlotShield  EquipSlot = 0x03
	EquipSlotWeapon  EquipSlot = 0x06
	EquipSlotUnit1   EquipSlot = 0x09
	EquipSlotUnit2   EquipSlot = 0x0A
	EquipSlotUnit3   EquipSlot = 0x0B
	EquipSlotUnit4   EquipSlot = 0x0C
)

// DefaultEquipSlot computes an item's equip slot from its type, for
// clients that send EquipSlotUnknown and expect the receiver to infer
// it (spec §3's "inferred on older ones" note).
func DefaultEquipSlot(it Item) EquipSlot {
	switch it.Kind() {
	case KindWeapon:
		return EquipSlotWeapon
	case KindMag:
		return EquipSlotMag
	case KindArmor:
		switch it.Data1[1] {
		case ArmorSubKindArmor:
			return EquipSlotArmor
		case ArmorSubKindShield:
			return EquipSlotShield
		case ArmorSubKindUnit:
			return EquipSlotUnit1
		}
	}
	return EquipSlotUnknown
}

// CanBeEquippedInSlot reports whether it may occupy slot at all —
// units may occupy any of the four unit slots, everything else has
// exactly one valid slot.
func CanBeEquippedInSlot(it Item, slot EquipSlot) bool {
	if it.Kind() == KindArmor && it.Data1[1] == ArmorSubKindUnit {
		switch slot {
		case EquipSlotUnit1, EquipSlotUnit2, EquipSlotUnit3, EquipSlotUnit4:
			return true
		default:
			return false
		}
	}
	return DefaultEquipSlot(it) == slot
}

// IsCommonConsumable reports whether pid identifies one of the handful
// of tool kinds every version recognizes without a lookup into the
// item parameter table (Monomate, Dimate, Trimate, and the fluids);
// those share data1[0..1] == {3,0} and are distinguished only by
// data1[2].
func IsCommonConsumable(pid uint32) bool {
	return (pid>>8)&0xFFFF == uint32(KindTool)<<8
}
