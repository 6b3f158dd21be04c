package item

import (
	"errors"

	"github.com/quietloop/archon/internal/version"
)

// ErrCannotSplit means Split was called with a count that would leave
// fewer than 1 unit in the source stack, or on an item StackSize
// doesn't track a count for.
var ErrCannotSplit = errors.New("item: cannot split stack")

// WrapFlag is the 1-bit wrapping flag stored in Data1[3] for tools,
// which suppresses stackability while set regardless of what the
// item's base stackability rule would otherwise allow.
const WrapFlag = 0x01

// stackableOnlyOnNewer is keyed by a tool's Data1[2] byte and
// lists the tool kinds that became stackable starting with the V3
// generation, matching spec §4.5's "some tool kinds are stackable only
// on newer versions."
var stackableOnlyOnNewer = map[byte]bool{
	0x04: true, // Monogrinder and kin, made stackable from V3 onward
	0x05: true,
}

// IsStackable reports whether it can stack with like items when read
// by version v.
func (it Item) IsStackable(v version.Version) bool {
	if it.IsWrapped() {
		return false
	}
	switch it.Kind() {
	case KindMeseta:
		return true
	case KindTool:
		if stackableOnlyOnNewer[it.Data1[2]] {
			return version.IsV3(v) || version.IsV4(v)
		}
		return true
	default:
		return false
	}
}

// IsWrapped reports whether the wrap bit is set on a tool item.
func (it Item) IsWrapped() bool {
	return it.Kind() == KindTool && it.Data1[3]&WrapFlag != 0
}

// Wrap and Unwrap set or clear the wrap bit; they are no-ops on
// non-tool items.
func (it *Item) Wrap() {
	if it.Kind() == KindTool {
		it.Data1[3] |= WrapFlag
	}
}

func (it *Item) Unwrap() {
	if it.Kind() == KindTool {
		it.Data1[3] &^= WrapFlag
	}
}

// MaxStackSize returns the largest stack count it may carry under
// version v: 99 for meseta-as-item, 10 for most stackable tools, 1 for
// anything non-stackable.
func (it Item) MaxStackSize(v version.Version) int {
	if !it.IsStackable(v) {
		return 1
	}
	if it.Kind() == KindMeseta {
		return 99
	}
	return 10
}

// StackSize returns the current stack count carried in Data1[5] for
// tool items (the "CC" byte in the wire layout comment), or 1 for
// every other kind.
func (it Item) StackSize() int {
	if it.Kind() != KindTool {
		return 1
	}
	if it.Data1[5] == 0 {
		return 1
	}
	return int(it.Data1[5])
}

// SetStackSize writes n into the tool stack-count byte; it is a no-op
// on non-tool items.
func (it *Item) SetStackSize(n int) {
	if it.Kind() != KindTool {
		return
	}
	it.Data1[5] = byte(n)
}

// Split removes n units from it and returns a new Item carrying them,
// leaving the remainder on it, per spec §8 scenario 3 ("split a stack
// of 5 mates into 2+3"). The new item starts with UnassignedID until
// the caller assigns one from the recipient's own id allocator — it is
// never a real inventory item until that happens, same convention as
// shop.GenerateOffers uses for freshly-minted offers. Splitting a
// non-tool (StackSize always reports 1 for those) always fails.
func (it *Item) Split(n int) (Item, error) {
	current := it.StackSize()
	if it.Kind() != KindTool || n <= 0 || n >= current {
		return Item{}, ErrCannotSplit
	}
	other := *it
	other.ID = UnassignedID
	other.SetStackSize(n)
	it.SetStackSize(current - n)
	return other, nil
}

// EnforceMinStackSize clamps the stored stack count up to 1 if it was
// left at zero, which some older clients do for a freshly-created
// single tool.
func (it *Item) EnforceMinStackSize(v version.Version) {
	if it.Kind() == KindTool && it.Data1[5] == 0 {
		it.Data1[5] = 1
	}
}
