package player

import (
	"errors"

	"github.com/quietloop/archon/internal/item"
)

// MaxInventorySlots is the fixed number of item slots a character's
// inventory has, per spec §3.
const MaxInventorySlots = 30

// ErrInventoryFull means AddItem was called with no empty slot left.
var ErrInventoryFull = errors.New("player: inventory is full")

// ErrSlotEmpty means an operation targeted an inventory slot with no
// item in it.
var ErrSlotEmpty = errors.New("player: inventory slot is empty")

// ErrCannotEquipInSlot means an item was asked to equip into an
// EquipSlot its kind can't occupy.
var ErrCannotEquipInSlot = errors.New("player: item cannot be equipped in that slot")

// Inventory is a character's 30-slot item pack plus the material
// counters and language tag spec §3 groups with it.
type Inventory struct {
	Items    [MaxInventorySlots]item.Item
	NumItems int

	Equipped [MaxInventorySlots]bool

	HPMaterials uint8
	TPMaterials uint8
	Language    uint8

	equipSlotOwner map[item.EquipSlot]int
}

// NewInventory returns an Inventory with every slot marked empty.
func NewInventory() Inventory {
	inv := Inventory{equipSlotOwner: make(map[item.EquipSlot]int)}
	for i := range inv.Items {
		inv.Items[i].Clear()
	}
	return inv
}

func (inv *Inventory) ensureMap() {
	if inv.equipSlotOwner == nil {
		inv.equipSlotOwner = make(map[item.EquipSlot]int)
	}
}

func (inv *Inventory) recomputeNumItems() {
	n := 0
	for i := range inv.Items {
		if !inv.Items[i].Empty() {
			n++
		}
	}
	inv.NumItems = n
}

// AddItem places it into the first empty slot and returns that slot's
// index.
func (inv *Inventory) AddItem(it item.Item) (int, error) {
	for i := range inv.Items {
		if inv.Items[i].Empty() {
			inv.Items[i] = it
			inv.recomputeNumItems()
			return i, nil
		}
	}
	return -1, ErrInventoryFull
}

// RemoveItem clears slot idx and returns what was there, unequipping
// it first if it was equipped.
func (inv *Inventory) RemoveItem(idx int) (item.Item, error) {
	if idx < 0 || idx >= MaxInventorySlots || inv.Items[idx].Empty() {
		return item.Item{}, ErrSlotEmpty
	}
	removed := inv.Items[idx]
	inv.Unequip(idx)
	inv.Items[idx].Clear()
	inv.recomputeNumItems()
	return removed, nil
}

// Equip assigns the item at idx to slot, inferring slot from the
// item's type when slot is EquipSlotUnknown. If another item already
// occupies that equip slot, it is unequipped first.
func (inv *Inventory) Equip(idx int, slot item.EquipSlot) error {
	inv.ensureMap()
	if idx < 0 || idx >= MaxInventorySlots || inv.Items[idx].Empty() {
		return ErrSlotEmpty
	}
	it := inv.Items[idx]
	if slot == item.EquipSlotUnknown {
		slot = item.DefaultEquipSlot(it)
	}
	if !item.CanBeEquippedInSlot(it, slot) {
		return ErrCannotEquipInSlot
	}
	if owner, ok := inv.equipSlotOwner[slot]; ok && owner != idx {
		inv.Equipped[owner] = false
	}
	inv.equipSlotOwner[slot] = idx
	inv.Equipped[idx] = true
	return nil
}

// Unequip clears whatever equip-slot assignment idx currently holds,
// if any.
func (inv *Inventory) Unequip(idx int) {
	inv.ensureMap()
	inv.Equipped[idx] = false
	for slot, owner := range inv.equipSlotOwner {
		if owner == idx {
			delete(inv.equipSlotOwner, slot)
		}
	}
}
