package lobby

import "errors"

// ErrItemNotFound means a pick-up request named a floor item id this
// lobby doesn't have.
var ErrItemNotFound = errors.New("lobby: floor item not found")

// ErrNotVisible means the requesting slot cannot see the named floor
// item (per its visibility bitmask) and the pick-up must be rejected.
var ErrNotVisible = errors.New("lobby: floor item not visible to requester")

// ErrInventoryFull means the requester's inventory had no room, so the
// floor item must be restored rather than removed.
var ErrInventoryFull = errors.New("lobby: requester inventory is full")

// PickupOutcome tells the caller which notification shape to send to
// each other occupant, per spec §4.6: those who could already see the
// item get a "picked up" event, those who couldn't get a synthesized
// "create inventory item" event so their own UI stays consistent.
type PickupOutcome struct {
	Item         FloorItem
	InventorySlot int
	SawItOnFloor  [MaxSlots]bool
}

// AddFloorItem drops it into the lobby's floor set at the given
// position, visible to the slots set true in visible.
func (l *Lobby) AddFloorItem(fi FloorItem) *FloorItem {
	stored := fi
	l.Floor = append(l.Floor, &stored)
	return &stored
}

func (l *Lobby) findFloorItem(id uint32) (int, *FloorItem) {
	for i, fi := range l.Floor {
		if fi.Item.ID == id {
			return i, fi
		}
	}
	return -1, nil
}

// PickUp is the server-adjudicated pick-up path (spec §4.6): validates
// the item exists and is visible to requester, that their inventory
// has room, then moves it from the floor into their inventory. On any
// failure the floor is left untouched ("restore and drop") and an
// error is returned; callers on the server-authoritative version
// (Final) use this directly, others use it only to keep server-side
// bookkeeping consistent with a client-leader's own adjudication.
func (l *Lobby) PickUp(requesterSlot int, itemID uint32) (*PickupOutcome, error) {
	occ := l.Occupants[requesterSlot]
	if occ == nil {
		return nil, ErrSlotEmpty
	}
	idx, fi := l.findFloorItem(itemID)
	if fi == nil {
		return nil, ErrItemNotFound
	}
	if !fi.Visible[requesterSlot] {
		return nil, ErrNotVisible
	}
	slot, err := occ.Character.Active().Inventory.AddItem(fi.Item)
	if err != nil {
		return nil, ErrInventoryFull
	}

	outcome := &PickupOutcome{Item: *fi, InventorySlot: slot, SawItOnFloor: fi.Visible}
	l.Floor = append(l.Floor[:idx], l.Floor[idx+1:]...)
	return outcome, nil
}
