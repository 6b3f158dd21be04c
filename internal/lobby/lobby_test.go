package lobby

import (
	"testing"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/player"
)

type stubIdentity struct{ version uint8 }

func (s stubIdentity) Version() uint8 { return s.version }

func (s stubIdentity) Send(cmd uint16, flag uint16, body []byte) error { return nil }

func newJoinedLobby(t *testing.T, n int) *Lobby {
	t.Helper()
	l := New(1, "test")
	for i := 0; i < n; i++ {
		occ := &Occupant{ClientID: stubIdentity{version: 4}, Character: player.NewCharacter(), State: JoinStateReady}
		if _, err := l.Join(occ); err != nil {
			t.Fatalf("Join() error = %v", err)
		}
	}
	return l
}

func allVisible() (v [MaxSlots]bool) {
	for i := range v {
		v[i] = true
	}
	return v
}

func TestPickUp_ItemNotFound(t *testing.T) {
	l := newJoinedLobby(t, 1)

	_, err := l.PickUp(0, 9999)
	if err != ErrItemNotFound {
		t.Fatalf("PickUp() error = %v, want ErrItemNotFound", err)
	}
}

func TestPickUp_NotVisibleToRequester(t *testing.T) {
	l := newJoinedLobby(t, 2)
	var visible [MaxSlots]bool
	visible[1] = true // visible only to slot 1, not slot 0
	l.AddFloorItem(FloorItem{Item: item.Item{ID: 1}, Visible: visible, OwnerSlot: -1})

	_, err := l.PickUp(0, 1)
	if err != ErrNotVisible {
		t.Fatalf("PickUp() error = %v, want ErrNotVisible", err)
	}
	if len(l.Floor) != 1 {
		t.Fatalf("len(l.Floor) = %d, want 1 (rejected pick-up must not remove the floor item)", len(l.Floor))
	}
}

func TestPickUp_InventoryFull(t *testing.T) {
	l := newJoinedLobby(t, 1)
	occ := l.Occupants[0]
	for i := 0; i < player.MaxInventorySlots; i++ {
		if _, err := occ.Character.Active().Inventory.AddItem(item.Item{ID: uint32(100 + i)}); err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
	}
	l.AddFloorItem(FloorItem{Item: item.Item{ID: 1}, Visible: allVisible(), OwnerSlot: -1})

	_, err := l.PickUp(0, 1)
	if err != ErrInventoryFull {
		t.Fatalf("PickUp() error = %v, want ErrInventoryFull", err)
	}
	if len(l.Floor) != 1 {
		t.Fatalf("len(l.Floor) = %d, want 1 (rejected pick-up must not remove the floor item)", len(l.Floor))
	}
}

func TestPickUp_MovesFloorItemIntoInventoryAndRemovesFromFloor(t *testing.T) {
	l := newJoinedLobby(t, 1)
	l.AddFloorItem(FloorItem{Item: item.Item{ID: 42}, Floor: 3, Visible: allVisible(), OwnerSlot: -1})

	outcome, err := l.PickUp(0, 42)
	if err != nil {
		t.Fatalf("PickUp() error = %v", err)
	}
	if outcome.Item.Item.ID != 42 {
		t.Fatalf("outcome.Item.Item.ID = %d, want 42", outcome.Item.Item.ID)
	}
	if len(l.Floor) != 0 {
		t.Fatalf("len(l.Floor) = %d, want 0", len(l.Floor))
	}
	occ := l.Occupants[0]
	if occ.Character.Active().Inventory.Items[outcome.InventorySlot].ID != 42 {
		t.Fatalf("inventory slot %d does not hold the picked-up item", outcome.InventorySlot)
	}
}

func TestPickUp_UnoccupiedSlotIsRejected(t *testing.T) {
	l := newJoinedLobby(t, 1)
	l.AddFloorItem(FloorItem{Item: item.Item{ID: 1}, Visible: allVisible(), OwnerSlot: -1})

	if _, err := l.PickUp(5, 1); err != ErrSlotEmpty {
		t.Fatalf("PickUp() error = %v, want ErrSlotEmpty", err)
	}
}

func TestJoinElectsFirstOccupantLeader(t *testing.T) {
	l := New(1, "test")
	occ := &Occupant{ClientID: stubIdentity{version: 4}, Character: player.NewCharacter()}
	if _, err := l.Join(occ); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if l.LeaderID != 0 {
		t.Fatalf("LeaderID = %d, want 0", l.LeaderID)
	}
}

func TestLeaveReelectsLeader(t *testing.T) {
	l := newJoinedLobby(t, 2)
	if err := l.Leave(0); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if l.LeaderID != 1 {
		t.Fatalf("LeaderID = %d, want 1 after the leader leaves", l.LeaderID)
	}
}
