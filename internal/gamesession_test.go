package internal

import (
	"testing"

	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/gamedata"
	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/lobby"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/player"
	"github.com/quietloop/archon/internal/wire"
)

// recordingIdentity is a lobby.ClientIdentity stub that records every
// Send call instead of writing to a real connection.
type recordingIdentity struct {
	sent []sentCommand
}

type sentCommand struct {
	cmd  uint16
	flag uint16
	body []byte
}

func (r *recordingIdentity) Version() uint8 { return 4 }

func (r *recordingIdentity) Send(cmd uint16, flag uint16, body []byte) error {
	r.sent = append(r.sent, sentCommand{cmd, flag, body})
	return nil
}

func newTestGameSession(t *testing.T, l *lobby.Lobby) (*gameSession, *recordingIdentity) {
	t.Helper()
	id := &recordingIdentity{}
	occ := &lobby.Occupant{ClientID: id, Character: player.NewCharacter(), State: lobby.JoinStateReady}
	slot, err := l.Join(occ)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	occ.NextItemIDs = player.NewPlayerIDAllocator(slot)

	ctrl := &Controller{itemCreator: gamedata.NewReferenceItemCreator()}
	gs := &gameSession{controller: ctrl, lobby: l, occupant: occ}
	return gs, id
}

func TestHandleEntityDrop_SharedServerBroadcastsOneEvent(t *testing.T) {
	l := lobby.New(1, "test")
	l.DropMode = lobby.DropModeSharedServer
	gs, id := newTestGameSession(t, l)

	req := packets.DropRequestSubcommand{
		Subcommand:  packets.SubEntityDropRequest,
		ClientID:    uint8(gs.occupant.Slot),
		EntityIndex: 42,
		Floor:       1,
		EntityKind:  0, // enemy
	}
	body, _ := wire.FromStruct(&req)

	gs.handleEntityDrop(frame.Command{ID: packets.CommandBroadcastSubcommand, Body: body})

	if len(id.sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1", len(id.sent))
	}
	var notify packets.DropItemNotification
	wire.ToStruct(id.sent[0].body, &notify)
	if notify.Item.Empty() {
		t.Fatalf("notified item is empty, want a generated item")
	}
	if len(l.Floor) != 1 {
		t.Fatalf("len(l.Floor) = %d, want 1 floor item placed", len(l.Floor))
	}
}

func TestHandleEntityDrop_AlreadyDroppedEntityIsIgnored(t *testing.T) {
	l := lobby.New(1, "test")
	l.DropMode = lobby.DropModeSharedServer
	gs, id := newTestGameSession(t, l)

	req := packets.DropRequestSubcommand{
		Subcommand:  packets.SubEntityDropRequest,
		ClientID:    uint8(gs.occupant.Slot),
		EntityIndex: 7,
		EntityKind:  0,
	}
	body, _ := wire.FromStruct(&req)
	cmd := frame.Command{ID: packets.CommandBroadcastSubcommand, Body: body}

	gs.handleEntityDrop(cmd)
	gs.handleEntityDrop(cmd)

	if len(id.sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1 (second request for the same entity must be ignored)", len(id.sent))
	}
}

func TestHandlePickUp_MovesFloorItemIntoInventory(t *testing.T) {
	l := lobby.New(1, "test")
	gs, id := newTestGameSession(t, l)

	var visible [lobby.MaxSlots]bool
	for i := range visible {
		visible[i] = true
	}
	fi := lobby.FloorItem{Item: item.Item{ID: 1234}, Floor: 2, Visible: visible, OwnerSlot: -1}
	l.AddFloorItem(fi)

	req := packets.PickUpRequestSubcommand{
		Subcommand: packets.SubPickUpItemRequest,
		ClientID:   uint8(gs.occupant.Slot),
		Floor:      2,
		ItemID:     1234,
	}
	body, _ := wire.FromStruct(&req)

	gs.handlePickUp(frame.Command{ID: packets.CommandBroadcastSubcommand, Body: body})

	if len(l.Floor) != 0 {
		t.Fatalf("len(l.Floor) = %d, want 0 after pick-up", len(l.Floor))
	}
	if len(id.sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1 pick-up notification", len(id.sent))
	}
}
