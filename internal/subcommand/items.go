package subcommand

import (
	"fmt"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/player"
	"github.com/quietloop/archon/internal/wire"
)

// findByID returns the inventory slot index holding id, or -1.
func findByID(inv *player.Inventory, id uint32) int {
	for i := range inv.Items {
		if !inv.Items[i].Empty() && inv.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func activeInventory(ctx *Context) *player.Inventory {
	occ := ctx.Lobby.Occupants[ctx.Sender.Slot]
	if occ == nil || occ.Character == nil {
		return nil
	}
	return &occ.Character.Active().Inventory
}

// UseItem is family 4's 6x27: consumes the named item in place,
// mirroring original_source's on_use_item ("mutate, then
// forward_subcommand unchanged"). Consumption itself (potion effects,
// tech disks, grinders) is outside this package's scope (spec §1's
// item-parameter-table Non-goal covers what a tool *does*); here a
// use decrements a stackable tool's count by one, or destroys a
// single-count item outright.
func UseItem(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: short use-item subcommand", ErrProtocol)
	}
	var u packets.UseItemSubcommand
	wire.ToStruct(body, &u)
	if int(u.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: use-item client id mismatch", ErrProtocol)
	}
	inv := activeInventory(ctx)
	if inv == nil {
		return nil, nil
	}
	idx := findByID(inv, u.ItemID)
	if idx < 0 {
		ctx.logf("subcommand: use-item %08x not found for slot %d", u.ItemID, ctx.Sender.Slot)
		return nil, nil
	}
	consumeOne(&inv.Items[idx])
	return body, nil
}

func consumeOne(it *item.Item) {
	if it.StackSize() > 1 {
		it.SetStackSize(it.StackSize() - 1)
		return
	}
	it.Clear()
}

// FeedMag is family 4's 6x28: applies a flat attribute bump to the
// named Mag from the named feed item, the server-side half of what
// original_source's player_feed_mag does before the client's own
// follow-up 6x29 destroys the consumed item.
func FeedMag(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("%w: short feed-mag subcommand", ErrProtocol)
	}
	var f packets.FeedMagSubcommand
	wire.ToStruct(body, &f)
	if int(f.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: feed-mag client id mismatch", ErrProtocol)
	}
	inv := activeInventory(ctx)
	if inv == nil {
		return nil, nil
	}
	magIdx := findByID(inv, f.MagItemID)
	if magIdx < 0 || inv.Items[magIdx].Kind() != item.KindMag {
		ctx.logf("subcommand: feed-mag target %08x is not a mag for slot %d", f.MagItemID, ctx.Sender.Slot)
		return nil, nil
	}
	mag := &inv.Items[magIdx]
	stats := mag.MagStats()
	const feedBump = 2
	stats.Def += feedBump
	mag.AssignMagStats(stats)
	return body, nil
}

// DestroyItem is family 4's 6x29: removes Amount units of the named
// item, deleting the slot outright once its count reaches zero.
func DestroyItem(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("%w: short destroy-item subcommand", ErrProtocol)
	}
	var d packets.DestroyItemSubcommand
	wire.ToStruct(body, &d)
	if int(d.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: destroy-item client id mismatch", ErrProtocol)
	}
	inv := activeInventory(ctx)
	if inv == nil {
		return nil, nil
	}
	idx := findByID(inv, d.ItemID)
	if idx < 0 {
		ctx.logf("subcommand: destroy-item %08x not found for slot %d", d.ItemID, ctx.Sender.Slot)
		return nil, nil
	}
	it := &inv.Items[idx]
	remaining := it.StackSize() - int(d.Amount)
	if remaining <= 0 {
		inv.RemoveItem(idx)
	} else {
		it.SetStackSize(remaining)
	}
	return body, nil
}

// SplitStack is family 4's 6x5D (spec §8 scenario 3): splits Amount
// units off the named stack, assigning the split-off portion a fresh
// id from the sender's own per-player allocator before forwarding
// unchanged so peers create the new inventory icon on their own
// displays.
func SplitStack(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("%w: short split-stack subcommand", ErrProtocol)
	}
	var s packets.SplitStackSubcommand
	wire.ToStruct(body, &s)
	if int(s.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: split-stack client id mismatch", ErrProtocol)
	}
	occ := ctx.Lobby.Occupants[ctx.Sender.Slot]
	if occ == nil || occ.Character == nil {
		return nil, nil
	}
	inv := &occ.Character.Active().Inventory
	idx := findByID(inv, s.ItemID)
	if idx < 0 {
		ctx.logf("subcommand: split-stack %08x not found for slot %d", s.ItemID, ctx.Sender.Slot)
		return nil, nil
	}
	split, err := inv.Items[idx].Split(int(s.Amount))
	if err != nil {
		ctx.logf("subcommand: split-stack rejected for slot %d: %v", ctx.Sender.Slot, err)
		return nil, nil
	}
	if occ.NextItemIDs != nil {
		split.ID = occ.NextItemIDs.Next()
	}
	if _, err := inv.AddItem(split); err != nil {
		// No room for the split-off portion: undo the split rather than
		// losing it (spec §7's "restore and drop" convention, mirrored
		// from lobby.PickUp's own failure handling).
		inv.Items[idx].SetStackSize(inv.Items[idx].StackSize() + int(s.Amount))
		return nil, nil
	}
	return body, nil
}

// SortInventory is family 4's 6xC4: reorders the sender's inventory
// slots to match the client-chosen ItemIDs order, leaving any id not
// found (or zero, a placeholder for an empty slot) as an empty slot.
func SortInventory(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 4+30*4 {
		return nil, fmt.Errorf("%w: short sort-inventory subcommand", ErrProtocol)
	}
	var s packets.SortInventorySubcommand
	wire.ToStruct(body, &s)
	if int(s.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: sort-inventory client id mismatch", ErrProtocol)
	}
	inv := activeInventory(ctx)
	if inv == nil {
		return nil, nil
	}
	var reordered [player.MaxInventorySlots]item.Item
	for i := range reordered {
		reordered[i].Clear()
	}
	for slot, id := range s.ItemIDs {
		if id == 0 || slot >= player.MaxInventorySlots {
			continue
		}
		if idx := findByID(inv, id); idx >= 0 {
			reordered[slot] = inv.Items[idx]
		}
	}
	inv.Items = reordered
	return body, nil
}

// WrapItem is family 4's 6xD6: toggles the named tool's wrap bit.
func WrapItem(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: short wrap-item subcommand", ErrProtocol)
	}
	var w packets.WrapItemSubcommand
	wire.ToStruct(body, &w)
	if int(w.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: wrap-item client id mismatch", ErrProtocol)
	}
	inv := activeInventory(ctx)
	if inv == nil {
		return nil, nil
	}
	idx := findByID(inv, w.ItemID)
	if idx < 0 {
		return nil, nil
	}
	it := &inv.Items[idx]
	if it.IsWrapped() {
		it.Unwrap()
	} else {
		it.Wrap()
	}
	return body, nil
}

// IdentifyItem is family 4's 6xB8: original_source's on_identify_item_bb
// runs the named item through a tekker table and stashes the preview
// result pending a following 6xBA accept. The tekker table itself is
// the out-of-scope item-parameter-table collaborator (spec §1); this
// handler only validates that the named item exists and forwards the
// request so a real tekker-table-backed server can apply its own
// deltas downstream of this dispatch table.
func IdentifyItem(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: short identify-item subcommand", ErrProtocol)
	}
	var req packets.IdentifyItemSubcommand
	wire.ToStruct(body, &req)
	if int(req.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: identify-item client id mismatch", ErrProtocol)
	}
	inv := activeInventory(ctx)
	if inv == nil || findByID(inv, req.ItemID) < 0 {
		ctx.logf("subcommand: identify-item %08x not found for slot %d", req.ItemID, ctx.Sender.Slot)
		return nil, nil
	}
	return body, nil
}

// AcceptIdentify is family 4's 6xBA: commits to the previously
// previewed identify result. Without a tekker table wired in (see
// IdentifyItem) there is no pending result to commit, so this is a
// pass-through forward whose real effect arrives once a tekker-
// table-backed IdentifyItem implementation is wired ahead of it in the
// table.
func AcceptIdentify(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: short accept-identify subcommand", ErrProtocol)
	}
	var req packets.AcceptIdentifySubcommand
	wire.ToStruct(body, &req)
	if int(req.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: accept-identify client id mismatch", ErrProtocol)
	}
	return body, nil
}
