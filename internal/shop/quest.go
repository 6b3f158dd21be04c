package shop

import (
	"errors"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/player"
)

// ErrPreconditionFailed means a quest hook's precondition check
// rejected the request; callers fire the failure function id rather
// than the success one.
var ErrPreconditionFailed = errors.New("shop: quest hook precondition failed")

// FunctionCallResult is what a quest hook reports back so the caller
// can fire the matching "quest function call" id into the running
// quest script, per spec §4.7.
type FunctionCallResult struct {
	Success      bool
	FunctionID   uint16
}

// ItemExchange trades FromPID for ToItem if character holds at least
// one of FromPID, consuming it and adding the replacement.
func ItemExchange(character *player.Character, fromPID uint32, toItem item.Item, allocator *player.IDAllocator, successFn, failFn uint16) FunctionCallResult {
	active := character.Active()
	idx := findByPID(active, fromPID)
	if idx < 0 {
		return FunctionCallResult{Success: false, FunctionID: failFn}
	}
	active.Inventory.RemoveItem(idx)
	toItem.ID = allocator.Next()
	if _, err := active.Inventory.AddItem(toItem); err != nil {
		return FunctionCallResult{Success: false, FunctionID: failFn}
	}
	return FunctionCallResult{Success: true, FunctionID: successFn}
}

// AttributeUpgrade applies a flat stat delta to the Mag at invSlot,
// used by the quest-driven Mag feeding/upgrade hooks.
func AttributeUpgrade(character *player.Character, invSlot int, deltaDEF, deltaPOW, deltaDEX, deltaMIND int16, successFn, failFn uint16) FunctionCallResult {
	active := character.Active()
	if invSlot < 0 || invSlot >= player.MaxInventorySlots || active.Inventory.Items[invSlot].Kind() != item.KindMag {
		return FunctionCallResult{Success: false, FunctionID: failFn}
	}
	it := &active.Inventory.Items[invSlot]
	mag := it.MagStats()
	mag.Def = clampStat(mag.Def, deltaDEF)
	mag.Pow = clampStat(mag.Pow, deltaPOW)
	mag.Dex = clampStat(mag.Dex, deltaDEX)
	mag.Mind = clampStat(mag.Mind, deltaMIND)
	it.AssignMagStats(mag)
	return FunctionCallResult{Success: true, FunctionID: successFn}
}

func clampStat(v uint16, delta int16) uint16 {
	n := int32(v) + int32(delta)
	if n < 0 {
		return 0
	}
	if n > 65535 {
		return 65535
	}
	return uint16(n)
}

// PhotonDropConversion converts count Photon Drops into toItem,
// consuming the drops from the character's inventory by primary
// identifier.
func PhotonDropConversion(character *player.Character, photonDropPID uint32, count int, toItem item.Item, allocator *player.IDAllocator, successFn, failFn uint16) FunctionCallResult {
	active := character.Active()
	remaining := count
	for remaining > 0 {
		idx := findByPID(active, photonDropPID)
		if idx < 0 {
			return FunctionCallResult{Success: false, FunctionID: failFn}
		}
		it := &active.Inventory.Items[idx]
		if n := it.StackSize(); n > remaining {
			it.SetStackSize(n - remaining)
			remaining = 0
		} else {
			active.Inventory.RemoveItem(idx)
			remaining -= n
		}
	}
	toItem.ID = allocator.Next()
	if _, err := active.Inventory.AddItem(toItem); err != nil {
		return FunctionCallResult{Success: false, FunctionID: failFn}
	}
	return FunctionCallResult{Success: true, FunctionID: successFn}
}

// LotteryResultHint draws a result array from pool per spec §9's Open
// Question decision: no deduplication when len(pool) > 1, filled with
// 1 when there's exactly one entry. draw must be supplied by the
// caller (a uniform-random index generator) to keep this package free
// of any Date.now()/rand dependency on its own state.
func LotteryResultHint(pool []uint32, n int, draw func(max int) int) []uint32 {
	hints := make([]uint32, n)
	if len(pool) == 1 {
		for i := range hints {
			hints[i] = 1
		}
		return hints
	}
	for i := range hints {
		if len(pool) == 0 {
			continue
		}
		hints[i] = pool[draw(len(pool))]
	}
	return hints
}

// GallonPlanPrize and MesetaSlotPrize are the two other quest-driven
// item awards spec §4.7 names; both report through FunctionCallResult
// like ItemExchange, but make a single unconditional grant rather than
// a consume-then-grant trade.
func GallonPlanPrize(character *player.Character, prize item.Item, allocator *player.IDAllocator, successFn, failFn uint16) FunctionCallResult {
	return grant(character, prize, allocator, successFn, failFn)
}

func MesetaSlotPrize(character *player.Character, prize item.Item, allocator *player.IDAllocator, successFn, failFn uint16) FunctionCallResult {
	return grant(character, prize, allocator, successFn, failFn)
}

func grant(character *player.Character, prize item.Item, allocator *player.IDAllocator, successFn, failFn uint16) FunctionCallResult {
	active := character.Active()
	prize.ID = allocator.Next()
	if _, err := active.Inventory.AddItem(prize); err != nil {
		return FunctionCallResult{Success: false, FunctionID: failFn}
	}
	return FunctionCallResult{Success: true, FunctionID: successFn}
}

func findByPID(active *player.Character, pid uint32) int {
	for i := range active.Inventory.Items {
		it := active.Inventory.Items[i]
		if !it.Empty() && it.PrimaryIdentifier() == pid {
			return i
		}
	}
	return -1
}
