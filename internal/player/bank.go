package player

import (
	"errors"

	"github.com/quietloop/archon/internal/item"
)

// MaxBankItems is the largest number of distinct item entries a bank
// can hold, per spec §3.
const MaxBankItems = 200

// ErrBankFull means Deposit was called with the bank already at
// MaxBankItems entries.
var ErrBankFull = errors.New("player: bank is full")

// ErrBankSlotInvalid means an operation targeted a bank entry index
// outside the current entry list.
var ErrBankSlotInvalid = errors.New("player: bank slot index out of range")

// BankEntry is one bank line: an item plus the amount field bank
// entries carry that inventory items don't.
type BankEntry struct {
	Item   item.Item
	Amount uint32
}

// Bank is a character's meseta-plus-items store, independent of the
// 30-slot inventory and holding up to MaxBankItems entries.
type Bank struct {
	Meseta uint32
	Items  []BankEntry
}

// Deposit appends it to the bank with the given amount, clearing its
// id (bank entries are regenerated fresh ids on withdrawal, not
// carried over from the inventory side).
func (b *Bank) Deposit(it item.Item, amount uint32) error {
	if len(b.Items) >= MaxBankItems {
		return ErrBankFull
	}
	it.ID = item.UnassignedID
	b.Items = append(b.Items, BankEntry{Item: it, Amount: amount})
	return nil
}

// Withdraw removes the entry at idx, assigns it a fresh id from
// allocator, and returns the resulting inventory-ready item and its
// amount.
func (b *Bank) Withdraw(idx int, allocator *IDAllocator) (item.Item, uint32, error) {
	if idx < 0 || idx >= len(b.Items) {
		return item.Item{}, 0, ErrBankSlotInvalid
	}
	entry := b.Items[idx]
	entry.Item.ID = allocator.Next()
	b.Items = append(b.Items[:idx], b.Items[idx+1:]...)
	return entry.Item, entry.Amount, nil
}
