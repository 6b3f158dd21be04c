package shop

import (
	"testing"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/player"
)

func TestPurchase_DebitsMesetaAndAssignsFreshID(t *testing.T) {
	character := player.NewCharacter()
	character.Display.Meseta = 100
	allocator := player.NewServerIDAllocator()
	sess := &Session{Offers: []Offer{
		{Item: item.Item{Data1: [12]byte{item.KindTool}, ID: item.UnassignedID}, Price: 60},
	}}

	bought, err := Purchase(sess, 0, character, allocator)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if bought.ID == item.UnassignedID {
		t.Fatalf("Purchase() left the item's id unassigned")
	}
	if character.Display.Meseta != 40 {
		t.Fatalf("Meseta = %d, want 40", character.Display.Meseta)
	}
	if character.Inventory.NumItems != 1 {
		t.Fatalf("NumItems = %d, want 1", character.Inventory.NumItems)
	}
}

func TestPurchase_NoSuchOfferIsRejected(t *testing.T) {
	character := player.NewCharacter()
	allocator := player.NewServerIDAllocator()
	sess := &Session{Offers: []Offer{{Item: item.Item{Data1: [12]byte{item.KindTool}}, Price: 10}}}

	if _, err := Purchase(sess, 5, character, allocator); err != ErrNoSuchOffer {
		t.Fatalf("Purchase() error = %v, want ErrNoSuchOffer", err)
	}
}

func TestPurchase_InsufficientMesetaIsRejected(t *testing.T) {
	character := player.NewCharacter()
	character.Display.Meseta = 10
	allocator := player.NewServerIDAllocator()
	sess := &Session{Offers: []Offer{{Item: item.Item{Data1: [12]byte{item.KindTool}}, Price: 100}}}

	if _, err := Purchase(sess, 0, character, allocator); err != ErrInsufficientMeseta {
		t.Fatalf("Purchase() error = %v, want ErrInsufficientMeseta", err)
	}
	if character.Display.Meseta != 10 {
		t.Fatalf("Meseta = %d, want unchanged 10 on rejected purchase", character.Display.Meseta)
	}
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	character := player.NewCharacter()
	allocator := player.NewServerIDAllocator()
	invSlot, err := character.Inventory.AddItem(item.Item{Data1: [12]byte{item.KindWeapon}, ID: allocator.Next()})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	if err := Deposit(character, invSlot, 1); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if character.Inventory.NumItems != 0 {
		t.Fatalf("NumItems after deposit = %d, want 0", character.Inventory.NumItems)
	}
	if len(character.Bank.Items) != 1 {
		t.Fatalf("len(Bank.Items) = %d, want 1", len(character.Bank.Items))
	}

	withdrawn, err := Withdraw(character, 0, allocator)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if withdrawn.ID == item.UnassignedID {
		t.Fatalf("Withdraw() left the item's id unassigned")
	}
	if character.Inventory.NumItems != 1 {
		t.Fatalf("NumItems after withdraw = %d, want 1", character.Inventory.NumItems)
	}
	if len(character.Bank.Items) != 0 {
		t.Fatalf("len(Bank.Items) after withdraw = %d, want 0", len(character.Bank.Items))
	}
}

func TestWithdraw_InvalidSlotIsRejected(t *testing.T) {
	character := player.NewCharacter()
	allocator := player.NewServerIDAllocator()

	if _, err := Withdraw(character, 0, allocator); err != player.ErrBankSlotInvalid {
		t.Fatalf("Withdraw() error = %v, want ErrBankSlotInvalid", err)
	}
}

func TestItemExchange_ConsumesFromItemAndGrantsToItem(t *testing.T) {
	character := player.NewCharacter()
	allocator := player.NewServerIDAllocator()
	fromPID := item.FromPrimaryIdentifier(0x030001).PrimaryIdentifier()
	if _, err := character.Inventory.AddItem(item.FromPrimaryIdentifier(0x030001)); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	result := ItemExchange(character, fromPID, item.Item{Data1: [12]byte{item.KindWeapon}}, allocator, 1, 2)
	if !result.Success || result.FunctionID != 1 {
		t.Fatalf("ItemExchange() = %+v, want success with FunctionID 1", result)
	}
	if character.Inventory.NumItems != 1 {
		t.Fatalf("NumItems = %d, want 1 (consumed one, granted one)", character.Inventory.NumItems)
	}
}

func TestItemExchange_MissingFromItemFiresFailFn(t *testing.T) {
	character := player.NewCharacter()
	allocator := player.NewServerIDAllocator()

	result := ItemExchange(character, 0x030001, item.Item{Data1: [12]byte{item.KindWeapon}}, allocator, 1, 2)
	if result.Success || result.FunctionID != 2 {
		t.Fatalf("ItemExchange() = %+v, want failure with FunctionID 2", result)
	}
}
