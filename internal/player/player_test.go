package player

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/quietloop/archon/internal/item"
)

func TestInventory_AddRemoveItem(t *testing.T) {
	inv := NewInventory()
	weapon := item.Item{Data1: [12]byte{item.KindWeapon}, ID: 1}

	idx, err := inv.AddItem(weapon)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if inv.NumItems != 1 {
		t.Fatalf("NumItems = %d, want 1", inv.NumItems)
	}

	got, err := inv.RemoveItem(idx)
	if err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if diff := deep.Equal(got, weapon); diff != nil {
		t.Errorf("removed item mismatch: %v", diff)
	}
	if inv.NumItems != 0 {
		t.Fatalf("NumItems after remove = %d, want 0", inv.NumItems)
	}
}

func TestInventory_AddItemFullReturnsError(t *testing.T) {
	inv := NewInventory()
	for i := 0; i < MaxInventorySlots; i++ {
		if _, err := inv.AddItem(item.Item{Data1: [12]byte{item.KindTool}, ID: uint32(i)}); err != nil {
			t.Fatalf("AddItem() #%d error = %v", i, err)
		}
	}
	if _, err := inv.AddItem(item.Item{Data1: [12]byte{item.KindTool}}); err != ErrInventoryFull {
		t.Fatalf("AddItem() on full inventory: err = %v, want ErrInventoryFull", err)
	}
}

func TestInventory_EquipUnequipsPreviousOccupant(t *testing.T) {
	inv := NewInventory()
	weaponA, _ := inv.AddItem(item.Item{Data1: [12]byte{item.KindWeapon}, ID: 1})
	weaponB, _ := inv.AddItem(item.Item{Data1: [12]byte{item.KindWeapon}, ID: 2})

	if err := inv.Equip(weaponA, item.EquipSlotUnknown); err != nil {
		t.Fatalf("Equip(A) error = %v", err)
	}
	if !inv.Equipped[weaponA] {
		t.Fatalf("weaponA not marked equipped")
	}

	if err := inv.Equip(weaponB, item.EquipSlotUnknown); err != nil {
		t.Fatalf("Equip(B) error = %v", err)
	}
	if inv.Equipped[weaponA] {
		t.Errorf("weaponA still marked equipped after weaponB took the slot")
	}
	if !inv.Equipped[weaponB] {
		t.Errorf("weaponB not marked equipped")
	}
}

func TestInventory_EquipRejectsWrongSlot(t *testing.T) {
	inv := NewInventory()
	weapon, _ := inv.AddItem(item.Item{Data1: [12]byte{item.KindWeapon}, ID: 1})
	if err := inv.Equip(weapon, item.EquipSlotArmor); err != ErrCannotEquipInSlot {
		t.Fatalf("Equip() into wrong slot: err = %v, want ErrCannotEquipInSlot", err)
	}
}

func TestBank_DepositWithdrawReassignsID(t *testing.T) {
	var bank Bank
	allocator := NewPlayerIDAllocator(0)

	original := item.Item{Data1: [12]byte{item.KindTool}, ID: 42}
	if err := bank.Deposit(original, 5); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if bank.Items[0].Item.ID != item.UnassignedID {
		t.Fatalf("deposited item kept its inventory id")
	}

	withdrawn, amount, err := bank.Withdraw(0, allocator)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if amount != 5 {
		t.Fatalf("withdraw amount = %d, want 5", amount)
	}
	if !allocator.Owns(withdrawn.ID) {
		t.Fatalf("withdrawn item id %x not in allocator's domain", withdrawn.ID)
	}
	if len(bank.Items) != 0 {
		t.Fatalf("bank still holds %d entries after withdrawal", len(bank.Items))
	}
}

func TestBank_DepositFullReturnsError(t *testing.T) {
	var bank Bank
	for i := 0; i < MaxBankItems; i++ {
		if err := bank.Deposit(item.Item{Data1: [12]byte{item.KindTool}}, 1); err != nil {
			t.Fatalf("Deposit() #%d error = %v", i, err)
		}
	}
	if err := bank.Deposit(item.Item{Data1: [12]byte{item.KindTool}}, 1); err != ErrBankFull {
		t.Fatalf("Deposit() on full bank: err = %v, want ErrBankFull", err)
	}
}

func TestQuestFlags_SetGetClear(t *testing.T) {
	var q QuestFlags
	if q.Get(2, 0x100) {
		t.Fatalf("flag set before Set() was called")
	}
	q.Set(2, 0x100)
	if !q.Get(2, 0x100) {
		t.Fatalf("Get() false after Set()")
	}
	if q.Get(1, 0x100) {
		t.Fatalf("flag leaked across difficulty tiers")
	}
	q.Clear(2, 0x100)
	if q.Get(2, 0x100) {
		t.Fatalf("flag still set after Clear()")
	}
}

func TestIDAllocator_PartitionsByPlayerSlot(t *testing.T) {
	a0 := NewPlayerIDAllocator(0)
	a1 := NewPlayerIDAllocator(1)

	id0 := a0.Next()
	id1 := a1.Next()

	if a0.Owns(id1) || a1.Owns(id0) {
		t.Fatalf("player id domains overlap: slot0=%x slot1=%x", id0, id1)
	}
	if !a0.Owns(id0) || !a1.Owns(id1) {
		t.Fatalf("allocator doesn't own its own issued id")
	}

	server := NewServerIDAllocator()
	serverID := server.Next()
	if a0.Owns(serverID) || a1.Owns(serverID) {
		t.Fatalf("server domain overlaps a player domain")
	}
}

func TestCharacter_EnterOverlayClearsBankAndChallengeMaterials(t *testing.T) {
	c := NewCharacter()
	if err := c.Bank.Deposit(item.Item{Data1: [12]byte{item.KindTool}}, 1); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	c.Inventory.HPMaterials = 5
	c.Inventory.TPMaterials = 5

	overlay := c.EnterOverlay(ModeChallenge)
	if len(overlay.Bank.Items) != 0 {
		t.Errorf("overlay inherited bank contents")
	}
	if overlay.Inventory.HPMaterials != 0 || overlay.Inventory.TPMaterials != 0 {
		t.Errorf("challenge overlay did not reset material counters")
	}
	if len(c.Bank.Items) != 1 {
		t.Errorf("real character's bank was mutated by entering an overlay")
	}

	if c.Active() != overlay {
		t.Errorf("Active() did not return the overlay")
	}
	c.ExitOverlay()
	if c.Active() != c {
		t.Errorf("Active() did not fall back to the real character after ExitOverlay")
	}
}
