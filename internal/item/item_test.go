package item

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/quietloop/archon/internal/version"
)

func TestPrimaryIdentifier_RoundTripsThroughFromPrimaryIdentifier(t *testing.T) {
	tests := []Item{
		{Data1: [12]byte{KindWeapon, 0x01, 0x02}},
		{Data1: [12]byte{KindTool, 0x03, 0x04, 0, 0x05}},
		{Data1: [12]byte{KindMag, 0x00, 0x01}},
	}
	for _, it := range tests {
		pid := it.PrimaryIdentifier()
		rebuilt := FromPrimaryIdentifier(pid)
		if rebuilt.PrimaryIdentifier() != pid {
			t.Errorf("FromPrimaryIdentifier(%x).PrimaryIdentifier() = %x, want %x", pid, rebuilt.PrimaryIdentifier(), pid)
		}
	}
}

func TestDefaultEquipSlot(t *testing.T) {
	tests := []struct {
		name string
		it   Item
		want EquipSlot
	}{
		{"weapon", Item{Data1: [12]byte{KindWeapon}}, EquipSlotWeapon},
		{"mag", Item{Data1: [12]byte{KindMag}}, EquipSlotMag},
		{"armor", Item{Data1: [12]byte{KindArmor, ArmorSubKindArmor}}, EquipSlotArmor},
		{"shield", Item{Data1: [12]byte{KindArmor, ArmorSubKindShield}}, EquipSlotShield},
		{"unit", Item{Data1: [12]byte{KindArmor, ArmorSubKindUnit}}, EquipSlotUnit1},
		{"meseta", Item{Data1: [12]byte{KindMeseta}}, EquipSlotUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultEquipSlot(tt.it); got != tt.want {
				t.Errorf("DefaultEquipSlot() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanBeEquippedInSlot_UnitAcceptsAnyUnitSlot(t *testing.T) {
	unit := Item{Data1: [12]byte{KindArmor, ArmorSubKindUnit}}
	for _, slot := range []EquipSlot{EquipSlotUnit1, EquipSlotUnit2, EquipSlotUnit3, EquipSlotUnit4} {
		if !CanBeEquippedInSlot(unit, slot) {
			t.Errorf("unit item rejected from slot %v", slot)
		}
	}
	if CanBeEquippedInSlot(unit, EquipSlotWeapon) {
		t.Errorf("unit item accepted into weapon slot")
	}
}

func TestIsStackable(t *testing.T) {
	meseta := Item{Data1: [12]byte{KindMeseta}}
	if !meseta.IsStackable(version.Final) {
		t.Errorf("meseta should always be stackable")
	}

	plainTool := Item{Data1: [12]byte{KindTool, 0, 0x01}}
	if !plainTool.IsStackable(version.V1) {
		t.Errorf("ordinary tool should be stackable on every version")
	}

	newerOnlyTool := Item{Data1: [12]byte{KindTool, 0, 0x04}}
	if newerOnlyTool.IsStackable(version.V2) {
		t.Errorf("V3-only-stackable tool reported stackable on V2")
	}
	if !newerOnlyTool.IsStackable(version.ConsoleA) {
		t.Errorf("V3-only-stackable tool reported non-stackable on console V3")
	}

	wrapped := plainTool
	wrapped.Wrap()
	if wrapped.IsStackable(version.V1) {
		t.Errorf("wrapped tool should never be stackable")
	}

	weapon := Item{Data1: [12]byte{KindWeapon}}
	if weapon.IsStackable(version.Final) {
		t.Errorf("weapons should never be stackable")
	}
}

func TestMaxStackSize(t *testing.T) {
	meseta := Item{Data1: [12]byte{KindMeseta}}
	if got := meseta.MaxStackSize(version.Final); got != 99 {
		t.Errorf("meseta MaxStackSize = %d, want 99", got)
	}

	tool := Item{Data1: [12]byte{KindTool, 0, 0x01}}
	if got := tool.MaxStackSize(version.V1); got != 10 {
		t.Errorf("tool MaxStackSize = %d, want 10", got)
	}

	weapon := Item{Data1: [12]byte{KindWeapon}}
	if got := weapon.MaxStackSize(version.Final); got != 1 {
		t.Errorf("weapon MaxStackSize = %d, want 1", got)
	}
}

func TestMagStatsRoundTrip(t *testing.T) {
	it := &Item{Data1: [12]byte{KindMag}}
	want := MagStats{Def: 1200, Pow: 400, Dex: 300, Mind: 100, Synchro: 90, IQ: 60, PhotonBlasts: pbCenter | pbRight, Color: 5}
	it.AssignMagStats(want)

	got := it.MagStats()
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("MagStats round trip mismatch: %v", diff)
	}
	if got.Level() != want.DefLevel()+want.PowLevel()+want.DexLevel()+want.MindLevel() {
		t.Errorf("Level() inconsistent with per-stat levels")
	}
}

func TestMagStats_SynchroClampedAtAssignment(t *testing.T) {
	it := &Item{Data1: [12]byte{KindMag}}
	it.AssignMagStats(MagStats{Synchro: 200})
	if got := it.MagStats().Synchro; got != 120 {
		t.Errorf("Synchro = %d, want clamped to 120", got)
	}
}

func TestDecodeEncodeForVersion_BigEndianMagByteSwap(t *testing.T) {
	canonical := Item{Data1: [12]byte{KindMag}, Data2: [4]byte{0x01, 0x02, 0x03, 0x04}}

	sentFromConsole := canonical
	EncodeForVersion(&sentFromConsole, version.ConsoleA)
	if diff := deep.Equal(sentFromConsole.Data2, [4]byte{0x04, 0x03, 0x02, 0x01}); diff != nil {
		t.Errorf("console-bound mag Data2 not byte-swapped: %v", diff)
	}

	receivedFromConsole := sentFromConsole
	DecodeForVersion(&receivedFromConsole, version.ConsoleA)
	if diff := deep.Equal(receivedFromConsole.Data2, canonical.Data2); diff != nil {
		t.Errorf("decode did not undo the console byte swap: %v", diff)
	}
}

func TestDecodeEncodeForVersion_V2MagPacking(t *testing.T) {
	it := &Item{Data1: [12]byte{KindMag}}
	want := MagStats{Def: 800, Pow: 400, Dex: 300, Mind: 100, Synchro: 90, IQ: 60, Color: 5}
	it.AssignMagStats(want)

	EncodeForVersion(it, version.V2)
	DecodeForVersion(it, version.V2)

	got := it.MagStats()
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("V2 mag pack/unpack round trip mismatch (stats chosen on 4-point boundaries): %v", diff)
	}
}

func TestClearProducesEmptySlot(t *testing.T) {
	it := Item{Data1: [12]byte{KindWeapon, 1, 2}, ID: 5}
	it.Clear()
	if !it.Empty() {
		t.Errorf("Clear() did not produce an empty item")
	}
	if it.ID != UnassignedID {
		t.Errorf("Clear() left ID = %x, want UnassignedID", it.ID)
	}
}
