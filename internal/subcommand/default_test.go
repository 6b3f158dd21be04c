package subcommand

import (
	"testing"

	"github.com/quietloop/archon/internal/lobby"
)

func TestDefaultTable_RegistersEachFamily(t *testing.T) {
	table := DefaultTable(DefaultConfig{ExpModeFactor: 1.0, ExpEpisode: 1})

	// Family 3 (0x6B/0x6D/0x71 and kin) is deliberately absent here: it is
	// handled by gameSession.handleLoadState outside this table (see
	// internal/subcommand/default.go's comment on the gap).
	for _, final := range []uint8{0x05, 0x23, 0x42, 0x4E, 0xC8, 0x74, 0xB5, 0x27, 0x29, 0x5D, 0xC4, 0xB8, 0xD6} {
		if entry := table.Lookup(final); entry == nil || entry.Handler == nil {
			t.Fatalf("Lookup(%#x) = nil, want a registered entry", final)
		}
	}
}

func TestDefaultTable_CardBattleRejectedOutsideEp3(t *testing.T) {
	table := DefaultTable(DefaultConfig{})
	l := lobby.New(1, "test")

	ctx := &Context{Lobby: l, Sender: Sender{Slot: 0}, OuterCmd: 0x60}
	_, _, err := table.Dispatch(ctx, 0xB5, NamespaceFinal, []byte{0xB5, 1, 0, 0})
	if err != nil {
		t.Fatalf("Dispatch() error = %v, want nil (ErrProtocol is swallowed)", err)
	}
}
