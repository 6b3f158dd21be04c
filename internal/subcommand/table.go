// Package subcommand implements the table-driven dispatcher spec §4.4
// describes: a 256-entry table keyed by the Final subcommand number,
// PreA/PreB numbering aliases with reverse lookup, per-subcommand
// forwarding flags, and the generic private/broadcast/Ep3-gated
// delivery policy that wraps every handler.
package subcommand

// Flag is a bitmask of per-subcommand forwarding behaviors.
type Flag uint8

const (
	// AlwaysForwardToWatchers also copies the subcommand to any Ep3
	// spectator lobbies attached to the sender's game.
	AlwaysForwardToWatchers Flag = 1 << iota
	// AllowForwardToWatchedLobby lets a watcher-lobby occupant's copy
	// of this subcommand flow back to the primary game it spectates.
	AllowForwardToWatchedLobby
	// UseJoinCommandQueue buffers delivery to a recipient that is
	// still Loading instead of sending immediately.
	UseJoinCommandQueue
)

// Handler processes one inner subcommand payload already addressed to
// this table (the Final numbering). It receives the raw payload body
// (subcommand header included) and a Context describing the sender
// and outer-command shape; it mutates server state as needed and
// returns the bytes to forward (nil to drop the subcommand silently).
type Handler func(ctx *Context, body []byte) ([]byte, error)

// Entry is one subcommand's table row.
type Entry struct {
	Final   uint8
	PreA    uint8 // 0 if this subcommand has no PreA alias
	PreB    uint8 // 0 if this subcommand has no PreB alias
	Flags   Flag
	Handler Handler
}

// Table is the 256-entry dispatch table keyed by Final subcommand
// number, plus the two reverse maps built from it at construction.
type Table struct {
	entries      [256]*Entry
	finalFromPreA [256]uint8
	finalFromPreB [256]uint8
}

// NewTable builds a Table from entries, indexing by Final number and
// constructing both reverse (PreA/PreB → Final) lookup arrays.
func NewTable(entries []Entry) *Table {
	t := &Table{}
	for i := range entries {
		e := entries[i]
		t.entries[e.Final] = &e
		if e.PreA != 0 {
			t.finalFromPreA[e.PreA] = e.Final
		}
		if e.PreB != 0 {
			t.finalFromPreB[e.PreB] = e.Final
		}
	}
	return t
}

// Lookup returns the entry for a Final subcommand number, or nil if
// none is registered.
func (t *Table) Lookup(final uint8) *Entry {
	return t.entries[final]
}

// Namespace identifies which of the three subcommand numbering spaces
// a wire number belongs to.
type Namespace uint8

const (
	NamespacePreA Namespace = iota
	NamespacePreB
	NamespaceFinal
)

// Translate converts subcommand number n from its namespace into the
// Final namespace, per spec §4.4/§8: subcommands with no alias in
// their source namespace translate to 0 (the testable property named
// in spec §8 — "translate(Final→PreA, s) == 0" — is the mirror
// direction, implemented by TranslateOut).
func (t *Table) Translate(ns Namespace, n uint8) uint8 {
	switch ns {
	case NamespacePreA:
		return t.finalFromPreA[n]
	case NamespacePreB:
		return t.finalFromPreB[n]
	default:
		return n
	}
}

// TranslateOut converts a Final subcommand number into ns's numbering
// for an outbound send, returning 0 if that subcommand doesn't exist
// in ns (spec §8's testable property).
func (t *Table) TranslateOut(ns Namespace, final uint8) uint8 {
	e := t.entries[final]
	if e == nil {
		return 0
	}
	switch ns {
	case NamespacePreA:
		return e.PreA
	case NamespacePreB:
		return e.PreB
	default:
		return final
	}
}
