package subcommand

import (
	"errors"
	"fmt"

	"github.com/quietloop/archon/internal/lobby"
	"github.com/quietloop/archon/internal/packets"
)

// ErrProtocol is returned by a handler (or by Dispatch itself) for a
// command that arrived in a state that forbids it — spec §7's
// ProtocolError class: logged and dropped, never closes the channel.
var ErrProtocol = errors.New("subcommand: protocol error")

// Sender is the minimal view of the originating occupant a handler or
// the dispatcher needs.
type Sender struct {
	Slot    int
	Version uint8
	IsEp3   bool
}

// Context carries everything a Handler or the generic forwarding
// policy needs about the outer command one or more inner subcommands
// arrived inside.
type Context struct {
	Lobby      *lobby.Lobby
	Sender     Sender
	OuterCmd   uint16
	TargetSlot int // meaningful only when OuterCmd is a targeted command
	Log        func(format string, args ...interface{})
}

func (c *Context) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log(format, args...)
	}
}

// Delivery describes where a successfully-handled subcommand's
// forwarded bytes should go.
type Delivery struct {
	Target     int // slot, meaningful only when Targeted
	Targeted   bool
	ToWatchers bool
	// JoinQueued mirrors the entry's UseJoinCommandQueue flag: the
	// wiring layer should buffer this delivery on any recipient that
	// isn't yet lobby.JoinStateReady instead of sending immediately.
	JoinQueued bool
}

// Dispatch applies spec §4.4's generic forwarding policy around a
// looked-up Entry's Handler: Ep3-family gating, targeted-vs-broadcast
// delivery rules, and the join-queue flag. It returns the bytes to
// forward and the computed Delivery, or a nil forward slice (with nil
// error) when the subcommand was legitimately dropped.
func (t *Table) Dispatch(ctx *Context, wireSubcommand uint8, ns Namespace, body []byte) (out []byte, delivery Delivery, err error) {
	// A handler panic (e.g. a malformed-payload struct decode) is an
	// InternalError per spec §7: log it and keep the loop alive rather
	// than letting it unwind into the caller's event loop goroutine.
	defer func() {
		if r := recover(); r != nil {
			ctx.logf("subcommand: handler panic on final %#x from slot %d: %v", wireSubcommand, ctx.Sender.Slot, r)
			out, delivery, err = nil, Delivery{}, nil
		}
	}()

	if packets.IsEp3Family(ctx.OuterCmd) && !ctx.Sender.IsEp3 {
		return nil, Delivery{}, fmt.Errorf("%w: card-battle command from non-Ep3 sender", ErrProtocol)
	}

	final := t.Translate(ns, wireSubcommand)
	if final == 0 {
		ctx.logf("subcommand: unknown %s number %#x from slot %d, dropping", ns, wireSubcommand, ctx.Sender.Slot)
		return nil, Delivery{}, nil
	}

	entry := t.Lookup(final)
	if entry == nil || entry.Handler == nil {
		ctx.logf("subcommand: no handler for final subcommand %#x, dropping", final)
		return nil, Delivery{}, nil
	}

	out, err = entry.Handler(ctx, body)
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			ctx.logf("subcommand: %v", err)
			return nil, Delivery{}, nil
		}
		return nil, Delivery{}, err
	}
	if out == nil {
		return nil, Delivery{}, nil
	}

	d := Delivery{
		ToWatchers: entry.Flags&AlwaysForwardToWatchers != 0,
		JoinQueued: entry.Flags&UseJoinCommandQueue != 0,
	}
	if packets.IsTargeted(ctx.OuterCmd) {
		if ctx.Lobby.Occupants[ctx.TargetSlot] == nil {
			return nil, Delivery{}, fmt.Errorf("%w: target slot %d not occupied", ErrProtocol, ctx.TargetSlot)
		}
		d.Targeted = true
		d.Target = ctx.TargetSlot
	}
	return out, d, nil
}

func (ns Namespace) String() string {
	switch ns {
	case NamespacePreA:
		return "PreA"
	case NamespacePreB:
		return "PreB"
	default:
		return "Final"
	}
}
