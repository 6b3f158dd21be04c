package subcommand

import (
	"fmt"

	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/wire"
)

// RequireSenderSlot builds a Handler predicate family 1 ("pure
// forwarders with an additional predicate") needs: reject payloads
// whose embedded ClientID field doesn't match the sender's own slot,
// a spoofed-slot rejection per spec §4.4.
func RequireSenderSlot(next Handler) Handler {
	return func(ctx *Context, body []byte) ([]byte, error) {
		if len(body) < 4 {
			return nil, fmt.Errorf("%w: short ClientID header", ErrProtocol)
		}
		var hdr packets.ClientIDHeader
		wire.ToStruct(body, &hdr)
		if int(hdr.ClientID) != ctx.Sender.Slot {
			return nil, fmt.Errorf("%w: client id %d does not match sender slot %d", ErrProtocol, hdr.ClientID, ctx.Sender.Slot)
		}
		return next(ctx, body)
	}
}

// RequireEp3 wraps a handler so it only runs when the sender's lobby
// is an Episode 3 game (e.g. watcher-lobby administration subcommands
// and the card-battle family's own internal predicates beyond the
// outer-command gate Dispatch already applies).
func RequireEp3(next Handler) Handler {
	return func(ctx *Context, body []byte) ([]byte, error) {
		if ctx.Lobby.Episode != 3 {
			return nil, fmt.Errorf("%w: ep3-only subcommand outside an ep3 lobby", ErrProtocol)
		}
		return next(ctx, body)
	}
}

// Forward is the trivial handler body for family 1: validate nothing
// beyond what a wrapper already checked, forward the payload
// unchanged.
func Forward(_ *Context, body []byte) ([]byte, error) {
	return body, nil
}

// Movement is family 2: mirrors the sender's reported position into
// its lobby Occupant shadow state before forwarding unchanged, so
// later server-side logic (drop floor lookups, join-protocol state
// sync) reads a position consistent with what every peer sees.
func Movement(ctx *Context, body []byte) ([]byte, error) {
	if len(body) < 12 {
		return nil, fmt.Errorf("%w: malformed movement subcommand", ErrProtocol)
	}
	var m packets.MovementSubcommand
	wire.ToStruct(body, &m)
	if int(m.ClientID) != ctx.Sender.Slot {
		return nil, fmt.Errorf("%w: movement client id mismatch", ErrProtocol)
	}
	occ := ctx.Lobby.Occupants[ctx.Sender.Slot]
	if occ != nil {
		occ.X, occ.Z = m.X, m.Z
	}
	return body, nil
}

// QuestFlagWrite is family 6 (spec §4.4.6): applies a (difficulty,
// flag) bit to the sender's character, rejecting indices masked off
// by policy, and calls policy.OnBossDefeat when this write matches a
// configured final-boss-defeat flag that should trigger a synthesized
// drop request — the callback's owner is responsible for actually
// issuing that request since it needs the drop engine, which this
// package does not depend on.
type QuestFlagPolicy struct {
	// Allowed reports whether (difficulty, flag) may be written by a
	// client at all; nil means allow everything.
	Allowed func(difficulty, flag int) bool
	// BossDefeatFlag reports whether (difficulty, flag) is the
	// configured final-boss-defeat marker for the sender's current
	// floor, triggering a synthesized boss drop request.
	BossDefeatFlag func(difficulty, flag int) bool
	OnBossDefeat   func(ctx *Context, difficulty, flag int)
}

// QuestFlagWrite returns a Handler bound to policy.
func QuestFlagWrite(policy QuestFlagPolicy) Handler {
	return func(ctx *Context, body []byte) ([]byte, error) {
		if len(body) < 8 {
			return nil, fmt.Errorf("%w: malformed quest flag subcommand", ErrProtocol)
		}
		var q packets.QuestFlagSubcommand
		wire.ToStruct(body, &q)
		if int(q.ClientID) != ctx.Sender.Slot {
			return nil, fmt.Errorf("%w: quest flag client id mismatch", ErrProtocol)
		}
		difficulty, flag := int(q.Difficulty), int(q.FlagNumber)
		if policy.Allowed != nil && !policy.Allowed(difficulty, flag) {
			ctx.logf("subcommand: quest flag (%d,%d) rejected by policy for slot %d", difficulty, flag, ctx.Sender.Slot)
			return nil, nil
		}
		occ := ctx.Lobby.Occupants[ctx.Sender.Slot]
		if occ != nil && occ.Character != nil {
			occ.Character.Active().QuestFlags.Set(difficulty, flag)
		}
		if policy.BossDefeatFlag != nil && policy.BossDefeatFlag(difficulty, flag) && policy.OnBossDefeat != nil {
			policy.OnBossDefeat(ctx, difficulty, flag)
		}
		return body, nil
	}
}

// ExpMultiplier computes the EXP award multiplier spec §4.4.7
// describes: a mode-specific factor, a killer-vs-non-killer factor of
// 1.0 vs 0.8, and a hard-coded 1.3 bonus on Episode 2.
func ExpMultiplier(modeFactor float64, isKiller bool, episode int) float64 {
	m := modeFactor
	if isKiller {
		m *= 1.0
	} else {
		m *= 0.8
	}
	if episode == 2 {
		m *= 1.3
	}
	return m
}

// ExpGain is family 7's EXP application entry point: computes the
// awarded amount via ExpMultiplier and hands it to award so the
// server-authoritative caller can apply level-up logic, then forwards
// the (possibly server-recomputed) amount to peers.
func ExpGain(modeFactor float64, episode int, award func(ctx *Context, slot int, amount uint32)) Handler {
	return func(ctx *Context, body []byte) ([]byte, error) {
		if len(body) < 8 {
			return nil, fmt.Errorf("%w: malformed exp gain subcommand", ErrProtocol)
		}
		var e packets.ExpGainSubcommand
		wire.ToStruct(body, &e)
		isKiller := int(e.ClientID) == ctx.Sender.Slot
		amount := uint32(float64(e.Exp) * ExpMultiplier(modeFactor, isKiller, episode))
		if award != nil {
			award(ctx, int(e.ClientID), amount)
		}
		e.Exp = amount
		out, _ := wire.FromStruct(&e)
		return out, nil
	}
}

// WordSelectTranslator re-maps a word-select token from the sender's
// namespace into the recipient's, per spec §4.4.8. A nil translator
// behaves as identity.
type WordSelectTranslator func(token uint16, bigEndianRecipient bool) uint16

// WordSelect is family 8: re-translates the six phrase tokens through
// translate and endian-flips them when forwarding to a big-endian
// recipient.
func WordSelect(translate WordSelectTranslator, recipientBigEndian func(ctx *Context) bool) Handler {
	return func(ctx *Context, body []byte) ([]byte, error) {
		if len(body) < 16 {
			return nil, fmt.Errorf("%w: malformed word select subcommand", ErrProtocol)
		}
		var w packets.WordSelectSubcommand
		wire.ToStruct(body, &w)
		bigEndian := recipientBigEndian != nil && recipientBigEndian(ctx)
		for i, tok := range w.Tokens {
			t := tok
			if translate != nil {
				t = translate(tok, bigEndian)
			}
			if bigEndian {
				t = t>>8 | t<<8
			}
			w.Tokens[i] = t
		}
		out, _ := wire.FromStruct(&w)
		return out, nil
	}
}

// CardBattleMask is family 9: XORs an 0xB5-family payload's Data with
// its own recorded MaskKey before forwarding, so a packet capture
// doesn't trivially leak hidden card-battle information (spec
// §4.4.9). Since XOR is self-inverse this single function is used on
// both the unmask and remask side by callers that round-trip the
// payload through it twice with the same key.
func CardBattleMask(ctx *Context, body []byte) ([]byte, error) {
	var c packets.CardBattleSubcommand
	hdrLen := 4
	if len(body) < hdrLen {
		return nil, fmt.Errorf("%w: short card battle subcommand", ErrProtocol)
	}
	c.Subcommand, c.SizeWords, c.ClientID, c.MaskKey = body[0], body[1], body[2], body[3]
	c.Data = append([]byte(nil), body[hdrLen:]...)
	for i := range c.Data {
		c.Data[i] ^= c.MaskKey
	}
	out := make([]byte, hdrLen+len(c.Data))
	out[0], out[1], out[2], out[3] = c.Subcommand, c.SizeWords, c.ClientID, c.MaskKey
	copy(out[hdrLen:], c.Data)
	return out, nil
}
