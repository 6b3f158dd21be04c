package subcommand

import "github.com/quietloop/archon/internal/packets"

// DefaultConfig bundles the runtime knobs DefaultTable's handlers close
// over: the gameplay-policy side of spec §4.4.6/§4.4.7/§4.4.8, supplied
// by the server wiring layer from its loaded configuration.
type DefaultConfig struct {
	QuestFlags    QuestFlagPolicy
	ExpModeFactor float64
	ExpEpisode    int
	Award         func(ctx *Context, slot int, amount uint32)
	WordTranslate WordSelectTranslator
	WordBigEndian func(ctx *Context) bool
}

// DefaultTable builds the Table this module's direct server and proxy
// inspection hook register by default: sender-slot-checked forwarding
// for the common family-1 lobby/area subcommands, movement mirroring,
// quest-flag writes, EXP application, word-select translation, Ep3
// card-battle masking, and family-4 item mutations. Final subcommand
// numbers are the ones original_source's ReceiveSubcommands.cc
// documents for each family; PreA/PreB aliases are left at 0
// (unregistered) for families 1/2/6/7/8/9 since neither pre-release
// build exercises those post-V1 families, but are populated for the
// four family-4 entries (use-item, feed-mag, destroy-item, split-stack)
// that original_source documents a distinct PreA/PreB wire number for.
func DefaultTable(cfg DefaultConfig) *Table {
	entries := []Entry{
		// Family 1: plain forwarders gated on the embedded client id
		// matching the sender's own slot.
		{Final: 0x05, Handler: RequireSenderSlot(Forward)},
		{Final: 0x07, Handler: RequireSenderSlot(Forward)},
		{Final: 0x22, Handler: RequireSenderSlot(Forward)},
		{Final: 0x23, Handler: RequireSenderSlot(Forward), Flags: UseJoinCommandQueue},
		{Final: 0x2F, Handler: RequireSenderSlot(Forward)},

		// Family 2: movement mirrors the sender's shadow position.
		{Final: 0x40, Handler: Movement},
		{Final: 0x42, Handler: Movement},
		{Final: 0x43, Handler: Movement},

		// Family 6: quest flag writes, policy-gated.
		{Final: 0x4E, Handler: QuestFlagWrite(cfg.QuestFlags)},
		{Final: 0x4F, Handler: QuestFlagWrite(cfg.QuestFlags)},

		// Family 7: EXP application.
		{Final: 0xC8, Handler: ExpGain(cfg.ExpModeFactor, cfg.ExpEpisode, cfg.Award)},

		// Family 8: word select translation.
		{Final: 0x74, Handler: WordSelect(cfg.WordTranslate, cfg.WordBigEndian)},

		// Family 9: Ep3 card-battle masking, gated to Ep3 lobbies and
		// copied to any attached watcher lobbies.
		{Final: 0xB3, Handler: RequireEp3(CardBattleMask), Flags: AlwaysForwardToWatchers},
		{Final: 0xB5, Handler: RequireEp3(CardBattleMask), Flags: AlwaysForwardToWatchers | AllowForwardToWatchedLobby},

		// Family 3 (loading protocol) has no entry here: it is handled
		// by gameSession.handleLoadState in gamesession.go instead of
		// this table, because a correct implementation must re-wrap
		// LongLoadHeader↔NarrowLoadHeader per recipient generation,
		// synthesize the 6x71 TransferComplete marker when bridging a
		// pre-release leader to a Final joiner, and re-encode 6x6D's
		// embedded item records per recipient version (spec §4.4 family
		// 3/§4.6/§8 scenario 2) — all per-recipient-divergent payload
		// shapes this table's one-Handler/one-Delivery contract can't
		// express, the same reason pick-up/drop bypass it.

		// Family 4: item mutations (spec §4.4 point 4). Buy/sell/bank/
		// quest-exchange are wired directly into gamesession.go's
		// handleSubcommand instead of this table: each needs the
		// shop/gamedata collaborators (pricer, item creator, per-
		// connection shop.Session) this package deliberately doesn't
		// depend on, to keep the dispatch table itself collaborator-free.
		// Accept/create-inventory-item echo (6x2B) is the uniform
		// reply every mutation here triggers, not a distinct request, so
		// it has no handler of its own.
		{Final: packets.SubUseItem, PreA: packets.ItemMutationPreAAlias[packets.SubUseItem], PreB: packets.ItemMutationPreBAlias[packets.SubUseItem], Handler: UseItem},
		{Final: packets.SubFeedMag, PreA: packets.ItemMutationPreAAlias[packets.SubFeedMag], PreB: packets.ItemMutationPreBAlias[packets.SubFeedMag], Handler: FeedMag},
		{Final: packets.SubDestroyItem, PreA: packets.ItemMutationPreAAlias[packets.SubDestroyItem], PreB: packets.ItemMutationPreBAlias[packets.SubDestroyItem], Handler: DestroyItem},
		{Final: packets.SubSplitStack, PreA: packets.ItemMutationPreAAlias[packets.SubSplitStack], PreB: packets.ItemMutationPreBAlias[packets.SubSplitStack], Handler: SplitStack},
		{Final: packets.SubSortInventory, Handler: SortInventory},
		{Final: packets.SubIdentifyItem, Handler: IdentifyItem},
		{Final: packets.SubAcceptIdentify, Handler: AcceptIdentify},
		{Final: packets.SubWrapItem, Handler: WrapItem},
	}
	return NewTable(entries)
}
