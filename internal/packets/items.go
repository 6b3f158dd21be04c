package packets

// Inner subcommand numbers for family 4, "item mutations" (spec §4.4
// point 4): use/feed/destroy/split/sort/identify/wrap/buy/sell/
// exchange. Final numbers and PreA/PreB aliases per original_source's
// ReceiveSubcommands.cc dispatch table; the BB-specific shop/identify/
// sort/wrap numbers (0xB8/0xBA/0xC0/0xC4/0xD6) have no PreA/PreB
// alias, consistent with family 3's "neither pre-release build
// exercises" precedent already documented for that family in
// DefaultTable.
const (
	SubUseItem           = 0x27
	SubFeedMag           = 0x28
	SubDestroyItem       = 0x29
	SubSplitStack        = 0x5D
	SubBuyShopItem       = 0x5E
	SubSortInventory     = 0xC4
	SubIdentifyItem      = 0xB8
	SubAcceptIdentify    = 0xBA
	SubSellItemAtShop    = 0xC0
	SubWrapItem          = 0xD6
	SubQuestItemExchange = 0xD5
	SubBankAction        = 0xBD
)

// ItemMutationPreAAlias and ItemMutationPreBAlias give the five
// family-4 subcommands the pre-release builds do exercise (use, feed,
// destroy, split, buy — the rest are BB/V3-only additions) their PreA/PreB
// numbering, per original_source's literal {PreA, PreB, Final} table
// rows.
var (
	ItemMutationPreAAlias = map[uint8]uint8{
		SubUseItem:     0x23,
		SubFeedMag:     0x24,
		SubDestroyItem: 0x25,
		SubSplitStack:  0x4F,
		SubBuyShopItem: 0x50,
	}
	ItemMutationPreBAlias = map[uint8]uint8{
		SubUseItem:     0x25,
		SubFeedMag:     0x26,
		SubDestroyItem: 0x27,
		SubSplitStack:  0x56,
		SubBuyShopItem: 0x57,
	}
)

// UseItemSubcommand is the 6x27 entry point: the sender consumes the
// inventory item named by ItemID (most commonly a tool). The
// dispatcher mutates the sender's inventory and forwards the
// subcommand unchanged, the same pattern original_source's
// on_use_item follows (mutate, then forward_subcommand).
type UseItemSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
}

// FeedMagSubcommand is the 6x28 entry point: feeds the item named by
// FedItemID to the Mag named by MagItemID.
type FeedMagSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	MagItemID  uint32
	FedItemID  uint32
}

// DestroyItemSubcommand is the 6x29 entry point: removes Amount units
// of the item named by ItemID from the sender's inventory (the whole
// stack, for a non-stackable item).
type DestroyItemSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
	Amount     uint32
}

// SplitStackSubcommand is the 6x5D entry point (spec §8 scenario 3):
// splits Amount units off the stack named by ItemID, leaving the
// remainder in the source slot and assigning the split-off portion a
// fresh id from the sender's own allocator.
type SplitStackSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
	Amount     uint32
}

// SortInventorySubcommand is the 6xC4 entry point: ItemIDs gives the
// sender's full inventory in its new client-chosen slot order (0 for
// an empty slot).
type SortInventorySubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemIDs    [30]uint32
}

// IdentifyItemSubcommand is the 6xB8 entry point: requests a tekker
// preview of the item named by ItemID without yet committing to it.
type IdentifyItemSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
}

// AcceptIdentifySubcommand is the 6xBA entry point: commits to the
// previously-previewed identify result for ItemID.
type AcceptIdentifySubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
}

// WrapItemSubcommand is the 6xD6 entry point: toggles the wrap flag on
// the tool named by ItemID.
type WrapItemSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
}

// BuyShopItemSubcommand is the 6x5E entry point: the sender's chosen
// offer slot in whatever shop.Session the server last generated for
// it.
type BuyShopItemSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	OfferIndex uint32
}

// SellItemAtShopSubcommand is the 6xC0 entry point: sells Amount units
// of the item named by ItemID back to the tool shop for meseta.
type SellItemAtShopSubcommand struct {
	Subcommand uint8
	SizeWords  uint8
	ClientID   uint8
	Unused     uint8
	ItemID     uint32
	Amount     uint32
}

// BankActionSubcommand is the 6xBD entry point: a single dual-purpose
// deposit/withdraw request selected by Action, per original_source's
// on_ep3_private_word_select_bb_bank_action (the function name is
// historical; the BB branch it guards is the actual bank-action
// handler spec §4.7 describes).
type BankActionSubcommand struct {
	Subcommand   uint8
	SizeWords    uint8
	ClientID     uint8
	Action       uint8 // 0 = deposit, 1 = withdraw
	ItemID       uint32
	ItemAmount   uint8
	Unused       [3]byte
	ItemIndex    uint16 // bank entry index for a withdraw; 0xFFFF means "meseta"
	Unused2      uint16
	MesetaAmount uint32
}

// QuestItemExchangeSubcommand is the 6xD5 entry point: a running
// quest script's request to trade FromPrimaryID for a newly-minted item
// of ToPrimaryID, per spec §4.7's quest-hook family.
type QuestItemExchangeSubcommand struct {
	Subcommand        uint8
	SizeWords         uint8
	ClientID          uint8
	Unused            uint8
	FromPrimaryID     uint32
	ToPrimaryID       uint32
	SuccessFunctionID uint16
	FailFunctionID    uint16
}
