package internal

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/quietloop/archon/internal/drop"
	"github.com/quietloop/archon/internal/frame"
	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/lobby"
	"github.com/quietloop/archon/internal/packets"
	"github.com/quietloop/archon/internal/player"
	"github.com/quietloop/archon/internal/session"
	"github.com/quietloop/archon/internal/shop"
	"github.com/quietloop/archon/internal/subcommand"
	"github.com/quietloop/archon/internal/version"
	"github.com/quietloop/archon/internal/wire"
)

// channelIdentity adapts a *session.Channel to lobby.ClientIdentity:
// the two differ only in that Channel.Version returns the distinct
// version.Version type where the lobby package, to avoid an import
// cycle back into internal/session, declares the narrower uint8.
type channelIdentity struct {
	ch *session.Channel
}

func (c channelIdentity) Version() uint8 { return uint8(c.ch.Version()) }

func (c channelIdentity) Send(cmd uint16, flag uint16, body []byte) error {
	if err := c.ch.Send(cmd, flag, body); err != nil {
		return err
	}
	return c.ch.Flush()
}

// loginResult is the 0xE6 security acknowledgment sent back to the
// client once a login command has been authenticated. It carries no
// header of its own, since session.Channel.Send writes the frame header
// itself.
type loginResult struct {
	ErrorCode    uint32
	PlayerTag    uint32
	Guildcard    uint32
	TeamID       uint32
	Config       packets.ClientConfig
	Capabilities uint32
}

const securityCommand = 0xE6

// gameSession is the per-connection state the Controller's OnSession
// hook attaches to a Channel: identity once authenticated, and the
// lobby occupancy backing subsequent subcommand dispatch.
type gameSession struct {
	controller *Controller
	ch         *session.Channel

	serial   uint32
	lobby    *lobby.Lobby
	occupant *lobby.Occupant

	// shopSession holds the last generated shop.Session this occupant
	// was shown, so a following buy/sell request can be validated
	// against what the server actually offered rather than trusting the
	// client's own item description (spec §4.7).
	shopSession *shop.Session
}

// onDirectSession is the directserver.OnSession hook: it attaches
// handleCommand and forwards disconnects to leave.
func (c *Controller) onDirectSession(ch *session.Channel) {
	gs := &gameSession{controller: c, ch: ch}
	ch.OnCommand = gs.handleCommand
	ch.OnError = gs.handleError
}

func (gs *gameSession) handleError(ch *session.Channel, err error) {
	gs.leaveLobby()
}

func (gs *gameSession) handleCommand(ch *session.Channel, cmd frame.Command) {
	switch cmd.ID {
	case packets.CommandLoginV1, packets.CommandLoginV2V3: // 0x8B, 0x93 (shared by Final)
		gs.handleLogin(cmd)
	case packets.CommandBroadcastSubcommand, packets.CommandTargetedSubcommand,
		packets.CommandBroadcastSubcommandEx, packets.CommandTargetedSubcommandEx,
		packets.CommandEp3BroadcastSubcommand, packets.CommandEp3TargetedSubcommand:
		gs.handleSubcommand(cmd)
	default:
		gs.controller.logger.WithField("command", fmt.Sprintf("0x%04X", cmd.ID)).Debug("controller: unhandled command, dropping")
	}
}

func (gs *gameSession) handleLogin(cmd frame.Command) {
	creds, clientCfg, ok := gs.tryParseLogin(cmd)
	if !ok {
		gs.controller.logger.Warn("controller: malformed login command")
		gs.ch.Disconnect()
		return
	}

	var serial uint32
	if creds.Username != "" {
		var authed bool
		serial, authed = gs.controller.licenseStore.Authenticate(creds.Username, creds.Password)
		ok = authed
	} else {
		ok = gs.controller.licenseStore.AuthenticateSerial(creds.Serial, creds.AccessKey)
		serial = creds.Serial
	}
	if !ok {
		gs.sendLoginResult(packets.BBLoginErrorPassword, clientCfg)
		gs.ch.Disconnect()
		return
	}

	gs.serial = serial
	character := gs.loadOrCreateCharacter(serial)
	gs.joinDefaultLobby(character)

	clientCfg.CharSelected = 1
	clientCfg.SlotNum = 0
	gs.sendLoginResult(packets.BBLoginErrorNone, clientCfg)
}

// loginCredentials is the subset of LoginV1/LoginV2V3/LoginFinal this
// wiring layer needs, independent of which wire shape the connected
// version actually sent.
type loginCredentials struct {
	Serial    uint32
	AccessKey string
	Username  string
	Password  string
}

func (gs *gameSession) tryParseLogin(cmd frame.Command) (creds loginCredentials, cfg packets.ClientConfig, ok bool) {
	defer func() {
		if recover() != nil {
			creds, cfg, ok = loginCredentials{}, packets.ClientConfig{}, false
		}
	}()

	v := gs.ch.Version()
	switch cmd.ID {
	case packets.CommandLoginV1:
		var p packets.LoginV1
		wire.ToStruct(cmd.Body, &p)
		return loginCredentials{Serial: atoiSerial(p.Serial[:]), AccessKey: cstring(p.AccessKey[:])}, packets.ClientConfig{}, true

	case packets.CommandLoginV2V3:
		if v == version.Final {
			var p packets.LoginFinal
			wire.ToStruct(cmd.Body, &p)
			return loginCredentials{Username: cstring(p.Username[:]), Password: cstring(p.Password[:])}, p.ClientConfig, true
		}
		var p packets.LoginV2V3
		wire.ToStruct(cmd.Body, &p)
		return loginCredentials{Serial: atoiSerial(p.Serial[:]), AccessKey: cstring(p.AccessKey[:])}, p.ClientConfig, true
	}
	return loginCredentials{}, packets.ClientConfig{}, false
}

func (gs *gameSession) sendLoginResult(code packets.BBLoginError, cfg packets.ClientConfig) {
	body, _ := wire.FromStruct(&loginResult{ErrorCode: uint32(code), Config: cfg})
	gs.ch.Send(securityCommand, 0, body)
	gs.ch.Flush()
}

// loadOrCreateCharacter loads slot 0's saved character file through
// the configured CharacterFileStore, decoding the JSON envelope this
// wiring layer persists it as (internal/wire's reflection codec only
// covers the fixed-layout wire structs in internal/packets; a
// Character's variable-length inventory/bank/quest-flag state has no
// such fixed layout, so it round-trips through encoding/json instead,
// same as the teacher's own account/character gorm rows store opaque
// blobs rather than decomposed columns for anything this free-form).
func (gs *gameSession) loadOrCreateCharacter(serial uint32) *player.Character {
	if data, ok := gs.controller.characterStore.Load(serial, 0); ok {
		var c player.Character
		if err := json.Unmarshal(data, &c); err == nil {
			return &c
		}
		gs.controller.logger.Warn("controller: failed to decode saved character, starting fresh")
	}
	return player.NewCharacter()
}

func (gs *gameSession) saveCharacter() {
	if gs.occupant == nil || gs.occupant.Character == nil {
		return
	}
	data, err := json.Marshal(gs.occupant.Character)
	if err != nil {
		return
	}
	if err := gs.controller.characterStore.Save(gs.serial, 0, data); err != nil {
		gs.controller.logger.WithError(err).Warn("controller: failed to save character")
	}
}

func (gs *gameSession) joinDefaultLobby(character *player.Character) {
	l := gs.controller.defaultLobby()
	occ := &lobby.Occupant{
		ClientID:  channelIdentity{ch: gs.ch},
		Character: character,
		State:     lobby.JoinStateJoining,
	}
	slot, err := l.Join(occ)
	if err != nil {
		gs.controller.logger.WithError(err).Warn("controller: lobby join failed")
		gs.ch.Disconnect()
		return
	}
	occ.NextItemIDs = player.NewPlayerIDAllocator(slot)
	for _, queued := range occ.FlushJoinQueue() {
		occ.ClientID.Send(queued.Command, queued.Flag, queued.Body)
	}

	gs.lobby = l
	gs.occupant = occ
	atomic.AddInt64(&gs.controller.sessionCount, 1)
}

func (gs *gameSession) leaveLobby() {
	gs.saveCharacter()
	if gs.lobby == nil || gs.occupant == nil {
		return
	}
	gs.lobby.Leave(gs.occupant.Slot)
	gs.lobby, gs.occupant = nil, nil
	atomic.AddInt64(&gs.controller.sessionCount, -1)
}

// handleSubcommand routes an inner subcommand body through the
// Controller's shared dispatch table and forwards the result per its
// computed Delivery, per spec §4.4.
func (gs *gameSession) handleSubcommand(cmd frame.Command) {
	if gs.occupant == nil || gs.lobby == nil {
		return
	}
	if len(cmd.Body) == 0 {
		return
	}

	// A pre-release sender's family-3 PreA wire numbering (0x5C..0x61)
	// overlaps numerically with two Final-namespaced family-4 constants
	// this function special-cases below (SubLoadPlayerInventory's PreA
	// alias 0x5E equals SubBuyShopItem's Final number; SubLoadEnemyState's
	// PreA alias 0x60 equals SubEntityDropRequest's Final number). Family
	// 3 is checked first for these senders so a PreA/PreB loading-state
	// byte is never misrouted into a Final-numbered shortcut below; a
	// Final-namespaced sender has no such overlap (family 3's Final
	// numbers run 0x6B-0x72, clear of every case here) so it reaches the
	// switch unconditionally.
	if isPreRelease(gs.ch.Version()) {
		if final, ok := loadFinalSubcommand(cmd.Body[0]); ok {
			gs.handleLoadState(cmd, final)
			return
		}
	}

	switch cmd.Body[0] {
	case packets.SubPickUpItemRequest, packets.SubPickUpItem:
		gs.handlePickUp(cmd)
		return
	case packets.SubEntityDropRequest, packets.SubEntityDropRequestEx:
		gs.handleEntityDrop(cmd)
		return
	case packets.SubBuyShopItem:
		gs.handleBuyShopItem(cmd)
		return
	case packets.SubSellItemAtShop:
		gs.handleSellItemAtShop(cmd)
		return
	case packets.SubBankAction:
		gs.handleBankAction(cmd)
		return
	case packets.SubQuestItemExchange:
		gs.handleQuestItemExchange(cmd)
		return
	}
	if final, ok := loadFinalSubcommand(cmd.Body[0]); ok {
		gs.handleLoadState(cmd, final)
		return
	}

	ctx := &subcommand.Context{
		Lobby:      gs.lobby,
		Sender:     subcommand.Sender{Slot: gs.occupant.Slot, Version: uint8(gs.ch.Version()), IsEp3: version.IsEp3(gs.ch.Version())},
		OuterCmd:   cmd.ID,
		TargetSlot: int(cmd.Flag),
		Log:        func(format string, args ...interface{}) { gs.controller.logger.Debugf(format, args...) },
	}

	out, delivery, err := gs.controller.subcommands.Dispatch(ctx, cmd.Body[0], namespaceFor(gs.ch.Version()), cmd.Body)
	if err != nil {
		gs.controller.logger.WithError(err).Warn("controller: subcommand dispatch error")
		return
	}
	if out == nil {
		return
	}
	gs.deliver(cmd, out, delivery)
}

func (gs *gameSession) deliver(cmd frame.Command, out []byte, delivery subcommand.Delivery) {
	send := func(o *lobby.Occupant) {
		if delivery.JoinQueued && o.Enqueue(cmd.ID, cmd.Flag, out) {
			return
		}
		o.ClientID.Send(cmd.ID, cmd.Flag, out)
	}

	if delivery.Targeted {
		if target := gs.lobby.Occupants[delivery.Target]; target != nil {
			send(target)
		}
		return
	}
	gs.lobby.Broadcast(gs.occupant.Slot, send)
	if delivery.ToWatchers {
		for _, watcher := range gs.lobby.Watchers {
			watcher.Broadcast(-1, send)
		}
	}
}

// handlePickUp is the 6x59/6x5A entry point (spec §4.6): server-
// adjudicated pick-up, routed here rather than through the generic
// subcommand table because a successful pick-up must tell occupants
// who could already see the item one thing ("picked up") and every
// other occupant a different one ("create inventory item"), a
// per-recipient divergence the table's single-payload Handler
// contract can't express. This wiring always sends the uniform
// "picked up" notification, which is correct whenever the floor item
// was visible to the whole lobby (the common SharedServer/Client-mode
// case); the divergent non-visible branch original_source's
// on_pick_up_item_generic also implements is not reproduced here.
func (gs *gameSession) handlePickUp(cmd frame.Command) {
	if len(cmd.Body) < 12 {
		return
	}
	var req packets.PickUpRequestSubcommand
	wire.ToStruct(cmd.Body, &req)
	if int(req.ClientID) != gs.occupant.Slot {
		return
	}

	outcome, err := gs.lobby.PickUp(gs.occupant.Slot, req.ItemID)
	if err != nil {
		gs.controller.logger.WithError(err).Debug("controller: pick-up rejected")
		return
	}

	// Each recipient's copy of the item record must cross the version
	// boundary independently (spec §4.5): a V2 peer and a Final peer
	// reading the same Mag need different byte layouts, so the payload
	// is built once per occupant rather than broadcast as one shared
	// slice.
	gs.lobby.Broadcast(-1, func(o *lobby.Occupant) {
		it := outcome.Item.Item
		item.EncodeForVersion(&it, version.Version(o.ClientID.Version()))
		notify := packets.PickedUpNotification{
			Subcommand: packets.SubPickUpItem,
			ClientID: req.ClientID,
			ItemID:   outcome.Item.Item.ID,
			Floor:    outcome.Item.Floor,
			Item:     it,
		}
		out, _ := wire.FromStruct(&notify)
		o.ClientID.Send(cmd.ID, cmd.Flag, out)
	})
}

// handleEntityDrop is the 6x60/6xA2 entry point (spec §4.8): runs the
// request through the lobby's configured drop.Engine and delivers
// each resulting event to its target slot (or every occupant, for a
// SharedServer-policy event whose TargetSlot is -1).
func (gs *gameSession) handleEntityDrop(cmd frame.Command) {
	if len(cmd.Body) < 24 {
		return
	}
	var req packets.DropRequestSubcommand
	wire.ToStruct(cmd.Body, &req)

	engine := drop.New(gs.lobby, gs.controller.itemCreator)
	events := engine.Handle(drop.Request{
		Kind:              entityKind(req.EntityKind),
		EntityIndex:       req.EntityIndex,
		Floor:             req.Floor,
		X:                 req.X,
		Z:                 req.Z,
		IgnoreDefaultDrop: req.IgnoreDefaultDrop != 0,
		BoxParams:         req.BoxParams,
		ReportingSlot:     gs.occupant.Slot,
	})

	for _, ev := range events {
		// Built once per recipient, not once per event: the embedded
		// item record must cross the version boundary independently for
		// every peer (spec §4.5), the same reasoning handlePickUp
		// applies to its own notification.
		send := func(o *lobby.Occupant) {
			it := ev.Item
			item.EncodeForVersion(&it, version.Version(o.ClientID.Version()))
			notify := packets.DropItemNotification{
				Subcommand: packets.SubDropItemNotify,
				ClientID: uint8(gs.occupant.Slot),
				IsEnemy:  boolToUint8(req.EntityKind == 0),
				Floor:    ev.Floor,
				X:        ev.X,
				Z:        ev.Z,
				Item:     it,
				EntityID: req.EntityIndex,
			}
			out, _ := wire.FromStruct(&notify)
			o.ClientID.Send(packets.CommandBroadcastSubcommand, 0, out)
		}
		if ev.TargetSlot < 0 {
			gs.lobby.Broadcast(-1, send)
			continue
		}
		if target := gs.lobby.Occupants[ev.TargetSlot]; target != nil {
			send(target)
		}
	}
}

// handleBuyShopItem is the 6x5E entry point (spec §4.7): validates the
// chosen offer against the shop.Session this connection was last
// shown, generating a fresh tool-shop session on first use (shop-type
// selection and per-shop navigation are out of scope — spec §1's
// item-parameter-table Non-goal covers the real per-shop-type
// catalog). Routed here rather than through the generic subcommand
// table because shop.Purchase needs the controller's itemCreator/
// itemPricer collaborators, which internal/subcommand deliberately
// doesn't depend on.
func (gs *gameSession) handleBuyShopItem(cmd frame.Command) {
	if len(cmd.Body) < 8 {
		return
	}
	var req packets.BuyShopItemSubcommand
	wire.ToStruct(cmd.Body, &req)
	if int(req.ClientID) != gs.occupant.Slot {
		return
	}
	if gs.shopSession == nil {
		level := gs.occupant.Character.Active().Display.Level
		gs.shopSession = &shop.Session{
			Offers: shop.GenerateOffers(shop.KindTool, level, gs.controller.itemCreator, gs.controller.itemPricer),
		}
	}
	it, err := shop.Purchase(gs.shopSession, int(req.OfferIndex), gs.occupant.Character, gs.occupant.NextItemIDs)
	if err != nil {
		gs.controller.logger.WithError(err).Debug("controller: shop purchase rejected")
		return
	}
	gs.echoCreateInventoryItem(cmd, it)
}

// handleSellItemAtShop is the 6xC0 entry point: sells Amount units of
// the named item for half its catalog price, a placeholder sell-back
// rate in the absence of the real item-parameter-table's own buy-back
// column (out of scope per spec §1).
func (gs *gameSession) handleSellItemAtShop(cmd frame.Command) {
	if len(cmd.Body) < 12 {
		return
	}
	var req packets.SellItemAtShopSubcommand
	wire.ToStruct(cmd.Body, &req)
	if int(req.ClientID) != gs.occupant.Slot {
		return
	}
	active := gs.occupant.Character.Active()
	idx := -1
	for i := range active.Inventory.Items {
		if !active.Inventory.Items[i].Empty() && active.Inventory.Items[i].ID == req.ItemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	it := active.Inventory.Items[idx]
	price, _ := gs.controller.itemPricer.Price(it.PrimaryIdentifier())
	if _, err := active.Inventory.RemoveItem(idx); err != nil {
		return
	}
	active.Display.Meseta += price / 2
}

// handleBankAction is the 6xBD entry point (spec §4.7): a single
// deposit/withdraw request, dispatching to shop.Deposit/shop.Withdraw
// depending on Action.
func (gs *gameSession) handleBankAction(cmd frame.Command) {
	if len(cmd.Body) < 20 {
		return
	}
	var req packets.BankActionSubcommand
	wire.ToStruct(cmd.Body, &req)
	if int(req.ClientID) != gs.occupant.Slot {
		return
	}
	active := gs.occupant.Character.Active()

	switch req.Action {
	case 0: // deposit
		if req.ItemID == item.UnassignedID {
			if req.MesetaAmount > active.Display.Meseta {
				return
			}
			active.Display.Meseta -= req.MesetaAmount
			active.Bank.Meseta += req.MesetaAmount
			return
		}
		idx := -1
		for i := range active.Inventory.Items {
			if !active.Inventory.Items[i].Empty() && active.Inventory.Items[i].ID == req.ItemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		if err := shop.Deposit(gs.occupant.Character, idx, uint32(req.ItemAmount)); err != nil {
			gs.controller.logger.WithError(err).Debug("controller: bank deposit rejected")
		}

	case 1: // withdraw
		if req.ItemIndex == 0xFFFF {
			if req.MesetaAmount > active.Bank.Meseta {
				return
			}
			active.Bank.Meseta -= req.MesetaAmount
			active.Display.Meseta += req.MesetaAmount
			return
		}
		it, err := shop.Withdraw(gs.occupant.Character, int(req.ItemIndex), gs.lobby.ServerItemIDs)
		if err != nil {
			gs.controller.logger.WithError(err).Debug("controller: bank withdraw rejected")
			return
		}
		gs.echoCreateInventoryItem(cmd, it)
	}
}

// handleQuestItemExchange is the 6xD5 entry point (spec §4.7): a
// running quest script's request to trade one item for another,
// backed by shop.ItemExchange.
func (gs *gameSession) handleQuestItemExchange(cmd frame.Command) {
	if len(cmd.Body) < 16 {
		return
	}
	var req packets.QuestItemExchangeSubcommand
	wire.ToStruct(cmd.Body, &req)
	if int(req.ClientID) != gs.occupant.Slot {
		return
	}
	toItem := item.FromPrimaryIdentifier(req.ToPrimaryID)
	result := shop.ItemExchange(gs.occupant.Character, req.FromPrimaryID, toItem, gs.occupant.NextItemIDs, req.SuccessFunctionID, req.FailFunctionID)
	if !result.Success {
		gs.controller.logger.Debug("controller: quest item exchange precondition failed")
	}
}

// echoCreateInventoryItem sends the 6x2B "create inventory item"
// notification for it, per-recipient-encoded the same way
// handlePickUp/handleEntityDrop are.
func (gs *gameSession) echoCreateInventoryItem(cmd frame.Command, it item.Item) {
	gs.lobby.Broadcast(-1, func(o *lobby.Occupant) {
		encoded := it
		item.EncodeForVersion(&encoded, version.Version(o.ClientID.Version()))
		notify := packets.PickedUpNotification{
			ClientID: uint8(gs.occupant.Slot),
			ItemID:   it.ID,
			Item:     encoded,
		}
		out, _ := wire.FromStruct(&notify)
		o.ClientID.Send(packets.CommandBroadcastSubcommand, 0, out)
	})
}

// loadFinalSubcommand recognizes a family-3 loading-protocol wire byte
// in either the Final or PreA numbering (PreB has no distinct numbers
// for this family, per the Open Question LoadSubcommandPreAAlias's
// doc comment records) and returns its Final number.
func loadFinalSubcommand(wireByte uint8) (uint8, bool) {
	switch wireByte {
	case packets.SubLoadLeaderState, packets.SubLoadLobbyState, packets.SubLoadPlayerInventory,
		packets.SubLoadPlayerData, packets.SubLoadEnemyState, packets.SubLoadObjectState, packets.SubLoadTransferComplete:
		return wireByte, true
	}
	if final, ok := packets.FinalFromLoadSubcommandPreA[wireByte]; ok {
		return final, true
	}
	return 0, false
}

// isPreRelease reports whether v speaks the narrow loading-protocol
// header and never emits its own 6x71 TransferComplete marker.
func isPreRelease(v version.Version) bool {
	return v == version.PreA || v == version.PreB
}

// handleLoadState is family 3's dedicated entry point (spec §4.4
// family 3/§4.6/§8 scenario 2), routed here instead of through the
// generic subcommand table because a correct bridge between
// generations needs three things no single shared payload can express:
// re-wrapping the sender's header shape into each recipient's own
// (NarrowLoadHeader for PreA/PreB, LongLoadHeader for every other version),
// re-encoding 6x6D's embedded item records per recipient version (spec
// §4.5), and synthesizing a 6x71 TransferComplete marker for a Final
// joiner bridged to a pre-release leader, which never emits one of its
// own.
func (gs *gameSession) handleLoadState(cmd frame.Command, final uint8) {
	senderVersion := gs.ch.Version()
	senderLong := !isPreRelease(senderVersion)

	var clientID uint8
	var rest []byte
	if senderLong {
		if len(cmd.Body) < 8 {
			return
		}
		var hdr packets.LongLoadHeader
		wire.ToStruct(cmd.Body, &hdr)
		clientID, rest = hdr.ClientID, cmd.Body[8:]
	} else {
		if len(cmd.Body) < 4 {
			return
		}
		var hdr packets.NarrowLoadHeader
		wire.ToStruct(cmd.Body, &hdr)
		clientID, rest = hdr.ClientID, cmd.Body[4:]
	}
	if int(clientID) != gs.occupant.Slot {
		return
	}

	var inventory *packets.PlayerInventorySync
	if final == packets.SubLoadPlayerInventory {
		var sync packets.PlayerInventorySync
		wire.ToStruct(rest, &sync)
		inventory = &sync
	}

	gs.lobby.Broadcast(gs.occupant.Slot, func(o *lobby.Occupant) {
		recipientVersion := version.Version(o.ClientID.Version())
		payload := rest
		if inventory != nil {
			encoded := *inventory
			for i := range encoded.Items {
				item.EncodeForVersion(&encoded.Items[i], recipientVersion)
			}
			payload, _ = wire.FromStruct(&encoded)
		}
		out := wrapLoadHeader(final, clientID, payload, recipientVersion)
		if o.Enqueue(cmd.ID, cmd.Flag, out) {
			return
		}
		o.ClientID.Send(cmd.ID, cmd.Flag, out)

		if final == packets.SubLoadPlayerData && isPreRelease(senderVersion) && !isPreRelease(recipientVersion) {
			tc := packets.TransferComplete{Subcommand: packets.SubLoadTransferComplete, ClientID: clientID}
			tcBody, _ := wire.FromStruct(&tc)
			if o.Enqueue(cmd.ID, cmd.Flag, tcBody) {
				return
			}
			o.ClientID.Send(cmd.ID, cmd.Flag, tcBody)
		}
	})
}

// wrapLoadHeader re-wraps payload with the header shape and
// subcommand numbering recipientVersion expects.
func wrapLoadHeader(final uint8, clientID uint8, payload []byte, recipientVersion version.Version) []byte {
	wireNumber := final
	if recipientVersion == version.PreA {
		if preA, ok := packets.LoadSubcommandPreAAlias[final]; ok {
			wireNumber = preA
		}
	}
	sizeWords := uint8((len(payload) + 4) / 4)
	var out []byte
	if isPreRelease(recipientVersion) {
		hdr := packets.NarrowLoadHeader{Subcommand: wireNumber, SizeWords: sizeWords, ClientID: clientID}
		out, _ = wire.FromStruct(&hdr)
	} else {
		hdr := packets.LongLoadHeader{Subcommand: wireNumber, SizeWords: sizeWords, ClientID: clientID, CompressedSize: uint32(len(payload))}
		out, _ = wire.FromStruct(&hdr)
	}
	return append(out, payload...)
}

func entityKind(wireKind uint8) drop.EntityKind {
	if wireKind == 0 {
		return drop.EntityEnemy
	}
	return drop.EntityBox
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func namespaceFor(v version.Version) subcommand.Namespace {
	switch v {
	case version.PreA:
		return subcommand.NamespacePreA
	case version.PreB:
		return subcommand.NamespacePreB
	default:
		return subcommand.NamespaceFinal
	}
}

func atoiSerial(b []byte) uint32 {
	s := cstring(b)
	var n uint32
	for _, ch := range []byte(s) {
		if ch < '0' || ch > '9' {
			return n
		}
		n = n*10 + uint32(ch-'0')
	}
	return n
}

func cstring(b []byte) string {
	for i, ch := range b {
		if ch == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
