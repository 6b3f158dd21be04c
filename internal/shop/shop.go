// Package shop implements the server-authoritative shop, bank/trade,
// and quest-side-effect handlers spec §4.7 describes.
package shop

import (
	"errors"

	"github.com/quietloop/archon/internal/item"
	"github.com/quietloop/archon/internal/player"
)

// ErrNoSuchOffer means a purchase referenced an offer slot the shop
// never generated for this player.
var ErrNoSuchOffer = errors.New("shop: no such offer")

// ErrInsufficientMeseta is the ResourceError spec §7 describes for a
// purchase the buyer can't afford.
var ErrInsufficientMeseta = errors.New("shop: insufficient meseta")

// ItemPricer is the external item-parameter-table collaborator this
// package prices offers against (spec §1's "item parameter table").
type ItemPricer interface {
	Price(primaryIdentifier uint32) (uint32, bool)
}

// ItemCreator is the subset of the external item-creator collaborator
// shops use to generate their offered sets, keyed by player level.
type ItemCreator interface {
	CreateShopTool(level uint32) (item.Item, bool)
	CreateShopWeapon(level uint32) (item.Item, bool)
	CreateShopArmor(level uint32) (item.Item, bool)
}

// Offer is one slot in a generated shop's inventory.
type Offer struct {
	Item  item.Item
	Price uint32
}

// Kind selects which of the three generated shop types a
// GenerateOffers call targets.
type Kind uint8

const (
	KindTool Kind = iota
	KindWeapon
	KindArmor
)

const offersPerShop = 10

// GenerateOffers builds a fresh offer set for level, pricing each item
// via pricer and clearing ids (a freshly-generated offer is never a
// real inventory item until purchased).
func GenerateOffers(kind Kind, level uint32, creator ItemCreator, pricer ItemPricer) []Offer {
	offers := make([]Offer, 0, offersPerShop)
	for i := 0; i < offersPerShop; i++ {
		var it item.Item
		var ok bool
		switch kind {
		case KindTool:
			it, ok = creator.CreateShopTool(level)
		case KindWeapon:
			it, ok = creator.CreateShopWeapon(level)
		case KindArmor:
			it, ok = creator.CreateShopArmor(level)
		}
		if !ok {
			continue
		}
		it.ID = item.UnassignedID
		price, _ := pricer.Price(it.PrimaryIdentifier())
		offers = append(offers, Offer{Item: it, Price: price})
	}
	return offers
}

// Session holds the offer set a particular player was shown, keyed by
// the server so a later purchase request can be validated against
// what was actually offered rather than trusting the client's item
// description.
type Session struct {
	Offers []Offer
}

// Purchase matches offerIndex against sess.Offers, debits meseta from
// character, assigns it a fresh id from allocator, and returns the
// item ready for a "create inventory item" echo.
func Purchase(sess *Session, offerIndex int, character *player.Character, allocator *player.IDAllocator) (item.Item, error) {
	if offerIndex < 0 || offerIndex >= len(sess.Offers) {
		return item.Item{}, ErrNoSuchOffer
	}
	offer := sess.Offers[offerIndex]
	active := character.Active()
	if active.Display.Meseta < offer.Price {
		return item.Item{}, ErrInsufficientMeseta
	}
	active.Display.Meseta -= offer.Price
	it := offer.Item
	it.ID = allocator.Next()
	if _, err := active.Inventory.AddItem(it); err != nil {
		return item.Item{}, err
	}
	return it, nil
}

// Deposit moves an inventory item into the bank, validating and
// clearing its id per player.Bank.Deposit's contract.
func Deposit(character *player.Character, invSlot int, amount uint32) error {
	active := character.Active()
	it, err := active.Inventory.RemoveItem(invSlot)
	if err != nil {
		return err
	}
	return active.Bank.Deposit(it, amount)
}

// Withdraw moves a bank entry back into the inventory, assigning it a
// fresh id per spec §4.7 ("preserve id uniqueness by reassigning ids
// on withdrawal") and the server-domain Open Question decision
// recorded in DESIGN.md.
func Withdraw(character *player.Character, bankIdx int, allocator *player.IDAllocator) (item.Item, error) {
	active := character.Active()
	it, _, err := active.Bank.Withdraw(bankIdx, allocator)
	if err != nil {
		return item.Item{}, err
	}
	if _, err := active.Inventory.AddItem(it); err != nil {
		active.Bank.Deposit(it, 0)
		return item.Item{}, err
	}
	return it, nil
}
