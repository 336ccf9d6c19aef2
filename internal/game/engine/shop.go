package engine

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/game/resource"
)

// Offer is one purchasable bundle in the shop.
type Offer struct {
	Item   resource.ItemID
	Amount int
	// Price is in gems.
	Price int
}

// ShopOpen reports whether the player stands in a room whose shop is open.
func (g *Game) ShopOpen() bool {
	return g.shopOpen
}

// ShopOffers lists the bundles for sale, in display order.
func (g *Game) ShopOffers() []Offer {
	sc := g.cfg.Shop
	return []Offer{
		{Item: resource.Keys, Amount: 1, Price: sc.KeyPrice},
		{Item: resource.Steps, Amount: sc.StepsAmount, Price: sc.StepsPrice},
	}
}

// Buy purchases the offer for item.
//
// Postcondition: Returns false and leaves the ledger unchanged if the shop is closed, the
// game is halted or drafting, item is not for sale, or gems are short.
func (g *Game) Buy(item resource.ItemID) bool {
	if !g.running || g.state != StateMove || !g.shopOpen {
		return false
	}
	for _, o := range g.ShopOffers() {
		if o.Item != item {
			continue
		}
		if !g.ledger.Spend(resource.Gems, o.Price) {
			return false
		}
		g.ledger.Add(o.Item, o.Amount)
		g.logger.Debug("shop purchase",
			zap.String("item", string(item)),
			zap.Int("amount", o.Amount),
			zap.Int("price", o.Price),
		)
		return true
	}
	return false
}
