package app

import (
	"time"

	"github.com/looplj/shellstate/internal/storefront"
)

// SampleWishlists is the data served by the demo fetcher.
func SampleWishlists() []storefront.Wishlist {
	added := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return []storefront.Wishlist{
		{
			UserID: "player-1",
			Items: []storefront.Item{
				{SKU: "sf-1001", Title: "Starfall Odyssey", Price: 59.99, AddedAt: added},
				{SKU: "sf-1002", Title: "Apex Run", Price: 19.99, AddedAt: added.Add(24 * time.Hour)},
				{SKU: "sf-1003", Title: "Moonlit Harbor", Price: 9.99, AddedAt: added.Add(48 * time.Hour)},
				{SKU: "sf-1004", Title: "Iron Tide", Price: 39.99, AddedAt: added.Add(72 * time.Hour)},
			},
		},
		{
			UserID: "player-2",
		},
	}
}
