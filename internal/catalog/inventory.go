package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/merchforge/api/internal/domain"
)

//go:embed data/inventory.acp.json
var inventoryRaw []byte

//go:embed data/ucp-products.json
var productsFeedRaw []byte

var (
	inventoryOnce  sync.Once
	inventoryItems []domain.ACPItem
	inventoryErr   error
)

// Inventory returns the static agentic-commerce inventory feed, validating
// it on first use.
func Inventory() ([]domain.ACPItem, error) {
	inventoryOnce.Do(func() {
		var items []domain.ACPItem
		if err := json.Unmarshal(inventoryRaw, &items); err != nil {
			inventoryErr = fmt.Errorf("catalog: parse inventory feed: %w", err)
			return
		}
		if err := validateInventory(items); err != nil {
			inventoryErr = err
			return
		}
		inventoryItems = items
	})
	return inventoryItems, inventoryErr
}

// ProductsFeed returns the raw products document served under /.well-known.
func ProductsFeed() []byte {
	return productsFeedRaw
}

// validateInventory enforces the structural invariants the feed must hold:
// per-variant image maps must cover every color and material combination,
// and availability overrides may only name variants that have images.
func validateInventory(items []domain.ACPItem) error {
	for _, item := range items {
		if item.ItemID == "" {
			return fmt.Errorf("catalog: inventory item missing item_id")
		}
		if item.Attributes.Category == "" {
			return fmt.Errorf("catalog: missing category for %s", item.ItemID)
		}
		if len(item.Attributes.Materials) == 0 {
			return fmt.Errorf("catalog: missing materials for %s", item.ItemID)
		}
		if len(item.Attributes.Variants.Colors) == 0 {
			return fmt.Errorf("catalog: missing colors for %s", item.ItemID)
		}

		if item.ImageURLByVariant != nil {
			for _, color := range item.Attributes.Variants.Colors {
				for _, material := range item.Attributes.Materials {
					key := domain.VariantKey(color.Name, material)
					if item.ImageURLByVariant[key] == "" {
						return fmt.Errorf("catalog: missing image_url_by_variant for %s (%s)", item.ItemID, key)
					}
				}
			}
		}

		for key := range item.AvailabilityByVariant {
			if item.ImageURLByVariant[key] == "" {
				return fmt.Errorf("catalog: availability_by_variant key without image for %s (%s)", item.ItemID, key)
			}
		}
	}
	return nil
}
