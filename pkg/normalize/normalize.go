// Package normalize maps raw webhook transaction envelopes into the
// fixed-shape records written to tenant databases. Each category has its own
// normalizer; all of them are pure functions that degrade through ordered
// fallback chains instead of failing on malformed input.
package normalize

import (
	"fmt"

	"github.com/solindex-labs/solindex/pkg/event"
)

// Record is a normalized row for one of the four event categories.
type Record interface {
	// NaturalKey returns the transaction signature, unique per destination
	// table.
	NaturalKey() string
	// EventCategory returns the category that produced the record.
	EventCategory() event.Category
}

func (r SaleRecord) NaturalKey() string                    { return r.Signature }
func (r SaleRecord) EventCategory() event.Category         { return event.CategorySale }
func (r MintRecord) NaturalKey() string                    { return r.Signature }
func (r MintRecord) EventCategory() event.Category         { return event.CategoryMint }
func (r ListingRecord) NaturalKey() string                 { return r.Signature }
func (r ListingRecord) EventCategory() event.Category      { return event.CategoryListing }
func (r CompressedMintRecord) NaturalKey() string          { return r.Signature }
func (r CompressedMintRecord) EventCategory() event.Category {
	return event.CategoryCompressedMint
}

// Normalize maps raw into the record shape for the given category. The only
// error case is an unknown category, which callers validate before reaching
// this point.
func Normalize(c event.Category, raw *event.RawEvent) (Record, error) {
	switch c {
	case event.CategoryMint:
		return Mint(raw), nil
	case event.CategorySale:
		return Sale(raw), nil
	case event.CategoryListing:
		return Listing(raw), nil
	case event.CategoryCompressedMint:
		return CompressedMint(raw), nil
	default:
		return nil, fmt.Errorf("normalize: unsupported category %q", c)
	}
}
