package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"nft_mint", CategoryMint, true},
		{"NFT_MINT", CategoryMint, true},
		{"nft_sale", CategorySale, true},
		{"NFT_SALE", CategorySale, true},
		{"nft_listing", CategoryListing, true},
		{"NFT_LISTING", CategoryListing, true},
		{"compressed_nft_mint", CategoryCompressedMint, true},
		{"COMPRESSED_NFT_MINT", CategoryCompressedMint, true},
		{"NFT_BURN", CategoryUnknown, false},
		{"SWAP", CategoryUnknown, false},
		{"", CategoryUnknown, false},
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestCategoryNames(t *testing.T) {
	for _, c := range All() {
		assert.True(t, c.Valid())
		assert.NotEmpty(t, c.Stream())
		assert.NotEmpty(t, c.Table())

		// string form must parse back to the same category
		parsed, ok := ParseCategory(c.String())
		assert.True(t, ok)
		assert.Equal(t, c, parsed)
	}

	assert.False(t, CategoryUnknown.Valid())
	assert.Empty(t, CategoryUnknown.Stream())
	assert.Empty(t, CategoryUnknown.Table())
	assert.Equal(t, "unknown", CategoryUnknown.String())
}

func TestStreamAndTableNamesAreDistinct(t *testing.T) {
	streams := map[string]bool{}
	tables := map[string]bool{}
	for _, c := range All() {
		assert.False(t, streams[c.Stream()], c.Stream())
		assert.False(t, tables[c.Table()], c.Table())
		streams[c.Stream()] = true
		tables[c.Table()] = true
	}
}
