package event

// Category identifies the kind of webhook transaction being indexed. It
// determines which normalization rules apply and which destination table the
// record lands in.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryMint
	CategorySale
	CategoryListing
	CategoryCompressedMint
)

// ParseCategory maps a wire job-type string to a Category. The accepted values
// match the control-plane's job type column.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "nft_mint", "NFT_MINT":
		return CategoryMint, true
	case "nft_sale", "NFT_SALE":
		return CategorySale, true
	case "nft_listing", "NFT_LISTING":
		return CategoryListing, true
	case "compressed_nft_mint", "COMPRESSED_NFT_MINT":
		return CategoryCompressedMint, true
	default:
		return CategoryUnknown, false
	}
}

// All returns every supported category, in a stable order.
func All() []Category {
	return []Category{CategoryMint, CategorySale, CategoryListing, CategoryCompressedMint}
}

// String returns the control-plane job-type representation.
func (c Category) String() string {
	switch c {
	case CategoryMint:
		return "nft_mint"
	case CategorySale:
		return "nft_sale"
	case CategoryListing:
		return "nft_listing"
	case CategoryCompressedMint:
		return "compressed_nft_mint"
	default:
		return "unknown"
	}
}

// Stream returns the durable queue stream name for the category.
func (c Category) Stream() string {
	switch c {
	case CategoryMint:
		return "nft-mint-queue"
	case CategorySale:
		return "nft-sale-queue"
	case CategoryListing:
		return "nft-listing-queue"
	case CategoryCompressedMint:
		return "compressed-nft-mint-queue"
	default:
		return ""
	}
}

// Table returns the destination table name in tenant databases.
func (c Category) Table() string {
	switch c {
	case CategoryMint:
		return "nft_mints"
	case CategorySale:
		return "nft_sales"
	case CategoryListing:
		return "nft_listings"
	case CategoryCompressedMint:
		return "compressed_mint_nfts"
	default:
		return ""
	}
}

// Valid reports whether the category is one of the four supported variants.
func (c Category) Valid() bool {
	return c >= CategoryMint && c <= CategoryCompressedMint
}
