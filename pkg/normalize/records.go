package normalize

import "encoding/json"

// SaleRecord is the fixed-shape row written for an NFT sale.
type SaleRecord struct {
	Signature      string  `json:"signature"`
	Mint           string  `json:"mint"`
	Seller         string  `json:"seller"`
	Buyer          string  `json:"buyer"`
	Marketplace    string  `json:"marketplace"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	AuctionHouse   string  `json:"auctionHouse"`
	Slot           int64   `json:"slot"`
	BlockTime      int64   `json:"blockTime"`
	TokenStandard  string  `json:"tokenStandard"`
	FeePayer       string  `json:"feePayer"`
	SaleType       string  `json:"saleType"`
	TxFee          float64 `json:"txFee"`
	RoyaltyFee     float64 `json:"royaltyFee"`
	MarketplaceFee float64 `json:"marketplaceFee"`

	// Instruction-derived fields
	ProgramID         string          `json:"programId"`
	Accounts          []string        `json:"accounts"`
	Data              string          `json:"data"`
	InnerInstructions json.RawMessage `json:"innerInstructions"`
	Metadata          json.RawMessage `json:"metadata"`

	// Raw-envelope passthrough, kept for downstream forensics
	Description      string          `json:"description"`
	AccountData      json.RawMessage `json:"accountData"`
	Events           json.RawMessage `json:"events"`
	Fee              int64           `json:"fee"`
	Instructions     json.RawMessage `json:"instructions"`
	NativeTransfers  json.RawMessage `json:"nativeTransfers"`
	Source           string          `json:"source"`
	Timestamp        int64           `json:"timestamp"`
	TokenTransfers   json.RawMessage `json:"tokenTransfers"`
	TransactionError json.RawMessage `json:"transactionError"`
	Type             string          `json:"type"`
}

// MintRecord is the fixed-shape row written for a regular NFT mint.
type MintRecord struct {
	Signature            string  `json:"signature"`
	Mint                 string  `json:"mint"`
	TokenStandard        string  `json:"tokenStandard"`
	MintAuthority        string  `json:"mintAuthority"`
	Owner                string  `json:"owner"`
	Slot                 int64   `json:"slot"`
	BlockTime            int64   `json:"blockTime"`
	FeePayer             string  `json:"feePayer"`
	Collection           string  `json:"collection"`
	CollectionVerified   bool    `json:"collectionVerified"`
	Royalties            float64 `json:"royalties"`
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	URI                  string  `json:"uri"`
	TxFee                float64 `json:"txFee"`
	SellerFeeBasisPoints int64   `json:"sellerFeeBasisPoints"`

	Creators json.RawMessage `json:"creators"`
	Metadata json.RawMessage `json:"metadata"`

	// Instruction-derived fields
	ProgramID         string          `json:"programId"`
	Accounts          []string        `json:"accounts"`
	Data              string          `json:"data"`
	InnerInstructions json.RawMessage `json:"innerInstructions"`

	// Raw-envelope passthrough
	Description      string          `json:"description"`
	Events           json.RawMessage `json:"events"`
	Fee              int64           `json:"fee"`
	NativeTransfers  json.RawMessage `json:"nativeTransfers"`
	Source           string          `json:"source"`
	Timestamp        int64           `json:"timestamp"`
	TokenTransfers   json.RawMessage `json:"tokenTransfers"`
	TransactionError json.RawMessage `json:"transactionError"`
	Type             string          `json:"type"`
}

// ListingRecord is the fixed-shape row written for an NFT listing.
type ListingRecord struct {
	Signature    string  `json:"signature"`
	Mint         string  `json:"mint"`
	Seller       string  `json:"seller"`
	Marketplace  string  `json:"marketplace"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	AuctionHouse string  `json:"auctionHouse"`
	Slot         int64   `json:"slot"`
	BlockTime    int64   `json:"blockTime"`
	FeePayer     string  `json:"feePayer"`
	TokenSize    int64   `json:"tokenSize"`
	Expiry       int64   `json:"expiry"`
	ListingTime  int64   `json:"listingTime"`
	ListingState string  `json:"listingState"`
	TokenAccount string  `json:"tokenAccount"`

	Metadata json.RawMessage `json:"metadata"`

	// Instruction-derived fields
	ProgramID         string          `json:"programId"`
	Accounts          []string        `json:"accounts"`
	Data              string          `json:"data"`
	InnerInstructions json.RawMessage `json:"innerInstructions"`

	// Raw-envelope passthrough
	Description      string          `json:"description"`
	AccountData      json.RawMessage `json:"accountData"`
	Events           json.RawMessage `json:"events"`
	Fee              int64           `json:"fee"`
	Instructions     json.RawMessage `json:"instructions"`
	NativeTransfers  json.RawMessage `json:"nativeTransfers"`
	Source           string          `json:"source"`
	Timestamp        int64           `json:"timestamp"`
	TokenTransfers   json.RawMessage `json:"tokenTransfers"`
	TransactionError json.RawMessage `json:"transactionError"`
	Type             string          `json:"type"`
}

// CompressedMintRecord is the fixed-shape row written for a compressed
// (Bubblegum) NFT mint.
type CompressedMintRecord struct {
	Signature            string  `json:"signature"`
	Mint                 string  `json:"mint"`
	TokenStandard        string  `json:"tokenStandard"`
	MintAuthority        string  `json:"mintAuthority"`
	Owner                string  `json:"owner"`
	MerkleTree           string  `json:"merkleTree"`
	LeafIndex            int64   `json:"leafIndex"`
	Slot                 int64   `json:"slot"`
	BlockTime            int64   `json:"blockTime"`
	FeePayer             string  `json:"feePayer"`
	Collection           string  `json:"collection"`
	CollectionVerified   bool    `json:"collectionVerified"`
	Royalties            float64 `json:"royalties"`
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	URI                  string  `json:"uri"`
	TxFee                float64 `json:"txFee"`
	SellerFeeBasisPoints int64   `json:"sellerFeeBasisPoints"`
	TreeAuthority        string  `json:"treeAuthority"`
	CompressionProgram   string  `json:"compressionProgram"`
	AssetID              string  `json:"assetId"`
	CanopyDepth          int64   `json:"canopyDepth"`

	Creators              json.RawMessage `json:"creators"`
	Metadata              json.RawMessage `json:"metadata"`
	CompressedNFTMetadata json.RawMessage `json:"compressedNFTMetadata"`
	ProofPath             json.RawMessage `json:"proofPath"`

	// Instruction-derived fields
	ProgramID         string          `json:"programId"`
	Accounts          []string        `json:"accounts"`
	Data              string          `json:"data"`
	InnerInstructions json.RawMessage `json:"innerInstructions"`

	// Raw-envelope passthrough
	Description      string          `json:"description"`
	AccountData      json.RawMessage `json:"accountData"`
	Events           json.RawMessage `json:"events"`
	Fee              int64           `json:"fee"`
	Instructions     json.RawMessage `json:"instructions"`
	NativeTransfers  json.RawMessage `json:"nativeTransfers"`
	Source           string          `json:"source"`
	Timestamp        int64           `json:"timestamp"`
	TokenTransfers   json.RawMessage `json:"tokenTransfers"`
	TransactionError json.RawMessage `json:"transactionError"`
	Type             string          `json:"type"`
}
