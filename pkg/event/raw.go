package event

import "encoding/json"

// RawEvent is the enhanced-transaction envelope delivered by the webhook
// provider. Only the top-level shape is stable; every sub-object varies in
// presence and structure depending on the originating marketplace or program,
// so all fields are optional and extraction degrades through fallback chains
// in pkg/normalize.
type RawEvent struct {
	Signature        string          `json:"signature"`
	Slot             int64           `json:"slot"`
	Timestamp        int64           `json:"timestamp"`
	Fee              int64           `json:"fee"`
	FeePayer         string          `json:"feePayer"`
	Type             string          `json:"type"`
	Source           string          `json:"source"`
	Description      string          `json:"description"`
	TransactionError json.RawMessage `json:"transactionError,omitempty"`

	Instructions    []Instruction   `json:"instructions,omitempty"`
	AccountData     []AccountData   `json:"accountData,omitempty"`
	NativeTransfers json.RawMessage `json:"nativeTransfers,omitempty"`
	TokenTransfers  []TokenTransfer `json:"tokenTransfers,omitempty"`

	Events Events `json:"events"`
}

// Instruction is one top-level instruction of the transaction.
type Instruction struct {
	ProgramID         string        `json:"programId"`
	Accounts          []string      `json:"accounts,omitempty"`
	Data              string        `json:"data,omitempty"`
	InnerInstructions []Instruction `json:"innerInstructions,omitempty"`
}

// AccountData captures the balance delta of one account touched by the
// transaction.
type AccountData struct {
	Account             string            `json:"account"`
	NativeBalanceChange int64             `json:"nativeBalanceChange"`
	TokenBalanceChanges []json.RawMessage `json:"tokenBalanceChanges,omitempty"`
}

// TokenTransfer is one SPL token movement.
type TokenTransfer struct {
	Mint            string  `json:"mint"`
	TokenStandard   string  `json:"tokenStandard,omitempty"`
	FromUserAccount string  `json:"fromUserAccount,omitempty"`
	ToUserAccount   string  `json:"toUserAccount,omitempty"`
	TokenAmount     float64 `json:"tokenAmount,omitempty"`
}

// Events holds the provider's parsed event sub-objects. The raw bytes are
// preserved alongside the typed views so normalized records can pass the full
// object through for audit.
type Events struct {
	NFT          *NFTEvent           `json:"nft,omitempty"`
	Compressed   []CompressedEvent   `json:"compressed,omitempty"`
	SetAuthority []SetAuthorityEvent `json:"setAuthority,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON keeps a verbatim copy of the events object in addition to the
// typed fields.
func (e *Events) UnmarshalJSON(data []byte) error {
	type plain Events
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Events(p)
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes back the verbatim copy when one was captured.
func (e Events) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	type plain Events
	return json.Marshal(plain(e))
}

// Raw returns the verbatim events object, or "{}" when none was captured.
func (e Events) Raw() json.RawMessage {
	if len(e.raw) > 0 {
		return e.raw
	}
	return json.RawMessage("{}")
}

// NFTEvent is the structured NFT sub-object attached to sale, listing and
// some mint transactions. Marketplaces populate it unevenly.
type NFTEvent struct {
	Seller             string         `json:"seller,omitempty"`
	Buyer              string         `json:"buyer,omitempty"`
	Amount             int64          `json:"amount,omitempty"`
	Price              int64          `json:"price,omitempty"`
	NFTs               []NFTToken     `json:"nfts,omitempty"`
	SaleType           string         `json:"saleType,omitempty"`
	Source             string         `json:"source,omitempty"`
	Mint               string         `json:"mint,omitempty"`
	TokenStandard      string         `json:"tokenStandard,omitempty"`
	Owner              string         `json:"owner,omitempty"`
	Name               string         `json:"name,omitempty"`
	Symbol             string         `json:"symbol,omitempty"`
	URI                string         `json:"uri,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	Creators           []Creator      `json:"creators,omitempty"`
	Collection         string         `json:"collection,omitempty"`
	CollectionVerified bool           `json:"collectionVerified,omitempty"`
	Royalties          float64        `json:"royalties,omitempty"`
	RoyaltyFee         int64          `json:"royaltyFee,omitempty"`
	MarketplaceFee     int64          `json:"marketplaceFee,omitempty"`
	AuctionHouse       string         `json:"auctionHouse,omitempty"`
	Marketplace        string         `json:"marketplace,omitempty"`
	TokenAccount       string         `json:"tokenAccount,omitempty"`
	TokenSize          int64          `json:"tokenSize,omitempty"`
	Expiry             int64          `json:"expiry,omitempty"`
}

// NFTToken identifies one NFT involved in an event.
type NFTToken struct {
	Mint          string `json:"mint"`
	TokenStandard string `json:"tokenStandard,omitempty"`
}

// Creator is one entry of an NFT creator list.
type Creator struct {
	Address  string `json:"address"`
	Share    int    `json:"share"`
	Verified bool   `json:"verified"`
}

// CompressedEvent is one entry of the events.compressed array emitted for
// compressed (Bubblegum) NFT mints.
type CompressedEvent struct {
	AssetID      string          `json:"assetId,omitempty"`
	LeafIndex    int64           `json:"leafIndex,omitempty"`
	TreeID       string          `json:"treeId,omitempty"`
	TreeDelegate string          `json:"treeDelegate,omitempty"`
	NewLeafOwner string          `json:"newLeafOwner,omitempty"`
	CanopyDepth  int64           `json:"canopyDepth,omitempty"`
	ProofPath    json.RawMessage `json:"proofPath,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

// SetAuthorityEvent records an authority change on an account.
type SetAuthorityEvent struct {
	Account string `json:"account"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}
