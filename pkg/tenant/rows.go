package tenant

import (
	"encoding/json"
	"fmt"

	"github.com/solindex-labs/solindex/pkg/normalize"
)

// jsonText renders a raw JSON field for insertion. Both engines receive the
// JSON as text, so an empty field becomes an explicit null.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

func accounts(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// Values returns the insert values for a record, in the same order as the
// record category's Columns definition.
func Values(rec normalize.Record) ([]any, error) {
	switch r := rec.(type) {
	case normalize.SaleRecord:
		return saleValues(&r), nil
	case *normalize.SaleRecord:
		return saleValues(r), nil
	case normalize.MintRecord:
		return mintValues(&r), nil
	case *normalize.MintRecord:
		return mintValues(r), nil
	case normalize.ListingRecord:
		return listingValues(&r), nil
	case *normalize.ListingRecord:
		return listingValues(r), nil
	case normalize.CompressedMintRecord:
		return compressedMintValues(&r), nil
	case *normalize.CompressedMintRecord:
		return compressedMintValues(r), nil
	default:
		return nil, fmt.Errorf("unsupported record type %T", rec)
	}
}

func saleValues(r *normalize.SaleRecord) []any {
	return []any{
		r.Signature,
		r.Mint,
		r.Seller,
		r.Buyer,
		r.Marketplace,
		r.Price,
		r.Currency,
		r.AuctionHouse,
		r.Slot,
		r.BlockTime,
		r.TokenStandard,
		r.FeePayer,
		r.SaleType,
		r.TxFee,
		r.RoyaltyFee,
		r.MarketplaceFee,
		r.ProgramID,
		accounts(r.Accounts),
		r.Data,
		jsonText(r.InnerInstructions),
		jsonText(r.Metadata),
		r.Description,
		jsonText(r.AccountData),
		jsonText(r.Events),
		r.Fee,
		jsonText(r.Instructions),
		jsonText(r.NativeTransfers),
		r.Source,
		r.Timestamp,
		jsonText(r.TokenTransfers),
		jsonText(r.TransactionError),
		r.Type,
	}
}

func mintValues(r *normalize.MintRecord) []any {
	return []any{
		r.Signature,
		r.Mint,
		r.TokenStandard,
		r.MintAuthority,
		r.Owner,
		r.Slot,
		r.BlockTime,
		r.FeePayer,
		r.Collection,
		r.CollectionVerified,
		r.Royalties,
		r.Name,
		r.Symbol,
		r.URI,
		r.TxFee,
		r.SellerFeeBasisPoints,
		jsonText(r.Creators),
		jsonText(r.Metadata),
		r.ProgramID,
		accounts(r.Accounts),
		r.Data,
		jsonText(r.InnerInstructions),
		r.Description,
		jsonText(r.Events),
		r.Fee,
		jsonText(r.NativeTransfers),
		r.Source,
		r.Timestamp,
		jsonText(r.TokenTransfers),
		jsonText(r.TransactionError),
		r.Type,
	}
}

func listingValues(r *normalize.ListingRecord) []any {
	return []any{
		r.Signature,
		r.Mint,
		r.Seller,
		r.Marketplace,
		r.Price,
		r.Currency,
		r.AuctionHouse,
		r.Slot,
		r.BlockTime,
		r.FeePayer,
		r.TokenSize,
		r.Expiry,
		r.ListingTime,
		r.ListingState,
		r.TokenAccount,
		jsonText(r.Metadata),
		r.ProgramID,
		accounts(r.Accounts),
		r.Data,
		jsonText(r.InnerInstructions),
		r.Description,
		jsonText(r.AccountData),
		jsonText(r.Events),
		r.Fee,
		jsonText(r.Instructions),
		jsonText(r.NativeTransfers),
		r.Source,
		r.Timestamp,
		jsonText(r.TokenTransfers),
		jsonText(r.TransactionError),
		r.Type,
	}
}

func compressedMintValues(r *normalize.CompressedMintRecord) []any {
	return []any{
		r.Signature,
		r.Mint,
		r.TokenStandard,
		r.MintAuthority,
		r.Owner,
		r.MerkleTree,
		r.LeafIndex,
		r.Slot,
		r.BlockTime,
		r.FeePayer,
		r.Collection,
		r.CollectionVerified,
		r.Royalties,
		r.Name,
		r.Symbol,
		r.URI,
		r.TxFee,
		r.SellerFeeBasisPoints,
		r.TreeAuthority,
		r.CompressionProgram,
		r.AssetID,
		r.CanopyDepth,
		jsonText(r.Creators),
		jsonText(r.Metadata),
		jsonText(r.CompressedNFTMetadata),
		jsonText(r.ProofPath),
		r.ProgramID,
		accounts(r.Accounts),
		r.Data,
		jsonText(r.InnerInstructions),
		r.Description,
		jsonText(r.AccountData),
		jsonText(r.Events),
		r.Fee,
		jsonText(r.Instructions),
		jsonText(r.NativeTransfers),
		r.Source,
		r.Timestamp,
		jsonText(r.TokenTransfers),
		jsonText(r.TransactionError),
		r.Type,
	}
}
