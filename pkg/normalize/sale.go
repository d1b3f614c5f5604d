package normalize

import (
	"github.com/solindex-labs/solindex/pkg/event"
)

// Sale maps a raw sale event into a SaleRecord. Pure and total: missing
// fields degrade to typed defaults, never to an error.
func Sale(raw *event.RawEvent) SaleRecord {
	nft := raw.Events.NFT
	if nft == nil {
		nft = &event.NFTEvent{}
	}

	var mint, tokenStandard string
	if len(nft.NFTs) > 0 {
		mint = nft.NFTs[0].Mint
		tokenStandard = nft.NFTs[0].TokenStandard
	}

	var programID, data string
	if in, ok := instructionAt(raw.Instructions, 0); ok {
		programID = in.ProgramID
		data = in.Data
	}

	// Metadata keeps whatever the structured event carried plus the token
	// identity, so a partially-populated sale still has audit context. The
	// extracted keys win on collision.
	meta := make(map[string]any, len(nft.Metadata)+2)
	for k, v := range nft.Metadata {
		meta[k] = v
	}
	meta["tokenStandard"] = tokenStandard
	if len(nft.NFTs) > 0 {
		meta["nftInfo"] = nft.NFTs[0]
	}

	return SaleRecord{
		Signature:      raw.Signature,
		Mint:           mint,
		Seller:         nft.Seller,
		Buyer:          nft.Buyer,
		Marketplace:    firstNonEmpty(nft.Source, raw.Source),
		Price:          lamportsToSol(nft.Amount),
		Currency:       "SOL",
		AuctionHouse:   nft.AuctionHouse,
		Slot:           raw.Slot,
		BlockTime:      raw.Timestamp,
		TokenStandard:  tokenStandard,
		FeePayer:       raw.FeePayer,
		SaleType:       nft.SaleType,
		TxFee:          lamportsToSol(raw.Fee),
		RoyaltyFee:     lamportsToSol(nft.RoyaltyFee),
		MarketplaceFee: lamportsToSol(nft.MarketplaceFee),

		ProgramID:         programID,
		Accounts:          flattenAccounts(raw.Instructions),
		Data:              data,
		InnerInstructions: mustJSON(flattenInner(raw.Instructions), "[]"),
		Metadata:          mustJSON(meta, "{}"),

		Description:      raw.Description,
		AccountData:      mustJSON(raw.AccountData, "[]"),
		Events:           raw.Events.Raw(),
		Fee:              raw.Fee,
		Instructions:     mustJSON(raw.Instructions, "[]"),
		NativeTransfers:  rawOrNull(raw.NativeTransfers, "[]"),
		Source:           raw.Source,
		Timestamp:        raw.Timestamp,
		TokenTransfers:   mustJSON(raw.TokenTransfers, "[]"),
		TransactionError: rawOrNull(raw.TransactionError, "null"),
		Type:             raw.Type,
	}
}
