package normalize

import (
	"github.com/solindex-labs/solindex/pkg/event"
)

// listingMainInstruction is the conventional index of the instruction that
// carries the listing payload in observed marketplace transactions.
const listingMainInstruction = 2

// listingMintAccountIndex is the conventional position of the mint in the
// main listing instruction's account list.
const listingMintAccountIndex = 4

// Listing maps a raw listing event into a ListingRecord.
func Listing(raw *event.RawEvent) ListingRecord {
	nft := raw.Events.NFT
	if nft == nil {
		nft = &event.NFTEvent{}
	}

	// Mint: token list, direct mint, then the positional convention over the
	// main instruction's accounts.
	var mint, tokenStandard string
	switch {
	case len(nft.NFTs) > 0:
		mint = nft.NFTs[0].Mint
		tokenStandard = nft.NFTs[0].TokenStandard
	case nft.Mint != "":
		mint = nft.Mint
	default:
		if len(raw.Instructions) > listingMainInstruction {
			accounts := raw.Instructions[listingMainInstruction].Accounts
			if len(accounts) > listingMintAccountIndex+1 {
				mint = accounts[listingMintAccountIndex]
			}
		}
	}

	// Primary instruction fields: conventional index, first instruction as
	// fallback.
	var programID, data string
	if in, ok := instructionAt(raw.Instructions, listingMainInstruction); ok {
		programID = in.ProgramID
		data = in.Data
	}

	// Price: amount preferred over the listing price field.
	price := lamportsToSol(nft.Amount)
	if price == 0 {
		price = lamportsToSol(nft.Price)
	}

	meta := map[string]any{
		"tokenStandard":   tokenStandard,
		"source":          raw.Source,
		"saleType":        nft.SaleType,
		"listingProgram":  programID,
		"listedAt":        raw.Timestamp,
		"tokenIdentifier": tokenIdentifier(raw.Description),
	}
	if nft.Metadata != nil {
		meta["nftMetadata"] = nft.Metadata
	}
	if accounts := tokenBalanceAccounts(raw.AccountData); len(accounts) > 0 {
		meta["tokenAccounts"] = accounts
	}

	tokenSize := nft.TokenSize
	if tokenSize == 0 {
		tokenSize = 1
	}

	return ListingRecord{
		Signature:    raw.Signature,
		Mint:         mint,
		Seller:       nft.Seller,
		Marketplace:  firstNonEmpty(nft.Marketplace, raw.Source),
		Price:        price,
		Currency:     "SOL",
		AuctionHouse: nft.AuctionHouse,
		Slot:         raw.Slot,
		BlockTime:    raw.Timestamp,
		FeePayer:     raw.FeePayer,
		TokenSize:    tokenSize,
		Expiry:       nft.Expiry,
		ListingTime:  raw.Timestamp,
		ListingState: "active",
		TokenAccount: nft.TokenAccount,

		Metadata: mustJSON(meta, "{}"),

		ProgramID:         programID,
		Accounts:          flattenAccounts(raw.Instructions),
		Data:              data,
		InnerInstructions: mustJSON(flattenInner(raw.Instructions), "[]"),

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

// tokenBalanceAccounts selects accountData entries that carry token balance
// changes; listings often reveal the token account this way.
func tokenBalanceAccounts(accountData []event.AccountData) []event.AccountData {
	var out []event.AccountData
	for _, acc := range accountData {
		if len(acc.TokenBalanceChanges) > 0 {
			out = append(out, acc)
		}
	}
	return out
}
