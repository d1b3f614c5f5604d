package normalize

import (
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/utils"
)

// Mint maps a raw mint event into a MintRecord. Mint payloads are the least
// uniform of the four categories, so most fields walk a multi-step fallback
// chain: structured nft event, token transfers, instruction heuristics, then
// free-text description scraping.
func Mint(raw *event.RawEvent) MintRecord {
	nft := raw.Events.NFT
	if nft == nil {
		nft = &event.NFTEvent{}
	}

	// Mint + token standard: nft event token list, then the event's direct
	// mint, then the first token transfer.
	var mint, tokenStandard string
	switch {
	case len(nft.NFTs) > 0:
		mint = nft.NFTs[0].Mint
		tokenStandard = nft.NFTs[0].TokenStandard
	case nft.Mint != "":
		mint = nft.Mint
		tokenStandard = firstNonEmpty(nft.TokenStandard, "NonFungible")
	}
	if mint == "" && len(raw.TokenTransfers) > 0 {
		mint = raw.TokenTransfers[0].Mint
		tokenStandard = firstNonEmpty(raw.TokenTransfers[0].TokenStandard, "NonFungible")
	}

	// Owner: nft event, then transfer destination, then buyer.
	owner := nft.Owner
	if owner == "" && len(raw.TokenTransfers) > 0 {
		owner = raw.TokenTransfers[0].ToUserAccount
	}
	if owner == "" {
		owner = nft.Buyer
	}

	// Name/symbol/uri: metadata map first, direct event fields second.
	meta := nft.Metadata
	name := firstNonEmpty(metaString(meta, "name"), nft.Name)
	symbol := firstNonEmpty(metaString(meta, "symbol"), nft.Symbol)
	uri := firstNonEmpty(metaString(meta, "uri"), nft.URI)

	// Creators: event list, metadata list, fee payer as presumed primary
	// creator, then token-program inner instruction accounts.
	creators := nft.Creators
	if len(creators) == 0 && meta != nil {
		creators = creatorsFromMeta(meta)
	}
	if len(creators) == 0 && raw.FeePayer != "" {
		// In most Metaplex mints the fee payer is the primary creator.
		creators = []event.Creator{{Address: raw.FeePayer, Share: 100, Verified: true}}
	}
	if len(creators) == 0 {
		creators = creatorsFromTokenInstructions(raw.Instructions, mint)
	}

	// Collection: event first, metadata second. Metadata collections appear
	// both as plain strings and as {name, key} objects.
	collection := nft.Collection
	collectionVerified := nft.CollectionVerified
	if collection == "" && meta != nil {
		switch v := meta["collection"].(type) {
		case string:
			collection = v
		case map[string]any:
			collection = firstNonEmpty(metaString(v, "name"), metaString(v, "key"))
		}
		collectionVerified = metaBool(meta, "collectionVerified")
	}

	// Royalties: reported directly, or derived from basis points.
	royalties := nft.Royalties
	var sellerFeeBasisPoints int64
	if royalties == 0 {
		if bps, ok := metaNumber(meta, "seller_fee_basis_points"); ok {
			sellerFeeBasisPoints = int64(bps)
			royalties = bps / 100
		}
	}

	// Mint authority: the fee payer by default, overridden by setAuthority
	// events targeting the mint account.
	mintAuthority := raw.FeePayer
	for _, auth := range raw.Events.SetAuthority {
		if auth.Account == mint && auth.From != "" {
			mintAuthority = auth.From
		}
	}

	metaplexInstrs := instructionsByProgram(raw.Instructions, MetadataProgramID)

	// Opaque payload scraping: the metadata instruction's data sometimes
	// carries name/symbol/uri as recognizable runs.
	if len(metaplexInstrs) > 0 && len(metaplexInstrs[0].Data) > 50 {
		dataStr := metaplexInstrs[0].Data
		if name == "" {
			name = nameFromData(dataStr)
		}
		if symbol == "" {
			symbol = symbolFromData(dataStr)
		}
		if uri == "" {
			uri = uriFromData(dataStr)
		}
	}

	// Description scraping, then synthetic values from what we do know.
	if name == "" {
		name = nameFromDescription(raw.Description)
	}
	if symbol == "" {
		symbol = symbolFromDescription(raw.Description)
	}
	if name == "" && mint != "" {
		name = "NFT " + utils.Truncate(mint, 8)
	}
	if symbol == "" {
		symbol = symbolFromName(name)
	}
	if uri == "" && mint != "" && len(metaplexInstrs) > 0 && len(instructionsByProgram(raw.Instructions, TokenProgramID)) > 0 {
		// Standard Metaplex mints typically store metadata on Arweave.
		uri = "https://arweave.net/" + mint
	}

	// The 4th instruction conventionally carries authority/owner accounts in
	// Metaplex mints; fall back to the metadata instruction itself.
	if len(metaplexInstrs) > 0 {
		mainInstr := metaplexInstrs[0]
		if len(raw.Instructions) >= 4 {
			mainInstr = raw.Instructions[3]
		}
		if mintAuthority == "" && len(mainInstr.Accounts) > 0 {
			mintAuthority = mainInstr.Accounts[0]
		}
		for _, inner := range instructionsByProgram(mainInstr.InnerInstructions, TokenProgramID) {
			if len(inner.Accounts) >= 3 {
				if mintAuthority == "" {
					mintAuthority = inner.Accounts[1]
				}
				if owner == "" {
					owner = inner.Accounts[2]
				}
			}
		}
	}

	// Instruction-derived primary fields prefer the metadata instruction.
	var programID, data string
	if len(metaplexInstrs) > 0 {
		programID = metaplexInstrs[0].ProgramID
		data = metaplexInstrs[0].Data
	} else if in, ok := instructionAt(raw.Instructions, 0); ok {
		programID = in.ProgramID
		data = in.Data
	}

	// Raw metadata first so the synthesized keys win on collision.
	enriched := make(map[string]any, len(meta)+6)
	for k, v := range meta {
		enriched[k] = v
	}
	enriched["tokenStandard"] = firstNonEmpty(tokenStandard, "NonFungible")
	enriched["source"] = raw.Source
	enriched["mintedAt"] = raw.Timestamp
	enriched["mintAuthority"] = mintAuthority
	enriched["owner"] = owner
	enriched["tokenIdentifier"] = tokenIdentifier(raw.Description)

	return MintRecord{
		Signature:            raw.Signature,
		Mint:                 mint,
		TokenStandard:        firstNonEmpty(tokenStandard, "NonFungible"),
		MintAuthority:        firstNonEmpty(mintAuthority, raw.FeePayer),
		Owner:                owner,
		Slot:                 raw.Slot,
		BlockTime:            raw.Timestamp,
		FeePayer:             raw.FeePayer,
		Collection:           collection,
		CollectionVerified:   collectionVerified,
		Royalties:            royalties,
		Name:                 name,
		Symbol:               symbol,
		URI:                  uri,
		TxFee:                lamportsToSol(raw.Fee),
		SellerFeeBasisPoints: sellerFeeBasisPoints,

		Creators: mustJSON(creators, "[]"),
		Metadata: mustJSON(enriched, "{}"),

		ProgramID:         programID,
		Accounts:          flattenAccounts(raw.Instructions),
		Data:              data,
		InnerInstructions: mustJSON(flattenInner(raw.Instructions), "[]"),

		Description:      raw.Description,
		Events:           raw.Events.Raw(),
		Fee:              raw.Fee,
		NativeTransfers:  rawOrNull(raw.NativeTransfers, "[]"),
		Source:           raw.Source,
		Timestamp:        raw.Timestamp,
		TokenTransfers:   mustJSON(raw.TokenTransfers, "[]"),
		TransactionError: rawOrNull(raw.TransactionError, "null"),
		Type:             raw.Type,
	}
}

// creatorsFromMeta decodes a creators list out of an untyped metadata map.
func creatorsFromMeta(meta map[string]any) []event.Creator {
	list, ok := meta["creators"].([]any)
	if !ok {
		return nil
	}
	var out []event.Creator
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := event.Creator{Address: metaString(m, "address")}
		if share, ok := metaNumber(m, "share"); ok {
			c.Share = int(share)
		}
		c.Verified = metaBool(m, "verified")
		if c.Address != "" {
			out = append(out, c)
		}
	}
	return out
}

// creatorsFromTokenInstructions infers creator addresses from token-program
// inner instructions, filtering out known system addresses and the mint
// itself. The first surviving address is treated as the primary creator.
func creatorsFromTokenInstructions(instrs []event.Instruction, mint string) []event.Creator {
	var candidates []string
	for _, inner := range flattenInner(instrs) {
		if inner.ProgramID == TokenProgramID && len(inner.Accounts) >= 3 {
			candidates = append(candidates, inner.Accounts...)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	system := map[string]bool{
		TokenProgramID:    true,
		MetadataProgramID: true,
		SystemProgramID:   true,
	}

	var filtered []string
	for _, addr := range utils.Dedup(candidates) {
		if !system[addr] && addr != mint {
			filtered = append(filtered, addr)
		}
	}

	creators := make([]event.Creator, 0, len(filtered))
	for i, addr := range filtered {
		share := 0
		if i == 0 {
			share = 100
		}
		creators = append(creators, event.Creator{Address: addr, Share: share, Verified: i == 0})
	}
	return creators
}
