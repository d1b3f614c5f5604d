package normalize

import (
	"github.com/solindex-labs/solindex/pkg/event"
)

// compressedMainInstruction is the conventional index of the Bubblegum mint
// instruction in observed compressed-mint transactions.
const compressedMainInstruction = 2

// compressionPrograms are program ids recognized as the compression layer in
// inner instructions (the state-compression program and the no-op logger
// commonly paired with Bubblegum).
var compressionPrograms = map[string]bool{
	CompressionProgramID: true,
	NoopProgramID:        true,
}

// CompressedMint maps a raw compressed-mint event into a
// CompressedMintRecord. Compressed mints carry their payload in the
// events.compressed array rather than events.nft.
func CompressedMint(raw *event.RawEvent) CompressedMintRecord {
	var compressed event.CompressedEvent
	if len(raw.Events.Compressed) > 0 {
		compressed = raw.Events.Compressed[0]
	}

	assetID := compressed.AssetID
	// For compressed NFTs the asset id doubles as the mint identity.
	mint := assetID
	owner := compressed.NewLeafOwner
	mintAuthority := firstNonEmpty(compressed.TreeDelegate, raw.FeePayer)

	meta := compressed.Metadata
	name := metaString(meta, "name")
	symbol := metaString(meta, "symbol")
	uri := metaString(meta, "uri")
	tokenStandard := firstNonEmpty(metaString(meta, "tokenStandard"), "NonFungible")

	var sellerFeeBasisPoints int64
	var royalties float64
	if bps, ok := metaNumber(meta, "sellerFeeBasisPoints"); ok {
		sellerFeeBasisPoints = int64(bps)
		royalties = bps / 100
	}

	creators := creatorsFromMeta(meta)

	var collection string
	var collectionVerified bool
	if meta != nil {
		switch v := meta["collection"].(type) {
		case string:
			collection = v
		case map[string]any:
			collection = metaString(v, "key")
			collectionVerified = metaBool(v, "verified")
		}
	}

	// Main instruction by positional convention, first as fallback.
	mainInstr, hasInstr := instructionAt(raw.Instructions, compressedMainInstruction)
	var programID, data string
	if hasInstr {
		programID = mainInstr.ProgramID
		data = mainInstr.Data
	}

	// Compression program: main instruction's inner instructions first, then
	// every instruction and inner instruction against the allow-list.
	var compressionProgram string
	for _, inner := range mainInstr.InnerInstructions {
		if compressionPrograms[inner.ProgramID] {
			compressionProgram = inner.ProgramID
			break
		}
	}
	if compressionProgram == "" {
	scan:
		for _, in := range raw.Instructions {
			if compressionPrograms[in.ProgramID] {
				compressionProgram = in.ProgramID
				break
			}
			for _, inner := range in.InnerInstructions {
				if compressionPrograms[inner.ProgramID] {
					compressionProgram = inner.ProgramID
					break scan
				}
			}
		}
	}

	// Raw metadata first so the synthesized keys win on collision.
	enriched := make(map[string]any, len(meta)+10)
	for k, v := range meta {
		enriched[k] = v
	}
	enriched["assetId"] = assetID
	enriched["tokenStandard"] = tokenStandard
	enriched["source"] = raw.Source
	enriched["mintedAt"] = raw.Timestamp
	enriched["mintAuthority"] = mintAuthority
	enriched["owner"] = owner
	enriched["leafIndex"] = compressed.LeafIndex
	enriched["treeId"] = compressed.TreeID
	enriched["merkleTree"] = compressed.TreeID
	enriched["tokenIdentifier"] = tokenIdentifier(raw.Description)

	return CompressedMintRecord{
		Signature:            raw.Signature,
		Mint:                 mint,
		TokenStandard:        tokenStandard,
		MintAuthority:        mintAuthority,
		Owner:                owner,
		MerkleTree:           compressed.TreeID,
		LeafIndex:            compressed.LeafIndex,
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
		TreeAuthority:        compressed.TreeDelegate,
		CompressionProgram:   compressionProgram,
		AssetID:              assetID,
		CanopyDepth:          compressed.CanopyDepth,

		Creators:              mustJSON(creators, "[]"),
		Metadata:              mustJSON(enriched, "{}"),
		CompressedNFTMetadata: mustJSON(meta, "{}"),
		ProofPath:             rawOrNull(compressed.ProofPath, "[]"),

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
