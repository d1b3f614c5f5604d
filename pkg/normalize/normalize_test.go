package normalize

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleEvent() *event.RawEvent {
	return &event.RawEvent{
		Signature: "3dY9Qn1nNj7Vkq8XzR2mP4tW5sL6bA7cE8fG9hJ1kM2n",
		Slot:      224_113_201,
		Timestamp: 1_693_526_400,
		Fee:       5_000,
		FeePayer:  "FeePayer111111111111111111111111111111111111",
		Type:      "NFT_SALE",
		Source:    "MAGIC_EDEN",
		Events: event.Events{
			NFT: &event.NFTEvent{
				Seller: "Se11er111111111111111111111111111111111111",
				Buyer:  "Buyer1111111111111111111111111111111111111",
				Amount: 1_500_000_000,
				NFTs: []event.NFTToken{
					{Mint: "Mint11111111111111111111111111111111111111", TokenStandard: "NonFungible"},
				},
			},
		},
	}
}

func TestSaleLamportsToSol(t *testing.T) {
	rec := Sale(saleEvent())

	assert.Equal(t, 1.5, rec.Price)
	assert.Equal(t, "SOL", rec.Currency)
	assert.Equal(t, "MAGIC_EDEN", rec.Marketplace)
	assert.Equal(t, "Mint11111111111111111111111111111111111111", rec.Mint)
	assert.Equal(t, "Se11er111111111111111111111111111111111111", rec.Seller)
	assert.Equal(t, "Buyer1111111111111111111111111111111111111", rec.Buyer)
	assert.Equal(t, 0.000005, rec.TxFee)
}

func TestSaleMarketplacePrefersEventSource(t *testing.T) {
	raw := saleEvent()
	raw.Events.NFT.Source = "TENSOR"

	rec := Sale(raw)
	assert.Equal(t, "TENSOR", rec.Marketplace)
}

func TestMintNameAndSymbolFromDescription(t *testing.T) {
	raw := &event.RawEvent{
		Signature:   "sig-mint",
		Type:        "NFT_MINT",
		Description: "User minted CoolCat #42 for 1.5 SOL",
	}

	rec := Mint(raw)
	assert.Equal(t, "CoolCat", rec.Name)
	assert.Equal(t, "CoolCat", rec.Symbol)
}

func TestMintTokenNumberOnlyDescription(t *testing.T) {
	raw := &event.RawEvent{
		Signature:   "sig-mint",
		Type:        "NFT_MINT",
		Description: "Transaction involving token #42",
	}

	rec := Mint(raw)
	assert.Equal(t, "Token #42", rec.Name)
}

func TestMintMetadataFieldsWinOverEventFields(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-mint",
		Type:      "NFT_MINT",
		Events: event.Events{
			NFT: &event.NFTEvent{
				Name:   "Event Name",
				Symbol: "EVT",
				URI:    "https://example.com/event.json",
				Metadata: map[string]any{
					"name":   "Meta Name",
					"symbol": "META",
					"uri":    "https://example.com/meta.json",
				},
			},
		},
	}

	rec := Mint(raw)
	assert.Equal(t, "Meta Name", rec.Name)
	assert.Equal(t, "META", rec.Symbol)
	assert.Equal(t, "https://example.com/meta.json", rec.URI)
}

func TestMintExtractedKeysWinOverRawMetadata(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-mint",
		Type:      "NFT_MINT",
		Source:    "CANDY_MACHINE_V3",
		Events: event.Events{
			NFT: &event.NFTEvent{
				Owner: "RealOwner111111111111111111111111111111111",
				Metadata: map[string]any{
					"owner":      "payload-owner",
					"source":     "payload-source",
					"customNote": "kept",
				},
			},
		},
	}

	rec := Mint(raw)

	var enriched map[string]any
	require.NoError(t, json.Unmarshal(rec.Metadata, &enriched))
	assert.Equal(t, "RealOwner111111111111111111111111111111111", enriched["owner"])
	assert.Equal(t, "CANDY_MACHINE_V3", enriched["source"])
	assert.Equal(t, "kept", enriched["customNote"])
}

func TestMintFeePayerIsPresumedCreator(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-mint",
		Type:      "NFT_MINT",
		FeePayer:  "FeePayer111111111111111111111111111111111111",
	}

	rec := Mint(raw)

	var creators []event.Creator
	require.NoError(t, json.Unmarshal(rec.Creators, &creators))
	require.Len(t, creators, 1)
	assert.Equal(t, "FeePayer111111111111111111111111111111111111", creators[0].Address)
	assert.Equal(t, 100, creators[0].Share)
	assert.True(t, creators[0].Verified)
}

func TestMintSymbolStaysValidUTF8(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
	}{
		{"ölig äpfel", "ÖÄ"},
		{"ööö", "ÖÖÖ"},
	}

	for _, tt := range tests {
		raw := &event.RawEvent{
			Signature: "sig-mint",
			Type:      "NFT_MINT",
			Events: event.Events{
				NFT: &event.NFTEvent{Metadata: map[string]any{"name": tt.name}},
			},
		}

		rec := Mint(raw)
		assert.True(t, utf8.ValidString(rec.Symbol), tt.name)
		assert.Equal(t, tt.symbol, rec.Symbol)
	}
}

func TestListingPriceFallsBackToListPrice(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-listing",
		Type:      "NFT_LISTING",
		Source:    "MAGIC_EDEN",
		Events: event.Events{
			NFT: &event.NFTEvent{
				Seller: "Se11er111111111111111111111111111111111111",
				Price:  2_000_000_000,
			},
		},
	}

	rec := Listing(raw)
	assert.Equal(t, 2.0, rec.Price)
	assert.Equal(t, "MAGIC_EDEN", rec.Marketplace)
	assert.Equal(t, "active", rec.ListingState)
	assert.Equal(t, int64(1), rec.TokenSize)
}

func TestListingMintFromInstructionAccounts(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-listing",
		Type:      "NFT_LISTING",
		Instructions: []event.Instruction{
			{ProgramID: "prog0"},
			{ProgramID: "prog1"},
			{
				ProgramID: "M2mx93ekt1fmXSVkTrUL9xVFHkmME8HTUi5Cyc5aF7K",
				Accounts: []string{
					"acc0", "acc1", "acc2", "acc3",
					"Mint11111111111111111111111111111111111111",
					"acc5",
				},
			},
		},
	}

	rec := Listing(raw)
	assert.Equal(t, "Mint11111111111111111111111111111111111111", rec.Mint)
	assert.Equal(t, "M2mx93ekt1fmXSVkTrUL9xVFHkmME8HTUi5Cyc5aF7K", rec.ProgramID)
}

func TestCompressedMintFromCompressedEvents(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-cmint",
		Type:      "COMPRESSED_NFT_MINT",
		FeePayer:  "FeePayer111111111111111111111111111111111111",
		Events: event.Events{
			Compressed: []event.CompressedEvent{
				{
					AssetID:      "Asset1111111111111111111111111111111111111",
					LeafIndex:    42,
					TreeID:       "Tree11111111111111111111111111111111111111",
					NewLeafOwner: "Owner1111111111111111111111111111111111111",
					CanopyDepth:  14,
					Metadata: map[string]any{
						"name":                 "Compressed #42",
						"sellerFeeBasisPoints": float64(500),
					},
				},
			},
		},
		Instructions: []event.Instruction{
			{ProgramID: "prog0"},
			{ProgramID: "prog1"},
			{
				ProgramID:         "BGUMAp9Gq7iTEuizy4pqaxsTyUCBK68MDfK752saRPUY",
				InnerInstructions: []event.Instruction{{ProgramID: NoopProgramID}},
			},
		},
	}

	rec := CompressedMint(raw)
	assert.Equal(t, "Asset1111111111111111111111111111111111111", rec.AssetID)
	assert.Equal(t, rec.AssetID, rec.Mint)
	assert.Equal(t, int64(42), rec.LeafIndex)
	assert.Equal(t, "Tree11111111111111111111111111111111111111", rec.MerkleTree)
	assert.Equal(t, "Owner1111111111111111111111111111111111111", rec.Owner)
	assert.Equal(t, int64(14), rec.CanopyDepth)
	assert.Equal(t, "Compressed #42", rec.Name)
	assert.Equal(t, int64(500), rec.SellerFeeBasisPoints)
	assert.Equal(t, 5.0, rec.Royalties)
	assert.Equal(t, NoopProgramID, rec.CompressionProgram)
}

func TestCompressedExtractedKeysWinOverRawMetadata(t *testing.T) {
	raw := &event.RawEvent{
		Signature: "sig-cmint",
		Type:      "COMPRESSED_NFT_MINT",
		Events: event.Events{
			Compressed: []event.CompressedEvent{
				{
					AssetID: "Asset1111111111111111111111111111111111111",
					Metadata: map[string]any{
						"assetId": "payload-asset",
						"owner":   "payload-owner",
					},
				},
			},
		},
	}

	rec := CompressedMint(raw)

	var enriched map[string]any
	require.NoError(t, json.Unmarshal(rec.Metadata, &enriched))
	assert.Equal(t, "Asset1111111111111111111111111111111111111", enriched["assetId"])
}

func TestDefaultsOnEmptyEnvelope(t *testing.T) {
	empty := &event.RawEvent{Signature: "sig-empty"}

	for _, cat := range event.All() {
		rec, err := Normalize(cat, empty)
		require.NoError(t, err, cat.String())
		assert.Equal(t, "sig-empty", rec.NaturalKey())
		assert.Equal(t, cat, rec.EventCategory())

		// Fixed-shape fields degrade to typed defaults; only the
		// transaction error may encode as null.
		body, err := json.Marshal(rec)
		require.NoError(t, err)

		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(body, &fields))
		for name, value := range fields {
			if name == "transactionError" {
				continue
			}
			assert.NotEqual(t, "null", string(value), "%s field %s", cat, name)
		}
	}
}

func TestNormalizeRejectsUnknownCategory(t *testing.T) {
	_, err := Normalize(event.CategoryUnknown, &event.RawEvent{})
	require.Error(t, err)
}
