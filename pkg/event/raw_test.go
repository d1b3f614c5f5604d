package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsPreservesRawBytes(t *testing.T) {
	body := []byte(`{
		"signature": "sig123",
		"slot": 250000000,
		"type": "NFT_SALE",
		"source": "MAGIC_EDEN",
		"events": {
			"nft": {"buyer": "buyer1", "seller": "seller1", "amount": 1000000000},
			"vendorSpecific": {"opaque": true}
		}
	}`)

	var raw RawEvent
	require.NoError(t, json.Unmarshal(body, &raw))

	require.NotNil(t, raw.Events.NFT)
	assert.Equal(t, "buyer1", raw.Events.NFT.Buyer)
	assert.Equal(t, int64(1000000000), raw.Events.NFT.Amount)

	// fields the typed view does not model survive in the raw copy
	assert.Contains(t, string(raw.Events.Raw()), "vendorSpecific")

	out, err := json.Marshal(raw.Events)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw.Events.Raw()), string(out))
}

func TestEventsRawDefaultsToEmptyObject(t *testing.T) {
	var e Events
	assert.Equal(t, "{}", string(e.Raw()))
}

func TestCompressedEnvelope(t *testing.T) {
	body := []byte(`{
		"signature": "sigc",
		"type": "COMPRESSED_NFT_MINT",
		"events": {
			"compressed": [
				{"assetId": "asset1", "leafIndex": 42, "treeId": "tree1", "canopyDepth": 14}
			]
		}
	}`)

	var raw RawEvent
	require.NoError(t, json.Unmarshal(body, &raw))
	require.Len(t, raw.Events.Compressed, 1)
	assert.Equal(t, "asset1", raw.Events.Compressed[0].AssetID)
	assert.Equal(t, int64(42), raw.Events.Compressed[0].LeafIndex)
	assert.Equal(t, int64(14), raw.Events.Compressed[0].CanopyDepth)
}
