package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskValuesRoundTrip(t *testing.T) {
	in := Task{
		Category: event.CategorySale,
		JobID:    42,
		Payload:  json.RawMessage(`{"signature":"abc","type":"NFT_SALE"}`),
		Attempt:  2,
	}

	out, err := ParseTask(taskValues(in))
	require.NoError(t, err)
	assert.Equal(t, in.Category, out.Category)
	assert.Equal(t, in.JobID, out.JobID)
	assert.JSONEq(t, string(in.Payload), string(out.Payload))
	assert.Equal(t, in.Attempt, out.Attempt)
}

func TestParseTaskRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"bad category", map[string]interface{}{"category": "nft_burn", "job_id": "1", "payload": "{}"}},
		{"bad job id", map[string]interface{}{"category": "nft_mint", "job_id": "x", "payload": "{}"}},
		{"missing payload", map[string]interface{}{"category": "nft_mint", "job_id": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTask(tt.values)
			assert.Error(t, err)
		})
	}
}

func TestDeadLetterStreamNames(t *testing.T) {
	assert.Equal(t, "nft-mint-queue:dead", DeadLetterStream(event.CategoryMint))
	assert.Equal(t, "nft-sale-queue:dead", DeadLetterStream(event.CategorySale))
	assert.Equal(t, "nft-listing-queue:dead", DeadLetterStream(event.CategoryListing))
	assert.Equal(t, "compressed-nft-mint-queue:dead", DeadLetterStream(event.CategoryCompressedMint))
}
