package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const saleBody = `[{
	"signature": "4yrbnM5KA4FcQe8hBYXJrVmGMSF7VPwFBNKKcvKp6zQa",
	"slot": 224113201,
	"timestamp": 1693526400,
	"fee": 5000,
	"feePayer": "9aE476sH92Vz7DMPyq5WLGqJjPWTB7AkeVdJAM3CaTXv",
	"type": "NFT_SALE",
	"source": "MAGIC_EDEN",
	"description": "User bought CoolCat #42 for 1.5 SOL",
	"events": {
		"nft": {
			"seller": "seller1111111111111111111111111111111111111",
			"buyer": "buyer22222222222222222222222222222222222222",
			"amount": 1500000000,
			"nfts": [{"mint": "mint333333333333333333333333333333333333333", "tokenStandard": "NonFungible"}]
		}
	}
}]`

func postWebhook(c *Controller, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.NewRouter().ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	st := new(mockStore)
	c := newTestController(t, st, new(mockWriter), new(mockProvisioner))
	c.WebhookSecret = "hook-secret"

	rec := postWebhook(c, saleBody, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	st.AssertNotCalled(t, "JobsByCategory", mock.Anything, mock.Anything)

	rec = postWebhook(c, saleBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcceptsConfiguredSecret(t *testing.T) {
	st := new(mockStore)
	c := newTestController(t, st, new(mockWriter), new(mockProvisioner))
	c.WebhookSecret = "hook-secret"

	st.On("JobsByCategory", mock.Anything, event.CategorySale).Return([]*store.Job{}, nil)

	rec := postWebhook(c, saleBody, map[string]string{"Authorization": "Bearer hook-secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookUnsupportedTypeIsRejectedWithoutSideEffects(t *testing.T) {
	st := new(mockStore)
	w := new(mockWriter)
	c := newTestController(t, st, w, new(mockProvisioner))

	body := `[{"signature": "sig1", "type": "NFT_BURN"}]`
	rec := postWebhook(c, body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported transaction type")
	st.AssertNotCalled(t, "JobsByCategory", mock.Anything, mock.Anything)
	w.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookDeliversSale(t *testing.T) {
	st := new(mockStore)
	w := new(mockWriter)
	c := newTestController(t, st, w, new(mockProvisioner))

	job := &store.Job{ID: 1, Name: "sales-job", Type: "nft_sale", Status: store.JobStatusRunning}
	st.On("JobsByCategory", mock.Anything, event.CategorySale).Return([]*store.Job{job}, nil)
	st.On("IncrementEntriesProcessed", mock.Anything, int64(1)).Return(nil)
	st.On("AppendLog", mock.Anything, int64(1), mock.Anything, store.LogTagInfo).Return(nil)

	w.On("Write", mock.Anything, job, mock.MatchedBy(func(rec normalize.Record) bool {
		sale, ok := rec.(normalize.SaleRecord)
		return ok &&
			sale.Price == 1.5 &&
			sale.Currency == "SOL" &&
			sale.Marketplace == "MAGIC_EDEN" &&
			sale.Mint == "mint333333333333333333333333333333333333333"
	})).Return(nil)

	rec := postWebhook(c, saleBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accepted int `json:"accepted"`
		Total    int `json:"total"`
		Results  []struct {
			Signature  string `json:"signature"`
			Accepted   bool   `json:"accepted"`
			Deliveries []struct {
				JobID  int64  `json:"jobId"`
				Status string `json:"status"`
			} `json:"deliveries"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	require.Len(t, resp.Results, 1)
	require.Len(t, resp.Results[0].Deliveries, 1)
	assert.Equal(t, "success", resp.Results[0].Deliveries[0].Status)

	w.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestWebhookMixedBatch(t *testing.T) {
	st := new(mockStore)
	w := new(mockWriter)
	c := newTestController(t, st, w, new(mockProvisioner))

	st.On("JobsByCategory", mock.Anything, event.CategoryMint).Return([]*store.Job{}, nil)

	body := `[
		{"signature": "sig1", "type": "NFT_MINT"},
		{"signature": "sig2", "type": "SWAP"}
	]`
	rec := postWebhook(c, body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Accepted int `json:"accepted"`
		Total    int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, 2, resp.Total)
}

func TestWebhookSingleObjectBody(t *testing.T) {
	st := new(mockStore)
	c := newTestController(t, st, new(mockWriter), new(mockProvisioner))

	st.On("JobsByCategory", mock.Anything, event.CategoryMint).Return([]*store.Job{}, nil)

	rec := postWebhook(c, `{"signature": "sig1", "type": "NFT_MINT"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookMalformedBody(t *testing.T) {
	c := newTestController(t, new(mockStore), new(mockWriter), new(mockProvisioner))

	assert.Equal(t, http.StatusBadRequest, postWebhook(c, "{not json", nil).Code)
	assert.Equal(t, http.StatusBadRequest, postWebhook(c, "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, postWebhook(c, "[]", nil).Code)
}
