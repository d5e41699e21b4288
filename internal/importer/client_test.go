package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-tracker-backend/internal/qfx"
)

func records(n int) []qfx.APITransaction {
	out := make([]qfx.APITransaction, n)
	for i := range out {
		out[i] = qfx.APITransaction{Amount: -100, Date: "2024-01-15", TransactionDetails: "SHOP", ExternalID: fmt.Sprintf("FIT-%d", i)}
	}
	return out
}

func TestUpload_BatchesAndAuth(t *testing.T) {
	var sizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/transactions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req uploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sizes = append(sizes, len(req.Transactions))
		json.NewEncoder(w).Encode(uploadResponse{Message: "ok", Count: len(req.Transactions) - 1})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", WithBatchSize(100))
	res, err := c.Upload(context.Background(), records(250))
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 250, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 247, res.Inserted)
	assert.True(t, res.OK())
}

func TestUpload_FailedBatchDoesNotStopLaterBatches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Validation error at transaction 3: date is required"}`))
			return
		}
		var req uploadRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(uploadResponse{Count: len(req.Transactions)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", WithBatchSize(2))
	res, err := c.Upload(context.Background(), records(5))
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 3, res.Inserted)
	assert.False(t, res.OK())
	require.Len(t, res.BatchErrors, 1)
	assert.Equal(t, 2, res.BatchErrors[0].Batch)
	assert.Equal(t, 2, res.BatchErrors[0].Count)
	assert.Equal(t, "server returned 400: Validation error at transaction 3: date is required", res.BatchErrors[0].Message)
}

func TestUpload_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "t").Upload(context.Background(), records(1))
	require.NoError(t, err)
	require.Len(t, res.BatchErrors, 1)
	assert.Equal(t, "server returned 502: upstream down", res.BatchErrors[0].Message)
}

func TestUpload_TransportErrorIsPerBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res, err := NewClient(url, "t", WithBatchSize(1)).Upload(context.Background(), records(2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.BatchErrors, 2)
}

func TestUpload_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewClient("http://127.0.0.1:1", "t").Upload(ctx, records(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Batches)
}
