// Package importer uploads mapped QFX records to the transactions API in fixed-size batches.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finance-tracker-backend/internal/qfx"
)

const (
	DefaultBatchSize = 100
	transactionsPath = "/api/transactions"
)

type Client struct {
	baseURL    string
	token      string
	batchSize  int
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		batchSize:  DefaultBatchSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchError records one rejected batch. Batch is numbered from 1.
type BatchError struct {
	Batch   int    `json:"batch"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type Result struct {
	Batches     int          `json:"batches"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Inserted    int          `json:"inserted"`
	BatchErrors []BatchError `json:"batchErrors,omitempty"`
}

// OK reports whether every batch was accepted.
func (r *Result) OK() bool {
	return r.Failed == 0
}

type uploadRequest struct {
	Transactions []qfx.APITransaction `json:"transactions"`
}

type uploadResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	Error   string `json:"error"`
}

// Upload sends txs in batches. A failed batch is recorded and the remaining batches are still sent;
// only a cancelled context stops the upload early.
func (c *Client) Upload(ctx context.Context, txs []qfx.APITransaction) (*Result, error) {
	res := &Result{}
	for start := 0; start < len(txs); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+c.batchSize, len(txs))
		batch := txs[start:end]
		res.Batches++

		inserted, err := c.send(ctx, batch)
		if err != nil {
			c.log.Warn().Err(err).Int("batch", res.Batches).Int("count", len(batch)).Msg("batch upload failed")
			res.Failed += len(batch)
			res.BatchErrors = append(res.BatchErrors, BatchError{Batch: res.Batches, Count: len(batch), Message: err.Error()})
			continue
		}
		c.log.Debug().Int("batch", res.Batches).Int("inserted", inserted).Msg("batch uploaded")
		res.Succeeded += len(batch)
		res.Inserted += inserted
	}
	return res, nil
}

func (c *Client) send(ctx context.Context, batch []qfx.APITransaction) (int, error) {
	body, err := json.Marshal(uploadRequest{Transactions: batch})
	if err != nil {
		return 0, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transactionsPath, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var out uploadResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = resp.Status
		}
		return 0, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("decode response: %w", decodeErr)
	}
	return out.Count, nil
}
