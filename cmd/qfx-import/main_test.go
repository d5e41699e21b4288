package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleQFX = `OFXHEADER:100
<OFX><BANKMSGSRSV1><STMTTRNRS><STMTRS><BANKTRANLIST>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240115120000<TRNAMT>-4.50<FITID>FIT-1<NAME>STARBUCKS #4521</STMTTRN>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240116<TRNAMT>-15.49<FITID>FIT-2<NAME>NETFLIX.COM<MEMO>monthly</STMTTRN>
<STMTTRN><TRNTYPE>CREDIT<DTPOSTED>20240117<TRNAMT>2500.00<NAME>ACME PAYROLL</STMTTRN>
</BANKTRANLIST></STMTRS></STMTTRNRS></BANKMSGSRSV1></OFX>`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func apiServer(t *testing.T, requests *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		assert.Equal(t, "/api/transactions", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		var body struct {
			Transactions []map[string]any `json:"transactions"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Transactions imported", "count": len(body.Transactions)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "qfx-import", root.Use)
	assert.Contains(t, root.Short, "QFX")
	assert.True(t, root.SilenceUsage)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "upload")
	assert.Contains(t, names, "config")
}

func TestUpload(t *testing.T) {
	var requests int32
	srv := apiServer(t, &requests)
	file := writeFile(t, "jan.qfx", sampleQFX)
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "y\n", "upload", file,
		"--config", cfgPath, "--token", "secret-token", "--api-url", srv.URL, "--batch-size", "1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Contains(t, out, "Skipping record 3: missing FITID")
	assert.Contains(t, out, "Found 2 transactions")
	assert.Contains(t, out, "-4.50")
	assert.Contains(t, out, "NETFLIX.COM")
	assert.Contains(t, out, "Proceed? [y/N]")
	assert.Contains(t, out, "Uploaded 2 transactions (2 new, 0 already imported)")
}

func TestUpload_Cancelled(t *testing.T) {
	var requests int32
	srv := apiServer(t, &requests)
	file := writeFile(t, "jan.qfx", sampleQFX)

	_, err := execute(t, "n\n", "upload", file,
		"--config", filepath.Join(t.TempDir(), "config.toml"), "--token", "secret-token", "--api-url", srv.URL)
	assert.ErrorIs(t, err, errCancelled)
	assert.Zero(t, atomic.LoadInt32(&requests))
}

func TestUpload_UsesPersistedConfig(t *testing.T) {
	var requests int32
	srv := apiServer(t, &requests)
	file := writeFile(t, "jan.qfx", sampleQFX)
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	_, err := execute(t, "", "config", "set", "token", "secret-token", "--config", cfgPath)
	require.NoError(t, err)
	_, err = execute(t, "", "config", "set", "api_url", srv.URL, "--config", cfgPath)
	require.NoError(t, err)

	_, err = execute(t, "", "upload", file, "--config", cfgPath, "--yes")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestUpload_FailedBatchIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Validation failed"}`))
	}))
	t.Cleanup(srv.Close)
	file := writeFile(t, "jan.qfx", sampleQFX)

	out, err := execute(t, "", "upload", file, "--yes",
		"--config", filepath.Join(t.TempDir(), "config.toml"), "--token", "secret-token", "--api-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 batches failed")
	assert.Contains(t, out, "Validation failed")
}

func TestUpload_Errors(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	_, err := execute(t, "", "upload", writeFile(t, "a.qfx", sampleQFX), "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API token")

	_, err = execute(t, "", "upload", writeFile(t, "empty.qfx", "<OFX></OFX>"), "--config", cfgPath, "--token", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid transactions")

	_, err = execute(t, "", "upload", filepath.Join(t.TempDir(), "missing.qfx"), "--config", cfgPath, "--token", "x")
	require.Error(t, err)

	_, err = execute(t, "", "upload", "--config", cfgPath)
	require.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "", "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "http://localhost:8080")
	assert.Contains(t, out, "(not set)")

	_, err = execute(t, "", "config", "set", "token", "abcdefgh1234", "--config", cfgPath)
	require.NoError(t, err)
	out, err = execute(t, "", "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "********1234")
	assert.NotContains(t, out, "abcdefgh")

	_, err = execute(t, "", "config", "set", "colour", "blue", "--config", cfgPath)
	assert.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-4.50", formatCents(-450))
	assert.Equal(t, "2500.00", formatCents(250000))
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
