package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
)

type recordedCall struct {
	path string
	body map[string]any
}

func fakeSheetsServer(t *testing.T, status int) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, recordedCall{path: r.URL.Path, body: body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := newClient(context.Background(), "sheet-123",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingSpreadsheetID(t *testing.T) {
	_, err := NewClient(context.Background(), "  ", Credentials{JSON: "{}"})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewClient_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewClient(context.Background(), "sheet-123", Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNewClient_UnreadableCredentialsFile(t *testing.T) {
	_, err := NewClient(context.Background(), "sheet-123", Credentials{File: "/non/existent/sa.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestWriteLedger_ClearsThenWritesEveryTab(t *testing.T) {
	srv, calls := fakeSheetsServer(t, http.StatusOK)
	c := testClient(t, srv)

	receivables, payments := sampleLedger()
	require.NoError(t, c.WriteLedger(context.Background(), receivables, payments))

	got := calls()
	require.Len(t, got, 2)

	assert.True(t, strings.HasSuffix(got[0].path, "/spreadsheets/sheet-123/values:batchClear"), got[0].path)
	assert.Equal(t, []any{ReceivablesTab, PaymentsTab, CustomersTab}, got[0].body["ranges"])

	assert.True(t, strings.HasSuffix(got[1].path, "/spreadsheets/sheet-123/values:batchUpdate"), got[1].path)
	assert.Equal(t, "RAW", got[1].body["valueInputOption"])
	data, ok := got[1].body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 3)
	first := data[0].(map[string]any)
	assert.Equal(t, "Receivables!A1", first["range"])
	assert.Len(t, first["values"], 3)
}

func TestWriteLedger_ReportsAPIErrors(t *testing.T) {
	srv, calls := fakeSheetsServer(t, http.StatusForbidden)
	c := testClient(t, srv)

	err := c.WriteLedger(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear export tabs")
	assert.Len(t, calls(), 1)
}

func TestWriteLedger_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-123"}
	err := c.WriteLedger(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "sheets service not initialized", err.Error())
}
