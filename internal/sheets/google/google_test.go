package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cartera/internal/core"
	ports "cartera/internal/sheets"
)

// fakeSheets emulates the handful of Sheets API endpoints the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	appended [][]any
	header   []any
	calls    []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		var sheets []map[string]any
		for _, title := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.Unmarshal(body, &req)
		f.titles = append(f.titles, req.Requests[0].AddSheet.Properties.Title)
		w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.appended = append(f.appended, vr.Values...)
		json.NewEncoder(w).Encode(map[string]any{"updates": map[string]any{"updatedRange": "'2025 Transactions'!A2:H3"}})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.header = vr.Values[0]
		w.Write([]byte(`{}`))
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		values := [][]any{}
		for _, row := range f.appended {
			values = append(values, []any{row[7]})
		}
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "")
}

func testRows() []ports.Row {
	date := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	return []ports.Row{
		{TransactionID: "t1", Date: date, Type: core.Expense, Description: "Rent", Amount: decimal.NewFromInt(300), Currency: core.USD},
		{TransactionID: "t2", Date: date, Type: core.Income, Description: "Salary", Amount: decimal.NewFromInt(900), Currency: core.USD},
	}
}

func TestClient_AppendRowsCreatesSheet(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ids, err := c.ExportedIDs(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ref, err := c.AppendRows(ctx, 2025, testRows())
	require.NoError(t, err)
	assert.Equal(t, "'2025 Transactions'!A2:H3", ref)

	assert.Contains(t, fake.titles, "2025 Transactions")
	assert.Equal(t, "Date", fake.header[0])
	require.Len(t, fake.appended, 2)
	assert.Equal(t, "t2", fake.appended[1][7])

	ids, err = c.ExportedIDs(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"t1": true, "t2": true}, ids)

	// A second append must not recreate the sheet.
	_, err = c.AppendRows(ctx, 2025, testRows()[:1])
	require.NoError(t, err)
	batchUpdates := 0
	for _, call := range fake.calls {
		if strings.HasSuffix(call, ":batchUpdate") {
			batchUpdates++
		}
	}
	assert.Equal(t, 1, batchUpdates)
}

func TestClient_AppendRowsEmpty(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.AppendRows(context.Background(), 2025, nil)
	require.NoError(t, err)
	assert.Empty(t, ref)
	assert.Empty(t, fake.calls)
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", known: map[string]bool{}}

	_, err := c.AppendRows(context.Background(), 2025, testRows())
	assert.ErrorContains(t, err, "not initialized")

	_, err = c.ExportedIDs(context.Background(), 2025)
	assert.ErrorContains(t, err, "not initialized")
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.EqualError(t, err, "missing GOOGLE_SPREADSHEET_ID")

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err = New(context.Background(), Config{SpreadsheetID: "x"})
	assert.ErrorContains(t, err, "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/creds.json"})
	assert.ErrorContains(t, err, "read service account file")
}

func TestYearPrefixedName(t *testing.T) {
	tests := map[string]string{
		"Transactions":      "2025 Transactions",
		"2024 Transactions": "2024 Transactions",
		"  Ledger ":         "2025 Ledger",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, yearPrefixedName(in, 2025), "yearPrefixedName(%q)", in)
	}
}

func TestA1(t *testing.T) {
	assert.Equal(t, "'2025 Transactions'!A:H", a1("2025 Transactions", "A:H"))
	assert.Equal(t, "'Bob''s'!A1", a1("Bob's", "A1"))
}
