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

	"expenses/internal/core"
)

// fakeSheets is a tiny in-memory stand-in for the Sheets v4 endpoints the
// client uses.
type fakeSheets struct {
	mu      sync.Mutex
	sheetID int64
	title   string
	rows    [][]interface{}
	appends int
	deletes int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, body.Values...)
		f.appends++
		writeJSON(w, map[string]any{"spreadsheetId": "sheet-1"})
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		col := make([][]interface{}, 0, len(f.rows))
		for _, row := range f.rows {
			if len(row) == 0 {
				col = append(col, []interface{}{})
				continue
			}
			col = append(col, []interface{}{row[0]})
		}
		resp := map[string]any{"range": path[strings.Index(path, "/values/")+8:], "majorDimension": "ROWS"}
		if len(col) > 0 {
			resp["values"] = col
		}
		writeJSON(w, resp)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var body struct {
			Requests []struct {
				DeleteDimension struct {
					Range struct {
						SheetID    *int64 `json:"sheetId"`
						StartIndex *int64 `json:"startIndex"`
						EndIndex   int64  `json:"endIndex"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Requests) != 1 {
			http.Error(w, "bad batch", http.StatusBadRequest)
			return
		}
		rng := body.Requests[0].DeleteDimension.Range
		if rng.SheetID == nil || rng.StartIndex == nil || *rng.SheetID != f.sheetID {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		start, end := *rng.StartIndex, rng.EndIndex
		f.rows = append(f.rows[:start], f.rows[end:]...)
		f.deletes++
		writeJSON(w, map[string]any{"spreadsheetId": "sheet-1", "replies": []any{map[string]any{}}})
	case r.Method == http.MethodGet:
		writeJSON(w, map[string]any{
			"spreadsheetId": "sheet-1",
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 99, "title": "Other"}},
				map[string]any{"properties": map[string]any{"sheetId": f.sheetID, "title": f.title}},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-1",
		SheetName:     fake.title,
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
		},
	})
	require.NoError(t, err)
	return c
}

func rec(id int64, desc string) core.ExpenseRecord {
	return core.ExpenseRecord{ID: id, Description: desc, Amount: core.AmountFromCents(1250), Category: core.Groceries}
}

func TestAppendRecordWritesHeaderOnceAndIsIdempotent(t *testing.T) {
	fake := &fakeSheets{sheetID: 0, title: "Expenses"}
	c := newTestClient(t, fake)
	ctx := context.Background()

	require.NoError(t, c.AppendRecord(ctx, rec(1, "Milk")))
	require.NoError(t, c.AppendRecord(ctx, rec(2, "Bread")))
	require.NoError(t, c.AppendRecord(ctx, rec(1, "Milk")))

	assert.Equal(t, 2, fake.appends)
	require.Len(t, fake.rows, 3)
	assert.Equal(t, "ID", fake.rows[0][0])
	assert.Equal(t, "Bread", fake.rows[2][1])
	assert.Equal(t, 12.5, fake.rows[2][2])

	ids, err := c.MirroredIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestDeleteRecordRemovesMatchingRow(t *testing.T) {
	fake := &fakeSheets{sheetID: 0, title: "Expenses"}
	c := newTestClient(t, fake)
	ctx := context.Background()

	for i, d := range []string{"One", "Two", "Three"} {
		require.NoError(t, c.AppendRecord(ctx, rec(int64(i+1), d)))
	}
	require.NoError(t, c.DeleteRecord(ctx, 2))
	assert.Equal(t, 1, fake.deletes)

	ids, err := c.MirroredIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	require.NoError(t, c.DeleteRecord(ctx, 2))
	assert.Equal(t, 1, fake.deletes, "deleting a missing row is a no-op")
}

func TestDeleteRecordUnknownSheet(t *testing.T) {
	fake := &fakeSheets{sheetID: 5, title: "Expenses"}
	c := newTestClient(t, fake)
	ctx := context.Background()
	require.NoError(t, c.AppendRecord(ctx, rec(1, "One")))

	fake.title = "Renamed"
	err := c.DeleteRecord(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Expenses" not found`)
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.EqualError(t, err, "missing spreadsheet id")

	_, err = New(context.Background(), Options{SpreadsheetID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(context.Background(), Options{SpreadsheetID: "x", CredentialsFile: "/non/existent.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestRowIndexOf(t *testing.T) {
	column := [][]interface{}{
		{"ID"},
		{float64(3)},
		{},
		{"7"},
		{float64(2.5)},
	}
	assert.Equal(t, 1, rowIndexOf(column, 3))
	assert.Equal(t, 3, rowIndexOf(column, 7))
	assert.Equal(t, -1, rowIndexOf(column, 2))
	assert.Equal(t, -1, rowIndexOf(nil, 1))
}

func TestA1QuotesSheetName(t *testing.T) {
	c := &Client{sheetName: "Bob's"}
	assert.Equal(t, "'Bob''s'!A:A", c.a1("A:A"))
}
