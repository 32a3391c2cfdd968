// Package google mirrors the expense record set into a Google Sheet. Each
// record is one row; column A holds the record id and identifies the row.
package google

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"
)

var headerRow = []interface{}{"ID", "Description", "Amount", "Category"}

// Options configures a Client. CredentialsJSON wins over CredentialsFile.
// ClientOptions are passed to the Sheets service after the credentials.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	ClientOptions   []goption.ClientOption
	Logger          *applog.Logger
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger
}

var _ ports.RecordMirror = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.SheetName == "" {
		opts.SheetName = "Expenses"
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		logger:        opts.Logger.WithComponent(applog.ComponentSheets),
	}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var clientOpts []goption.ClientOption
	switch {
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case opts.CredentialsFile != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	case len(opts.ClientOptions) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	clientOpts = append(clientOpts, goption.WithScopes(gsheet.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)
	return gsheet.NewService(ctx, clientOpts...)
}

// AppendRecord adds rec as a new row. A record whose id is already in
// column A is left alone, so redelivered events are harmless.
func (c *Client) AppendRecord(ctx context.Context, rec core.ExpenseRecord) error {
	column, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	if row := rowIndexOf(column, rec.ID); row >= 0 {
		c.logger.DebugContext(ctx, "Record already mirrored", applog.FieldExpenseID, rec.ID, applog.FieldRow, row+1)
		return nil
	}

	values := [][]interface{}{recordRow(rec)}
	if len(column) == 0 {
		values = append([][]interface{}{headerRow}, values...)
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:D"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	c.logger.InfoContext(ctx, "Record mirrored", applog.FieldExpenseID, rec.ID)
	return nil
}

// DeleteRecord removes the row holding id. Missing rows are not an error.
func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	column, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	row := rowIndexOf(column, id)
	if row < 0 {
		c.logger.DebugContext(ctx, "Record not mirrored, nothing to delete", applog.FieldExpenseID, id)
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
					// Zero is a valid sheet id and row index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row+1, err)
	}
	c.logger.InfoContext(ctx, "Mirrored record deleted", applog.FieldExpenseID, id, applog.FieldRow, row+1)
	return nil
}

// MirroredIDs returns the record ids present in the sheet, top to bottom.
func (c *Client) MirroredIDs(ctx context.Context) ([]int64, error) {
	column, err := c.readIDColumn(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(column))
	for _, row := range column {
		if id, ok := cellID(row); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Client) readIDColumn(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:A")).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}
	return resp.Values, nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

// a1 qualifies a range with the quoted sheet name.
func (c *Client) a1(rng string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + rng
}

func recordRow(rec core.ExpenseRecord) []interface{} {
	return []interface{}{rec.ID, rec.Description, rec.Amount.Decimal().InexactFloat64(), string(rec.Category)}
}

// rowIndexOf returns the 0-based row holding id in column A, or -1.
func rowIndexOf(column [][]interface{}, id int64) int {
	for i, row := range column {
		if got, ok := cellID(row); ok && got == id {
			return i
		}
	}
	return -1
}

func cellID(row []interface{}) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	switch v := row[0].(type) {
	case float64:
		if v != math.Trunc(v) || v <= 0 {
			return 0, false
		}
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}
