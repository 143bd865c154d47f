package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName = "Expenses"
	sheetIDTTL       = 10 * time.Minute
)

// Client stores the ledger in one tab of a spreadsheet using the same
// four-column layout as the flat file.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	// Tab title -> numeric sheet id, needed for row deletion.
	sheetIDs *cache.LRUCache[int64]
}

// Ensure interface conformance
var _ ledger.Ledger = (*Client)(nil)

// Open builds a service from the credential environment variables
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS) and binds it to one spreadsheet tab.
func Open(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		sheetIDs:      cache.NewLRUCache[int64](8, sheetIDTTL),
	}
}

// Cache exposes the sheet id cache so a long-running caller can sweep it.
func (c *Client) Cache() cache.Cleaner {
	return c.sheetIDs
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:D", c.sheetName)
}

func (c *Client) readValues(ctx context.Context) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.dataRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// Append writes the header first when the tab is empty, then the record.
func (c *Client) Append(ctx context.Context, r core.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	values, err := c.readValues(ctx)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		headerRange := fmt.Sprintf("%s!A1:D1", c.sheetName)
		vr := &gsheet.ValueRange{Values: [][]interface{}{toRow(ledger.Header)}}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("write header to %s: %w", c.sheetName, err)
		}
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{toRow(ledger.EncodeRow(r))}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.dataRange(), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	ref := c.sheetName
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.DebugContext(ctx, "Record appended to sheet", "ref", ref, "category", r.Category)
	return ref, nil
}

func (c *Client) ListRecords(ctx context.Context) ([]core.Record, error) {
	values, err := c.readValues(ctx)
	if err != nil {
		return nil, err
	}
	return parseRecords(values)
}

// ListRows returns the non-blank rows below the header as text.
func (c *Client) ListRows(ctx context.Context) ([][]string, error) {
	values, err := c.readValues(ctx)
	if err != nil {
		return nil, err
	}
	return parseRows(values), nil
}

// DeleteLast removes the last non-empty row below the header.
func (c *Client) DeleteLast(ctx context.Context) (core.Record, error) {
	values, err := c.readValues(ctx)
	if err != nil {
		return core.Record{}, err
	}
	idx := lastDataRow(values)
	if idx < 0 {
		return core.Record{}, ledger.ErrNoRecords
	}
	rec, err := ledger.DecodeRow(padRow(toStrings(values[idx])))
	if err != nil {
		return core.Record{}, fmt.Errorf("row %d: %w", idx+1, err)
	}

	sheetID, err := c.sheetIDs.GetOrLoad(c.sheetName, func() (int64, error) {
		return c.lookupSheetID(ctx)
	})
	if err != nil {
		return core.Record{}, err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return core.Record{}, fmt.Errorf("delete row %d in %s: %w", idx+1, c.sheetName, err)
	}
	slog.DebugContext(ctx, "Record deleted from sheet", "sheet", c.sheetName, "row", idx+1)
	return rec, nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && strings.EqualFold(sh.Properties.Title, c.sheetName) {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
