// Package google mirrors the ledger into a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"receivables/internal/core"
	"receivables/internal/log"
)

// Default tab names of the exported spreadsheet.
const (
	ReceivablesTab = "Receivables"
	PaymentsTab    = "Payments"
	CustomersTab   = "Customers"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Credentials selects the service account used to reach the Sheets API.
// JSON wins over File; with neither, GOOGLE_APPLICATION_CREDENTIALS is read.
type Credentials struct {
	JSON string
	File string
}

// NewClient creates a Sheets client for spreadsheetID. Extra options are
// appended after the credential options.
func NewClient(ctx context.Context, spreadsheetID string, creds Credentials, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credOpts, err := credentialOptions(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	return newClient(ctx, spreadsheetID, append(credOpts, opts...)...)
}

func newClient(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func credentialOptions(ctx context.Context, creds Credentials) ([]goption.ClientOption, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// WriteLedger replaces the content of every export tab with rows built from
// the given snapshot. Running it twice on the same data is a no-op.
func (c *Client) WriteLedger(ctx context.Context, receivables []core.Receivable, payments []core.Payment) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	tabs := BuildTabs(receivables, payments)
	ranges := make([]string, 0, len(tabs))
	data := make([]*gsheet.ValueRange, 0, len(tabs))
	rows := 0
	for _, t := range tabs {
		ranges = append(ranges, t.Name)
		data = append(data, &gsheet.ValueRange{Range: t.Name + "!A1", Values: t.Rows})
		rows += len(t.Rows)
	}

	_, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID,
		&gsheet.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear export tabs: %w", err)
	}

	// RAW keeps customer-entered text from being evaluated as formulas.
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write export tabs: %w", err)
	}

	slog.DebugContext(ctx, "Ledger written to spreadsheet",
		log.FieldSpreadsheetID, c.spreadsheetID,
		log.FieldRows, rows)
	return nil
}
