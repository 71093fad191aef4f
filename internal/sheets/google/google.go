// Package google mirrors recurring and one-off expenses into a Google
// spreadsheet using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
	ports "spendwise/internal/sheets"
)

// oneOff fills the frequency column of expense rows.
const oneOff = "One-off"

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	expensesSheet  string
	recurringSheet string
}

// Ensure interface conformance
var (
	_ ports.Mirror          = (*Client)(nil)
	_ ports.RecurringReader = (*Client)(nil)
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name. Expenses go to "<year> <SheetName>",
	// recurring expenses to "<SheetName> Recurring".
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client from service-account credentials. Extra
// options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credentialsJSON, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx, append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, time.Now().Year()), nil
}

// NewWithService wraps an existing service. year picks the expenses tab.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, year int) *Client {
	base := strings.TrimSpace(sheetName)
	if base == "" {
		base = "Spendwise"
	}
	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		expensesSheet:  yearPrefixedName(base, year),
		recurringSheet: base + " Recurring",
	}
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ExpensesSheet() string  { return c.expensesSheet }
func (c *Client) RecurringSheet() string { return c.recurringSheet }

// AppendRecurring adds one row: next payment, description, category,
// frequency, amount.
func (c *Client) AppendRecurring(ctx context.Context, rec core.RecurringExpense) (string, error) {
	row := []any{
		rec.NextPayment.String(),
		rec.Description,
		string(rec.Category),
		string(rec.Frequency),
		amountCell(rec.Amount.StringFixed(2)),
	}
	return c.append(ctx, c.recurringSheet, row)
}

// AppendExpense adds one row in the recurring layout with a One-off frequency.
func (c *Client) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	row := []any{
		e.Date.String(),
		e.Description,
		string(e.Category),
		oneOff,
		amountCell(e.Amount.StringFixed(2)),
	}
	return c.append(ctx, c.expensesSheet, row)
}

func (c *Client) append(ctx context.Context, sheet string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// ReadRecurring returns every mirrored recurring row in the demo shape so
// the caller can normalize it. Header and blank rows are skipped.
func (c *Client) ReadRecurring(ctx context.Context) ([]recurring.LocalRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", c.recurringSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRecurringRows(resp.Values), nil
}

// amountCell sends amounts as numbers so the sheet can sum them.
func amountCell(fixed string) any {
	if f, err := strconv.ParseFloat(fixed, 64); err == nil {
		return f
	}
	return fixed
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
