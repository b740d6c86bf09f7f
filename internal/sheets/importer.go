// Package sheets reads the sales range from Google Sheets and turns the grid
// into header-keyed records.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Record is one data row keyed by header name.
type Record = map[string]string

// Importer fetches a fixed range of one spreadsheet using a service account.
type Importer struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	readRange     string
}

// NewImporter builds an importer authenticated with the service-account key file.
func NewImporter(ctx context.Context, credentialsFile, spreadsheetID, readRange string) (*Importer, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &Importer{
		values:        gsheets.NewSpreadsheetsValuesService(svc),
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
	}, nil
}

// FetchRows reads the configured range. Failures are returned as-is; nothing is retried.
func (i *Importer) FetchRows(ctx context.Context) ([]Record, error) {
	resp, err := i.values.Get(i.spreadsheetID, i.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", i.readRange, err)
	}
	return RowsToRecords(resp.Values), nil
}

// RowsToRecords treats the first row as headers and zips every later row
// against them by position. Missing cells become "". Fewer than two rows
// yields no records.
func RowsToRecords(values [][]any) []Record {
	if len(values) < 2 {
		return []Record{}
	}
	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = cellString(h)
	}

	records := make([]Record, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = cellString(row[i])
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}
