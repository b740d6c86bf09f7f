package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

func TestRowsToRecords(t *testing.T) {
	values := [][]any{
		{"Year", "Month", "Store", "Revenue"},
		{"2023", "1", "A", "1,000"},
		{"2023", "2"},
		{float64(2024), nil, "C", "5"},
	}

	records := RowsToRecords(values)
	require.Len(t, records, 3)
	assert.Equal(t, Record{"Year": "2023", "Month": "1", "Store": "A", "Revenue": "1,000"}, records[0])
	assert.Equal(t, Record{"Year": "2023", "Month": "2", "Store": "", "Revenue": ""}, records[1])
	assert.Equal(t, "2024", records[2]["Year"])
	assert.Equal(t, "", records[2]["Month"])
}

func TestRowsToRecordsNeedsTwoRows(t *testing.T) {
	assert.Empty(t, RowsToRecords(nil))
	assert.Empty(t, RowsToRecords([][]any{{"Year", "Store"}}))
	assert.NotNil(t, RowsToRecords(nil))
}

func TestFetchRowsAgainstFakeAPI(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":  "Sales_Data!A1:C3",
			"values": [][]string{{"Year", "Store", "Revenue"}, {"2023", "A", "10"}, {"2024", "B"}},
		})
	}))
	defer srv.Close()

	svc, err := gsheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	imp := &Importer{values: gsheets.NewSpreadsheetsValuesService(svc), spreadsheetID: "sheet-1", readRange: "Sales_Data!A:M"}
	records, err := imp.FetchRows(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotPath, "sheet-1"), "path %s", gotPath)
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[1]["Store"])
	assert.Equal(t, "", records[1]["Revenue"])
}

func TestFetchRowsPropagatesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	svc, err := gsheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	imp := &Importer{values: gsheets.NewSpreadsheetsValuesService(svc), spreadsheetID: "sheet-1", readRange: "Sales_Data!A:M"}
	_, err = imp.FetchRows(context.Background())
	assert.Error(t, err)
}
