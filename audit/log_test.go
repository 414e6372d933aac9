package audit

import (
	"reflect"
	"testing"
	"time"

	"google.golang.org/api/sheets/v4"
)

func TestSpreadsheetID(t *testing.T) {
	tests := map[string]string{
		"https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms":           "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
		"https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit#gid=0": "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
	}

	for url, expected := range tests {
		id, err := SpreadsheetID(url)
		if err != nil {
			t.Fatalf("Unexpected error for '%v' (%v)", url, err)
		}

		if id != expected {
			t.Errorf("Incorrect spreadsheet ID\n   expected: %v\n   got:      %v", expected, id)
		}
	}

	for _, url := range []string{"", "https://example.com/spreadsheets/d/1Bxi", "https://docs.google.com/spreadsheets/d/"} {
		if _, err := SpreadsheetID(url); err == nil {
			t.Errorf("Expected error for invalid URL '%v'", url)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	header := []any{"Run ID", "Timestamp", "Status", "Notes", "Granted", "Revoked", "Failed"}

	expected := map[string]int{
		"runid":     0,
		"timestamp": 1,
		"status":    2,
		"granted":   4,
		"revoked":   5,
		"failed":    6,
	}

	if index := columnIndex(header); !reflect.DeepEqual(index, expected) {
		t.Errorf("Incorrect column index\n   expected: %v\n   got:      %v", expected, index)
	}
}

func TestMakeRow(t *testing.T) {
	entry := Entry{
		Timestamp: time.Date(2024, time.March, 5, 14, 15, 16, 0, time.UTC),
		RunID:     "9f1d6c2e",
		Status:    "done",
		DryRun:    true,
		Granted:   3,
		Revoked:   1,
		Skipped:   0,
		Failed:    2,
	}

	expected := []any{"2024-03-05 14:15:16", "9f1d6c2e", "done (dry-run)", 3, 1, 0, 2, ""}
	if row := makeRow(defaultIndex(), entry); !reflect.DeepEqual(row, expected) {
		t.Errorf("Incorrect row\n   expected: %v\n   got:      %v", expected, row)
	}

	index := map[string]int{"timestamp": 0, "failed": 3}
	expected = []any{"2024-03-05 14:15:16", "", "", 2}
	if row := makeRow(index, entry); !reflect.DeepEqual(row, expected) {
		t.Errorf("Incorrect row\n   expected: %v\n   got:      %v", expected, row)
	}
}

func TestCutoff(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 15, 16, 0, time.UTC)

	expected := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	if v := cutoff(now, 30); !v.Equal(expected) {
		t.Errorf("Incorrect cutoff\n   expected: %v\n   got:      %v", expected, v)
	}

	expected = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if v := cutoff(now, 1); !v.Equal(expected) {
		t.Errorf("Incorrect cutoff\n   expected: %v\n   got:      %v", expected, v)
	}
}

func TestExpired(t *testing.T) {
	values := [][]any{
		{"Timestamp", "Run ID"},
		{"2024-01-01 10:00:00", "a"},
		{"2024-01-02 10:00:00", "b"},
		{"2024-03-01 10:00:00", "c"},
		{},
		{"2024-01-03 10:00:00", "d"},
		{"garbage", "e"},
	}

	expected := []int{1, 2, 5}
	if rows := expired(values, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)); !reflect.DeepEqual(rows, expected) {
		t.Errorf("Incorrect expired rows\n   expected: %v\n   got:      %v", expected, rows)
	}
}

func TestPruneRanges(t *testing.T) {
	expected := []span{{1, 3}, {5, 5}, {8, 9}}

	if spans := pruneRanges([]int{9, 1, 2, 3, 5, 8, 2}); !reflect.DeepEqual(spans, expected) {
		t.Errorf("Incorrect prune ranges\n   expected: %v\n   got:      %v", expected, spans)
	}

	if spans := pruneRanges(nil); len(spans) != 0 {
		t.Errorf("Expected no prune ranges, got %v", spans)
	}
}

func TestFindSheet(t *testing.T) {
	spreadsheet := sheets.Spreadsheet{
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: "Roster", SheetId: 1}},
			{Properties: &sheets.SheetProperties{Title: " log ", SheetId: 2}},
		},
	}

	sheet, err := findSheet(&spreadsheet, "Log!A1:H")
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if sheet.Properties.SheetId != 2 {
		t.Errorf("Incorrect sheet - expected:%v, got:%v", 2, sheet.Properties.SheetId)
	}

	if _, err := findSheet(&spreadsheet, "Audit!A1:H"); err == nil {
		t.Errorf("Expected error for missing worksheet")
	}
}
