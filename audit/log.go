// Package audit records a summary row for each run in a Google Sheets
// worksheet and prunes rows older than the configured retention period.
package audit

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	lib "github.com/uhppoted/uhppoted-lib/log"
)

const LOG_TAG = "audit"
const TIMESTAMP = "2006-01-02 15:04:05"

// Entry is the outcome of a single run.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Status    string
	DryRun    bool
	Granted   int
	Revoked   int
	Skipped   int
	Failed    int
	Error     string
}

// SheetLog appends run entries to a worksheet range e.g. 'Log!A1:H'. The first
// row of the range is the header, which determines the column order.
type SheetLog struct {
	service       *sheets.Service
	spreadsheetID string
	area          string
	retention     int
}

var columns = []string{"timestamp", "runid", "status", "granted", "revoked", "skipped", "failed", "error"}

func NewSheetLog(ctx context.Context, client *http.Client, url, area string, retention int) (*SheetLog, error) {
	id, err := SpreadsheetID(url)
	if err != nil {
		return nil, err
	}

	if _, err := worksheet(area); err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Sheets client (%w)", err)
	}

	return &SheetLog{
		service:       service,
		spreadsheetID: id,
		area:          area,
		retention:     retention,
	}, nil
}

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func SpreadsheetID(url string) (string, error) {
	match := regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`).FindStringSubmatch(strings.TrimSpace(url))
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("invalid spreadsheet URL '%v' - expected something like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'", url)
	}

	return match[1], nil
}

func (l *SheetLog) Append(ctx context.Context, entry Entry) error {
	response, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, l.area).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve column headers from log sheet (%w)", err)
	}

	index := defaultIndex()
	if len(response.Values) > 0 {
		index = columnIndex(response.Values[0])
		debugf("log sheet column index: %v", index)
	}

	rows := sheets.ValueRange{
		Values: [][]any{makeRow(index, entry)},
	}

	if _, err := l.service.Spreadsheets.Values.Append(l.spreadsheetID, l.area, &rows).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("error writing log to Google Sheets (%w)", err)
	}

	return nil
}

// Prune deletes log rows with a timestamp before midnight retention-1 days ago.
func (l *SheetLog) Prune(ctx context.Context, now time.Time) error {
	if l.retention <= 0 {
		return nil
	}

	spreadsheet, err := l.service.Spreadsheets.Get(l.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to fetch spreadsheet (%w)", err)
	}

	sheet, err := findSheet(spreadsheet, l.area)
	if err != nil {
		return err
	}

	response, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, l.area).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve data from log sheet (%w)", err)
	}

	before := cutoff(now, l.retention)
	rows := expired(response.Values, before)

	infof("pruning log records from before %v", before.Format("2006-01-02"))

	if len(rows) == 0 {
		return nil
	}

	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{},
	}

	deleted := 0
	for _, r := range pruneRanges(rows) {
		rq.Requests = append(rq.Requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheet.Properties.SheetId,
					Dimension:  "ROWS",
					StartIndex: int64(r.start - deleted),
					EndIndex:   int64(r.end - deleted + 1),
				},
			},
		})

		deleted += r.end - r.start + 1
	}

	if _, err := l.service.Spreadsheets.BatchUpdate(l.spreadsheetID, &rq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("error pruning log sheet (%w)", err)
	}

	infof("pruned %d log records from log sheet", deleted)

	return nil
}

func defaultIndex() map[string]int {
	index := map[string]int{}
	for i, c := range columns {
		index[c] = i
	}

	return index
}

func columnIndex(header []any) map[string]int {
	index := map[string]int{}

	for i, v := range header {
		k := strings.ToLower(strings.ReplaceAll(fmt.Sprintf("%v", v), " ", ""))
		for _, c := range columns {
			if k == c {
				index[c] = i
			}
		}
	}

	return index
}

func makeRow(index map[string]int, entry Entry) []any {
	width := 0
	for _, v := range index {
		if v >= width {
			width = v + 1
		}
	}

	row := make([]any, width)
	for i := range row {
		row[i] = ""
	}

	status := entry.Status
	if entry.DryRun {
		status += " (dry-run)"
	}

	values := map[string]any{
		"timestamp": entry.Timestamp.Format(TIMESTAMP),
		"runid":     entry.RunID,
		"status":    status,
		"granted":   entry.Granted,
		"revoked":   entry.Revoked,
		"skipped":   entry.Skipped,
		"failed":    entry.Failed,
		"error":     entry.Error,
	}

	for k, v := range values {
		if ix, ok := index[k]; ok {
			row[ix] = v
		}
	}

	return row
}

func cutoff(now time.Time, retention int) time.Time {
	before := now.AddDate(0, 0, -(retention - 1))

	return time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, before.Location())
}

// expired returns the (0-based) indices of the rows whose first column is a
// timestamp before the cutoff.
func expired(values [][]any, cutoff time.Time) []int {
	list := []int{}

	for row, record := range values {
		if len(record) == 0 {
			continue
		}

		s, ok := record[0].(string)
		if !ok {
			continue
		}

		timestamp, err := time.ParseInLocation(TIMESTAMP, s, cutoff.Location())
		if err == nil && timestamp.Before(cutoff) {
			list = append(list, row)
		}
	}

	return list
}

type span struct {
	start int
	end   int
}

// pruneRanges collapses a list of row indices into contiguous spans, in
// ascending order.
func pruneRanges(rows []int) []span {
	if len(rows) == 0 {
		return []span{}
	}

	list := append([]int{}, rows...)
	sort.Ints(list)

	spans := []span{}
	start := list[0]
	last := list[0]
	for _, row := range list[1:] {
		if row == last {
			continue
		}

		if row != last+1 {
			spans = append(spans, span{start, last})
			start = row
		}

		last = row
	}

	return append(spans, span{start, last})
}

func worksheet(area string) (string, error) {
	match := regexp.MustCompile(`(.+?)!.*`).FindStringSubmatch(strings.TrimSpace(area))
	if len(match) < 2 {
		return "", fmt.Errorf("invalid log range '%v' - expected something like 'Log!A1:H'", area)
	}

	return match[1], nil
}

func findSheet(spreadsheet *sheets.Spreadsheet, area string) (*sheets.Sheet, error) {
	name, err := worksheet(area)
	if err != nil {
		return nil, err
	}

	for _, sheet := range spreadsheet.Sheets {
		if strings.EqualFold(strings.TrimSpace(sheet.Properties.Title), strings.TrimSpace(name)) {
			return sheet, nil
		}
	}

	return nil, fmt.Errorf("unable to identify worksheet for '%v'", area)
}

func debugf(format string, args ...any) {
	lib.Debugf("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	lib.Infof("%-8v %v", LOG_TAG, fmt.Sprintf(format, args...))
}
