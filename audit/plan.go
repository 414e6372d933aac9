package audit

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/eduaccess/gdrive-access-sync/acl"
)

type format struct {
	top   int64
	title string
	data  string
}

// WritePlan replaces the contents of a worksheet range (e.g. 'Audit!A1:D')
// with a plan: a timestamp in the top left cell and one row per operation
// starting two rows below it.
func WritePlan(ctx context.Context, client *http.Client, url, area string, plan acl.Plan, now time.Time) error {
	id, err := SpreadsheetID(url)
	if err != nil {
		return err
	}

	f, err := reportFormat(area)
	if err != nil {
		return err
	}

	google, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to create Google Sheets client (%w)", err)
	}

	// ... clear existing report
	infof("clearing existing report from worksheet")

	rqClear := sheets.BatchClearValuesRequest{
		Ranges: []string{f.title, f.data},
	}

	if _, err := google.Spreadsheets.Values.BatchClear(id, &rqClear).Context(ctx).Do(); err != nil {
		return fmt.Errorf("error clearing report worksheet (%w)", err)
	}

	// ... write report
	infof("writing %v operation(s) to worksheet", len(plan.Grants)+len(plan.Revocations))

	timestamp := sheets.ValueRange{
		Range:  f.title,
		Values: [][]any{{now.Format(TIMESTAMP)}},
	}

	values := sheets.ValueRange{
		Range:  f.data,
		Values: planRows(plan),
	}

	rq := sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             []*sheets.ValueRange{&timestamp, &values},
	}

	if _, err := google.Spreadsheets.Values.BatchUpdate(id, &rq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("error writing report worksheet (%w)", err)
	}

	return nil
}

func reportFormat(area string) (*format, error) {
	match := regexp.MustCompile(`^(.+?)!([a-zA-Z]+)([0-9]+):([a-zA-Z]+)([0-9]+)?$`).FindStringSubmatch(area)
	if len(match) < 5 {
		return nil, fmt.Errorf("invalid report range '%v' - expected something like 'Audit!A1:D'", area)
	}

	name := match[1]
	left := match[2]
	top, _ := strconv.Atoi(match[3])
	right := match[4]

	return &format{
		top:   int64(top),
		title: fmt.Sprintf("%v!%v%v:%v%v", name, left, top, left, top),
		data:  fmt.Sprintf("%v!%v%v:%v", name, left, top+2, right),
	}, nil
}

func planRows(plan acl.Plan) [][]any {
	rows := [][]any{{"Action", "File ID", "Principal", "Level"}}

	for _, p := range plan.Revocations {
		rows = append(rows, []any{"revoke", p.FileID, p.Principal, p.Level.String()})
	}

	for _, p := range plan.Grants {
		rows = append(rows, []any{"grant", p.FileID, p.Principal, p.Level.String()})
	}

	return rows
}
