package acl

import (
	"encoding/csv"
	"fmt"
	"io"
)

// MakeTSV writes a permissions table as tab separated values.
func MakeTSV(f io.Writer, permissions []Permission) error {
	header := []string{"File ID", "Principal", "Level"}
	records := [][]string{}

	for _, p := range permissions {
		if p.FileID == "" || p.Principal == "" {
			return fmt.Errorf("Invalid permission '%v'", p)
		}

		records = append(records, []string{p.FileID, p.Principal, fmt.Sprintf("%v", p.Level)})
	}

	return write(f, header, records)
}

// PlanToTSV writes the grants and revocations in a plan as tab separated
// values, revocations first.
func PlanToTSV(f io.Writer, plan Plan) error {
	header := []string{"Action", "File ID", "Principal", "Level"}
	records := [][]string{}

	for _, p := range plan.Revocations {
		records = append(records, []string{"revoke", p.FileID, p.Principal, fmt.Sprintf("%v", p.Level)})
	}

	for _, p := range plan.Grants {
		records = append(records, []string{"grant", p.FileID, p.Principal, fmt.Sprintf("%v", p.Level)})
	}

	return write(f, header, records)
}

func write(f io.Writer, header []string, records [][]string) error {
	w := csv.NewWriter(f)
	w.Comma = '\t'

	w.Write(header)
	for _, record := range records {
		w.Write(record)
	}

	w.Flush()

	return w.Error()
}
