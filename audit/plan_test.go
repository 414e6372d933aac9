package audit

import (
	"reflect"
	"testing"

	"github.com/eduaccess/gdrive-access-sync/acl"
)

func TestReportFormat(t *testing.T) {
	expected := format{
		top:   3,
		title: "Audit!B3:B3",
		data:  "Audit!B5:E",
	}

	f, err := reportFormat("Audit!B3:E")
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !reflect.DeepEqual(*f, expected) {
		t.Errorf("Incorrect report format\n   expected: %+v\n   got:      %+v", expected, *f)
	}

	if _, err := reportFormat("Audit"); err == nil {
		t.Errorf("Expected error for invalid range")
	}
}

func TestPlanRows(t *testing.T) {
	plan := acl.Plan{
		Grants:      []acl.Permission{{FileID: "P1", Principal: "ada@example.com", Level: acl.Reader}},
		Revocations: []acl.Permission{{FileID: "A1", Principal: "brian@example.com", Level: acl.Writer}},
	}

	expected := [][]any{
		{"Action", "File ID", "Principal", "Level"},
		{"revoke", "A1", "brian@example.com", "writer"},
		{"grant", "P1", "ada@example.com", "reader"},
	}

	if rows := planRows(plan); !reflect.DeepEqual(rows, expected) {
		t.Errorf("Incorrect rows\n   expected: %v\n   got:      %v", expected, rows)
	}
}
