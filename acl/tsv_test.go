package acl

import (
	"strings"
	"testing"
)

func TestMakeTSV(t *testing.T) {
	expected := `File ID	Principal	Level
A1	ada@example.com	writer
P1	ada@example.com	reader
P1	brian@example.com	reader
`

	var f strings.Builder
	var state = State{
		"P1": {"ada@example.com": Reader, "brian@example.com": Reader},
		"A1": {"ada@example.com": Writer},
	}

	err := MakeTSV(&f, state.Permissions())
	if err != nil {
		t.Fatalf("Unexpected error returned from MakeTSV (%v)", err)
	}

	if f.String() != expected {
		t.Errorf("Incorrect TSV\n   expected: %s\n   got:      %s\n", expected, f.String())
	}
}

func TestMakeTSVWithEmptyList(t *testing.T) {
	expected := "File ID\tPrincipal\tLevel\n"

	var f strings.Builder

	err := MakeTSV(&f, []Permission{})
	if err != nil {
		t.Fatalf("Unexpected error returned from MakeTSV (%v)", err)
	}

	if f.String() != expected {
		t.Errorf("Incorrect TSV\n   expected: %s\n   got:      %s\n", expected, f.String())
	}
}

func TestMakeTSVWithMissingPrincipal(t *testing.T) {
	var f strings.Builder

	permissions := []Permission{
		{FileID: "P1", Principal: "", Level: Reader},
	}

	err := MakeTSV(&f, permissions)
	if err == nil {
		t.Fatalf("Expected error return for missing principal, got %v", err)
	}
}

func TestPlanToTSV(t *testing.T) {
	expected := `Action	File ID	Principal	Level
revoke	A1	brian@example.com	writer
grant	A1	ada@example.com	writer
grant	P1	ada@example.com	reader
`

	var f strings.Builder
	var plan = Plan{
		Grants: []Permission{
			{FileID: "A1", Principal: "ada@example.com", Level: Writer},
			{FileID: "P1", Principal: "ada@example.com", Level: Reader},
		},
		Revocations: []Permission{
			{FileID: "A1", Principal: "brian@example.com", Level: Writer},
		},
	}

	err := PlanToTSV(&f, plan)
	if err != nil {
		t.Fatalf("Unexpected error returned from PlanToTSV (%v)", err)
	}

	if f.String() != expected {
		t.Errorf("Incorrect TSV\n   expected: %s\n   got:      %s\n", expected, f.String())
	}
}
