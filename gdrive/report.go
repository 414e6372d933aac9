package gdrive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/eduaccess/gdrive-access-sync/acl"
)

type Op int

const (
	OpList Op = iota + 1
	OpGrant
	OpRevoke
	OpProtect
	OpDiscover
)

func (op Op) String() string {
	switch op {
	case OpList:
		return "list"
	case OpGrant:
		return "grant"
	case OpRevoke:
		return "revoke"
	case OpProtect:
		return "protect"
	case OpDiscover:
		return "discover"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single provider operation. Err is nil for a
// successful or skipped operation.
type Result struct {
	Op         Op
	Course     string
	Permission acl.Permission
	Attempts   int
	Skipped    bool
	Err        error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Kind returns 'transient' or 'permanent' for a failed operation and an empty
// string otherwise.
func (r Result) Kind() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrTransient):
		return "transient"
	default:
		return "permanent"
	}
}

func (r Result) String() string {
	var target any = r.Permission
	if r.Op == OpDiscover {
		target = fmt.Sprintf("course '%v'", r.Course)
	}

	switch {
	case r.Skipped:
		return fmt.Sprintf("%-8v %v  (skipped)", r.Op, target)
	case r.Err != nil:
		return fmt.Sprintf("%-8v %v  attempts:%v  %v error (%v)", r.Op, target, r.Attempts, r.Kind(), r.Err)
	default:
		return fmt.Sprintf("%-8v %v  attempts:%v", r.Op, target, r.Attempts)
	}
}

// Report accumulates operation results. It is safe for concurrent use and
// results are only ever appended.
type Report struct {
	sync.Mutex
	results []Result
}

type Summary struct {
	Granted        int
	GrantFailed    int
	Revoked        int
	RevokeFailed   int
	ListFailed     int
	Skipped        int
	Protected      int
	ProtectFailed  int
	DiscoverFailed int
}

func NewReport() *Report {
	return &Report{
		results: []Result{},
	}
}

func (r *Report) Add(result Result) {
	r.Lock()
	defer r.Unlock()

	r.results = append(r.results, result)
}

// Results returns a copy of the results recorded so far, in the order they
// were added.
func (r *Report) Results() []Result {
	r.Lock()
	defer r.Unlock()

	list := make([]Result, len(r.results))
	copy(list, r.results)

	return list
}

func (r *Report) Merge(other *Report) {
	if other == nil || other == r {
		return
	}

	for _, result := range other.Results() {
		r.Add(result)
	}
}

// Failed returns the results for operations that did not succeed.
func (r *Report) Failed() []Result {
	failed := []Result{}
	for _, result := range r.Results() {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}

	return failed
}

func (r *Report) Summary() Summary {
	summary := Summary{}

	for _, result := range r.Results() {
		switch {
		case result.Skipped:
			summary.Skipped++

		case result.Op == OpGrant && result.OK():
			summary.Granted++

		case result.Op == OpGrant:
			summary.GrantFailed++

		case result.Op == OpRevoke && result.OK():
			summary.Revoked++

		case result.Op == OpRevoke:
			summary.RevokeFailed++

		case result.Op == OpList && !result.OK():
			summary.ListFailed++

		case result.Op == OpProtect && result.OK():
			summary.Protected++

		case result.Op == OpProtect:
			summary.ProtectFailed++

		case result.Op == OpDiscover && !result.OK():
			summary.DiscoverFailed++
		}
	}

	return summary
}

func (s Summary) Failed() int {
	return s.GrantFailed + s.RevokeFailed + s.ListFailed + s.ProtectFailed + s.DiscoverFailed
}

func (s Summary) String() string {
	return fmt.Sprintf("granted:%v revoked:%v skipped:%v protected:%v failed:%v (grant:%v revoke:%v list:%v protect:%v discover:%v)",
		s.Granted, s.Revoked, s.Skipped, s.Protected, s.Failed(), s.GrantFailed, s.RevokeFailed, s.ListFailed, s.ProtectFailed, s.DiscoverFailed)
}

// ToTSV writes the results as tab separated values, in the order they were
// recorded.
func (r *Report) ToTSV(f io.Writer) error {
	w := csv.NewWriter(f)
	w.Comma = '\t'

	w.Write([]string{"Operation", "Course", "File ID", "Principal", "Level", "Attempts", "Result", "Error"})

	for _, result := range r.Results() {
		status := "ok"
		level := ""
		message := ""

		switch {
		case result.Skipped:
			status = "skipped"
		case result.Err != nil:
			status = result.Kind()
			message = result.Err.Error()
		}

		if result.Op == OpGrant || result.Op == OpRevoke {
			level = result.Permission.Level.String()
		}

		w.Write([]string{
			result.Op.String(),
			result.Course,
			result.Permission.FileID,
			result.Permission.Principal,
			level,
			fmt.Sprintf("%v", result.Attempts),
			status,
			message,
		})
	}

	w.Flush()

	return w.Error()
}
