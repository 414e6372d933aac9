// Package runner executes a single reconciliation pass:
//
//	Idle -> Loading -> Reconciling -> Applying -> Done
//
// with Failed reachable only from Loading, before anything is sent to the
// provider. Applying always reaches Done, partial failures being recorded in
// the report rather than aborting the run.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/gdrive"
	"github.com/eduaccess/gdrive-access-sync/roster"
)

type State int

const (
	Idle State = iota
	Loading
	Reconciling
	Applying
	Done
	Failed
)

func (s State) String() string {
	return [...]string{"idle", "loading", "reconciling", "applying", "done", "failed"}[s]
}

type Loader interface {
	LoadRoster(ctx context.Context) (*roster.Roster, error)
}

type Options struct {
	DryRun      bool
	Workers     int
	Retry       gdrive.Retry
	Discovery   bool
	Root        string
	CopyProtect bool
}

// Result describes a completed (or failed) run.
type Result struct {
	RunID       string
	State       State
	Transitions []State
	Started     time.Time
	Finished    time.Time
	Roster      *roster.Roster
	Current     acl.State
	Plan        acl.Plan
	Unlisted    []string
	Report      *gdrive.Report
	Err         error
}

type Runner struct {
	loader   Loader
	provider gdrive.Provider
	options  Options
}

func NewRunner(loader Loader, provider gdrive.Provider, options Options) *Runner {
	return &Runner{
		loader:   loader,
		provider: provider,
		options:  options,
	}
}

// Run executes a complete pass. The returned error is non-nil only if the run
// failed while loading.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result, err := r.Plan(ctx)
	if err != nil {
		return result, err
	}

	result.transition(Applying)

	report := gdrive.Apply(ctx, r.provider, result.Plan, r.gdriveOptions())
	result.Report.Merge(report)

	if r.options.CopyProtect {
		r.protect(ctx, result)
	}

	result.transition(Done)
	result.Finished = time.Now()

	infof("%v  %v  %v", result.RunID, result.State, result.Report.Summary())

	return result, nil
}

// Plan loads the roster and the current permissions and computes the
// grants and revocations, without changing anything.
func (r *Runner) Plan(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:       uuid.NewString(),
		State:       Idle,
		Transitions: []State{Idle},
		Started:     time.Now(),
		Report:      gdrive.NewReport(),
	}

	infof("%v  starting run (dry-run:%v workers:%v)", result.RunID, r.options.DryRun, r.options.Workers)

	result.transition(Loading)

	rs, err := r.load(ctx, result.Report)
	if err != nil {
		result.Err = err
		result.transition(Failed)
		result.Finished = time.Now()

		warnf("%v  %v", result.RunID, err)

		return result, err
	}

	result.transition(Reconciling)

	files := rs.Files()
	current, unlisted, report := gdrive.CurrentState(ctx, r.provider, files, r.gdriveOptions())

	result.Report.Merge(report)
	result.Roster = rs.Without(unlisted)
	result.Current = current
	result.Unlisted = unlisted
	result.Plan = acl.Reconcile(result.Roster, current)

	if len(unlisted) > 0 {
		warnf("%v  excluding %v file(s) with unknown permissions", result.RunID, len(unlisted))
	}

	infof("%v  %v course(s) %v file(s)  grants:%v revocations:%v",
		result.RunID, len(rs.Courses), len(files), len(result.Plan.Grants), len(result.Plan.Revocations))

	return result, nil
}

func (r *Runner) load(ctx context.Context, report *gdrive.Report) (*roster.Roster, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("%w: no roster store", roster.ErrStoreUnavailable)
	}

	rs, err := r.loader.LoadRoster(ctx)
	if err != nil {
		return nil, err
	}

	debugf("loaded %v user(s), %v course(s), %v enrolment(s)", len(rs.Users), len(rs.Courses), len(rs.Accesses))

	if r.options.Discovery {
		r.discover(ctx, rs, report)
	}

	return rs, nil
}

// discover adds the files found in each course's Drive folder to the course.
// A course whose folder cannot be found keeps the files listed in the roster.
func (r *Runner) discover(ctx context.Context, rs *roster.Roster, report *gdrive.Report) {
	discoverer, ok := r.provider.(gdrive.Discoverer)
	if !ok {
		warnf("provider does not support course file discovery")
		return
	}

	for i, course := range rs.Courses {
		var files []roster.File

		attempts, err := r.options.Retry.Do(ctx, func(ctx context.Context) (err error) {
			files, err = discoverer.CourseFiles(ctx, r.options.Root, course)
			return
		})

		if err != nil {
			warnf("course '%v': file discovery failed (%v)", course.Name, err)
			report.Add(gdrive.Result{
				Op:       gdrive.OpDiscover,
				Course:   course.Name,
				Attempts: attempts,
				Err:      err,
			})
			continue
		}

		known := map[string]bool{}
		for _, f := range course.Files {
			known[f.ID] = true
		}

		for _, f := range files {
			if !known[f.ID] {
				known[f.ID] = true
				rs.Courses[i].Files = append(rs.Courses[i].Files, f)
			}
		}

		debugf("course '%v': discovered %v file(s)", course.Name, len(files))
	}
}

// protect enables copy protection on the presentation files of every course,
// other than files whose permissions could not be listed.
func (r *Runner) protect(ctx context.Context, result *Result) {
	protector, ok := r.provider.(gdrive.CopyProtector)
	if !ok {
		warnf("provider does not support copy protection")
		return
	}

	files := PresentationFiles(result.Roster)
	report := gdrive.Protect(ctx, protector, files, true, r.gdriveOptions())

	result.Report.Merge(report)
}

// PresentationFiles returns the IDs of all presentation files in the roster.
func PresentationFiles(rs *roster.Roster) []string {
	files := []string{}
	seen := map[string]bool{}

	for _, c := range rs.Courses {
		for _, f := range c.Files {
			if f.Class == roster.Presentation && !seen[f.ID] {
				seen[f.ID] = true
				files = append(files, f.ID)
			}
		}
	}

	return files
}

func (r *Runner) gdriveOptions() gdrive.Options {
	return gdrive.Options{
		DryRun:  r.options.DryRun,
		Workers: r.options.Workers,
		Retry:   r.options.Retry,
	}
}

func (result *Result) transition(state State) {
	debugf("%v  %v -> %v", result.RunID, result.State, state)

	result.State = state
	result.Transitions = append(result.Transitions, state)
}
