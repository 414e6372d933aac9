package gdrive

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/eduaccess/gdrive-access-sync/acl"
)

type Options struct {
	DryRun  bool
	Workers int
	Retry   Retry
}

// Apply executes a plan against the provider, revocations first. Every
// operation is attempted and recorded in the returned report. A failure never
// aborts the remaining operations. In dry-run mode nothing is sent to the
// provider and every operation is recorded as skipped.
func Apply(ctx context.Context, provider Provider, plan acl.Plan, options Options) *Report {
	report := NewReport()

	if options.DryRun {
		for _, p := range plan.Revocations {
			infof("dry-run: revoke %v", p)
			report.Add(Result{Op: OpRevoke, Permission: p, Skipped: true})
		}

		for _, p := range plan.Grants {
			infof("dry-run: grant  %v", p)
			report.Add(Result{Op: OpGrant, Permission: p, Skipped: true})
		}

		return report
	}

	g := group(options.Workers)

	for _, p := range plan.Revocations {
		g.Go(func() error {
			attempts, err := options.Retry.Do(ctx, func(ctx context.Context) error {
				return provider.DeletePermission(ctx, p.FileID, p.Principal)
			})

			record(report, Result{Op: OpRevoke, Permission: p, Attempts: attempts, Err: err})

			return nil
		})
	}

	for _, p := range plan.Grants {
		g.Go(func() error {
			attempts, err := options.Retry.Do(ctx, func(ctx context.Context) error {
				return provider.CreatePermission(ctx, p.FileID, p.Principal, p.Level)
			})

			record(report, Result{Op: OpGrant, Permission: p, Attempts: attempts, Err: err})

			return nil
		})
	}

	g.Wait()

	return report
}

// CurrentState lists the permissions on each file. Files whose permissions
// could not be listed are recorded in the report and returned separately so
// that they can be left out of reconciliation.
func CurrentState(ctx context.Context, provider Provider, files []string, options Options) (acl.State, []string, *Report) {
	report := NewReport()
	entries := make([][]Entry, len(files))
	failed := make([]bool, len(files))

	g := group(options.Workers)

	for i, file := range files {
		g.Go(func() error {
			attempts, err := options.Retry.Do(ctx, func(ctx context.Context) error {
				list, err := provider.ListPermissions(ctx, file)
				if err == nil {
					entries[i] = list
				}

				return err
			})

			if err != nil {
				failed[i] = true
				record(report, Result{Op: OpList, Permission: acl.Permission{FileID: file}, Attempts: attempts, Err: err})
			}

			return nil
		})
	}

	g.Wait()

	state := acl.State{}
	unlisted := []string{}

	for i, file := range files {
		if failed[i] {
			unlisted = append(unlisted, file)
			continue
		}

		state[file] = map[string]acl.Level{}
		for _, e := range entries[i] {
			if principal := acl.Normalise(e.Principal); principal != "" && e.Level != acl.None {
				state.Add(file, principal, e.Level)
			}
		}
	}

	sort.Strings(unlisted)

	return state, unlisted, report
}

// Protect sets (or clears) copy protection on each file.
func Protect(ctx context.Context, protector CopyProtector, files []string, protect bool, options Options) *Report {
	report := NewReport()

	if options.DryRun {
		for _, file := range files {
			infof("dry-run: protect %v", file)
			report.Add(Result{Op: OpProtect, Permission: acl.Permission{FileID: file}, Skipped: true})
		}

		return report
	}

	g := group(options.Workers)

	for _, file := range files {
		g.Go(func() error {
			attempts, err := options.Retry.Do(ctx, func(ctx context.Context) error {
				return protector.SetCopyRequiresWriterPermission(ctx, file, protect)
			})

			record(report, Result{Op: OpProtect, Permission: acl.Permission{FileID: file}, Attempts: attempts, Err: err})

			return nil
		})
	}

	g.Wait()

	return report
}

func group(workers int) *errgroup.Group {
	g := errgroup.Group{}
	if workers < 1 {
		workers = 1
	}

	g.SetLimit(workers)

	return &g
}

func record(report *Report, result Result) {
	if result.Err != nil {
		warnf("%v", result)
	} else {
		debugf("%v", result)
	}

	report.Add(result)
}
