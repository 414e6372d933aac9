// Package drivetest provides an in-memory Provider for tests.
package drivetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/gdrive"
	"github.com/eduaccess/gdrive-access-sync/roster"
)

// Fake is an in-memory provider. Failures can be queued per operation and
// file, and are returned (in order) before the call takes effect.
type Fake struct {
	State     acl.State
	Protected map[string]bool
	Folders   map[string][]roster.File

	calls    map[string]int
	failures map[string][]error
	sync.Mutex
}

var _ gdrive.Provider = (*Fake)(nil)
var _ gdrive.CopyProtector = (*Fake)(nil)
var _ gdrive.Discoverer = (*Fake)(nil)

func NewFake(state acl.State) *Fake {
	if state == nil {
		state = acl.State{}
	}

	return &Fake{
		State:     state,
		Protected: map[string]bool{},
		Folders:   map[string][]roster.File{},
		calls:     map[string]int{},
		failures:  map[string][]error{},
	}
}

// Fail queues errors to be returned by successive calls of op ('list',
// 'create', 'delete', 'protect' or 'discover') for the file (or course name
// for 'discover').
func (f *Fake) Fail(op, id string, errs ...error) {
	f.Lock()
	defer f.Unlock()

	key := op + ":" + id
	f.failures[key] = append(f.failures[key], errs...)
}

// Calls returns the number of times op has been invoked across all files.
func (f *Fake) Calls(op string) int {
	f.Lock()
	defer f.Unlock()

	return f.calls[op]
}

// Total returns the number of provider calls of any kind.
func (f *Fake) Total() int {
	f.Lock()
	defer f.Unlock()

	total := 0
	for _, v := range f.calls {
		total += v
	}

	return total
}

func (f *Fake) ListPermissions(ctx context.Context, fileID string) ([]gdrive.Entry, error) {
	f.Lock()
	defer f.Unlock()

	if err := f.call(ctx, "list", fileID); err != nil {
		return nil, err
	}

	entries := []gdrive.Entry{}
	for principal, level := range f.State[fileID] {
		entries = append(entries, gdrive.Entry{
			ID:        fmt.Sprintf("%v:%v", fileID, principal),
			Principal: principal,
			Type:      "user",
			Level:     level,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Principal < entries[j].Principal })

	return entries, nil
}

func (f *Fake) CreatePermission(ctx context.Context, fileID, principal string, level acl.Level) error {
	f.Lock()
	defer f.Unlock()

	if err := f.call(ctx, "create", fileID); err != nil {
		return err
	}

	if _, ok := f.State[fileID]; !ok {
		f.State[fileID] = map[string]acl.Level{}
	}

	f.State[fileID][acl.Normalise(principal)] = level

	return nil
}

func (f *Fake) DeletePermission(ctx context.Context, fileID, principal string) error {
	f.Lock()
	defer f.Unlock()

	if err := f.call(ctx, "delete", fileID); err != nil {
		return err
	}

	delete(f.State[fileID], acl.Normalise(principal))

	return nil
}

func (f *Fake) SetCopyRequiresWriterPermission(ctx context.Context, fileID string, protect bool) error {
	f.Lock()
	defer f.Unlock()

	if err := f.call(ctx, "protect", fileID); err != nil {
		return err
	}

	f.Protected[fileID] = protect

	return nil
}

func (f *Fake) CourseFiles(ctx context.Context, root string, course roster.Course) ([]roster.File, error) {
	f.Lock()
	defer f.Unlock()

	if err := f.call(ctx, "discover", course.Name); err != nil {
		return nil, err
	}

	files := []roster.File{}
	for _, file := range f.Folders[course.Name] {
		file.CourseID = course.ID
		files = append(files, file)
	}

	return files, nil
}

func (f *Fake) call(ctx context.Context, op, id string) error {
	f.calls[op]++

	if err := ctx.Err(); err != nil {
		return err
	}

	key := op + ":" + id
	if queue := f.failures[key]; len(queue) > 0 {
		f.failures[key] = queue[1:]
		return queue[0]
	}

	return nil
}
