package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/gdrive"
	"github.com/eduaccess/gdrive-access-sync/gdrive/drivetest"
	"github.com/eduaccess/gdrive-access-sync/roster"
)

type loader struct {
	roster *roster.Roster
	err    error
}

func (l loader) LoadRoster(ctx context.Context) (*roster.Roster, error) {
	return l.roster, l.err
}

func options() Options {
	return Options{
		Workers: 2,
		Retry:   gdrive.Retry{MaxAttempts: 3, Timeout: time.Second},
	}
}

func sample() *roster.Roster {
	return &roster.Roster{
		Users: []roster.User{
			{ID: 1, Email: "instructor@example.com", Role: roster.Instructor},
			{ID: 2, Email: "student@example.com", Role: roster.Student},
		},
		Courses: []roster.Course{
			{ID: 1, Name: "C1", Files: []roster.File{
				{ID: "P1", CourseID: 1, Class: roster.Presentation},
				{ID: "A1", CourseID: 1, Class: roster.Auxiliary},
			}},
		},
		Accesses: []roster.Access{{UserID: 1, CourseID: 1}, {UserID: 2, CourseID: 1}},
	}
}

func TestRun(t *testing.T) {
	fake := drivetest.NewFake(acl.State{
		"A1": {"student@example.com": acl.Writer, "owner@example.com": acl.Owner},
	})

	result, err := NewRunner(loader{roster: sample()}, fake, options()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, result.State)
	assert.Equal(t, []State{Idle, Loading, Reconciling, Applying, Done}, result.Transitions)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, acl.State{
		"P1": {"instructor@example.com": acl.Reader, "student@example.com": acl.Reader},
		"A1": {"instructor@example.com": acl.Writer, "owner@example.com": acl.Owner},
	}, fake.State)

	summary := result.Report.Summary()
	assert.Equal(t, 3, summary.Granted)
	assert.Equal(t, 1, summary.Revoked)
	assert.Equal(t, 0, summary.Failed())
}

func TestRunIsIdempotent(t *testing.T) {
	fake := drivetest.NewFake(nil)
	runner := NewRunner(loader{roster: sample()}, fake, options())

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Plan.IsEmpty())
	assert.Equal(t, 3, fake.Calls("create"))
	assert.Equal(t, 0, fake.Calls("delete"))
}

func TestRunFailsWhileLoading(t *testing.T) {
	fake := drivetest.NewFake(acl.State{"A1": {"student@example.com": acl.Writer}})
	unavailable := fmt.Errorf("%w: missing table 'users'", roster.ErrStoreUnavailable)

	result, err := NewRunner(loader{err: unavailable}, fake, options()).Run(context.Background())

	assert.ErrorIs(t, err, roster.ErrStoreUnavailable)
	assert.Equal(t, Failed, result.State)
	assert.Equal(t, []State{Idle, Loading, Failed}, result.Transitions)
	assert.Equal(t, 0, fake.Total())
}

func TestRunWithPartialFailureReachesDone(t *testing.T) {
	fake := drivetest.NewFake(nil)
	fake.Fail("create", "P1", &googleapi.Error{Code: 404}, &googleapi.Error{Code: 404})

	result, err := NewRunner(loader{roster: sample()}, fake, options()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, result.State)

	summary := result.Report.Summary()
	assert.Equal(t, 1, summary.Granted)
	assert.Equal(t, 2, summary.GrantFailed)
}

func TestRunExcludesFilesThatCannotBeListed(t *testing.T) {
	fake := drivetest.NewFake(acl.State{"A1": {"student@example.com": acl.Writer}})
	fake.Fail("list", "A1", &googleapi.Error{Code: 403})

	result, err := NewRunner(loader{roster: sample()}, fake, options()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, result.State)
	assert.Equal(t, []string{"A1"}, result.Unlisted)
	assert.Equal(t, 1, result.Report.Summary().ListFailed)
	assert.Equal(t, acl.Writer, fake.State.Get("A1", "student@example.com"))
	assert.Equal(t, acl.None, fake.State.Get("A1", "instructor@example.com"))
}

func TestRunDryRun(t *testing.T) {
	fake := drivetest.NewFake(acl.State{"A1": {"student@example.com": acl.Writer}})

	opts := options()
	opts.DryRun = true
	opts.CopyProtect = true

	result, err := NewRunner(loader{roster: sample()}, fake, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, result.State)
	assert.Equal(t, 0, fake.Calls("create")+fake.Calls("delete")+fake.Calls("protect"))
	assert.Equal(t, 4+1, result.Report.Summary().Skipped)
	assert.Equal(t, acl.Writer, fake.State.Get("A1", "student@example.com"))
}

func TestRunWithDiscoveryAndCopyProtection(t *testing.T) {
	rs := sample()
	rs.Courses[0].Files = []roster.File{{ID: "P1", CourseID: 1, Class: roster.Presentation}}

	fake := drivetest.NewFake(nil)
	fake.Folders["C1"] = []roster.File{
		{ID: "P1", Class: roster.Presentation},
		{ID: "P2", Class: roster.Presentation},
		{ID: "S1", Class: roster.Auxiliary},
	}

	opts := options()
	opts.Discovery = true
	opts.Root = "Courses"
	opts.CopyProtect = true

	result, err := NewRunner(loader{roster: rs}, fake, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, result.State)
	assert.Equal(t, acl.Writer, fake.State.Get("S1", "instructor@example.com"))
	assert.Equal(t, acl.Reader, fake.State.Get("P2", "student@example.com"))
	assert.Equal(t, map[string]bool{"P1": true, "P2": true}, fake.Protected)
	assert.Equal(t, 2, result.Report.Summary().Protected)
}

func TestRunWithFailedDiscovery(t *testing.T) {
	fake := drivetest.NewFake(nil)
	fake.Fail("discover", "C1", errors.New("qwerty"), errors.New("qwerty"), errors.New("qwerty"))

	opts := options()
	opts.Discovery = true
	opts.Root = "Courses"

	result, err := NewRunner(loader{roster: sample()}, fake, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, result.State)
	assert.Equal(t, 1, result.Report.Summary().DiscoverFailed)
	assert.Equal(t, 0, result.Report.Summary().ListFailed)
	assert.Equal(t, 3, result.Report.Summary().Granted)

	failed := result.Report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, gdrive.OpDiscover, failed[0].Op)
	assert.Equal(t, "C1", failed[0].Course)
	assert.Empty(t, failed[0].Permission.FileID)
}

func TestPlanMakesNoChanges(t *testing.T) {
	fake := drivetest.NewFake(acl.State{"A1": {"student@example.com": acl.Writer}})

	result, err := NewRunner(loader{roster: sample()}, fake, options()).Plan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Reconciling, result.State)
	assert.Len(t, result.Plan.Grants, 3)
	assert.Equal(t, []acl.Permission{{FileID: "A1", Principal: "student@example.com", Level: acl.Writer}}, result.Plan.Revocations)
	assert.Equal(t, 0, fake.Calls("create")+fake.Calls("delete"))
}

func TestPresentationFiles(t *testing.T) {
	rs := sample()
	rs.Courses = append(rs.Courses, roster.Course{ID: 2, Files: []roster.File{
		{ID: "P1", CourseID: 2, Class: roster.Presentation},
		{ID: "P3", CourseID: 2, Class: roster.Presentation},
	}})

	assert.Equal(t, []string{"P1", "P3"}, PresentationFiles(rs))
}
