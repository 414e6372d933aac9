package roster

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const mock = `{
  "users": [
    { "email": "ada@example.com",   "name": "Ada",   "status": "Active", "role": "instructor" },
    { "email": "brian@example.com", "name": "Brian", "status": "New",    "role": "student" },
    { "email": "carol@example.com", "name": "Carol", "status": "Fired",  "role": "student" }
  ],
  "courses": [
    {
      "category": "Programming", "sub_category": "Go", "course_name": "Concurrency",
      "files": [
        { "id": "P1", "class": "presentation" },
        { "id": "A1", "class": "auxiliary" }
      ]
    },
    { "category": "Design", "sub_category": "", "course_name": "Typography" }
  ],
  "accesses": [
    { "email": "ada@example.com",   "category": "Programming", "course_name": "Concurrency" },
    { "email": "brian@example.com", "category": "Programming", "course_name": "Concurrency" },
    { "email": "carol@example.com", "category": "Design",      "course_name": "Typography" }
  ]
}`

func newStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, store.CreateTables(context.Background()))

	return store
}

func TestLoadRoster(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.LoadMockData(context.Background(), strings.NewReader(mock)))

	r, err := store.LoadRoster(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Users, 3)
	assert.Equal(t, "ada@example.com", r.Users[0].Email)
	assert.Equal(t, Instructor, r.Users[0].Role)
	assert.Equal(t, Student, r.Users[1].Role)
	assert.True(t, r.Users[1].Active())
	assert.False(t, r.Users[2].Active())

	require.Len(t, r.Courses, 2)
	assert.Equal(t, []string{"Programming", "Go", "Concurrency"}, r.Courses[0].Path())
	assert.Equal(t, []string{"Design", "Typography"}, r.Courses[1].Path())
	assert.Equal(t, []File{
		{ID: "A1", CourseID: r.Courses[0].ID, Class: Auxiliary},
		{ID: "P1", CourseID: r.Courses[0].ID, Class: Presentation},
	}, r.Courses[0].Files)
	assert.Empty(t, r.Courses[1].Files)

	assert.Equal(t, []Access{
		{UserID: r.Users[0].ID, CourseID: r.Courses[0].ID},
		{UserID: r.Users[1].ID, CourseID: r.Courses[0].ID},
		{UserID: r.Users[2].ID, CourseID: r.Courses[1].ID},
	}, r.Accesses)
}

func TestLoadMockDataEnrolsEveryoneWithoutAccesses(t *testing.T) {
	data := `{
	  "users":   [ { "email": "a@example.com", "role": "student" }, { "email": "b@example.com", "role": "instructor" } ],
	  "courses": [ { "category": "X", "course_name": "One" }, { "category": "X", "course_name": "Two" } ]
	}`

	store := newStore(t)
	require.NoError(t, store.LoadMockData(context.Background(), strings.NewReader(data)))

	// ... loading twice must not duplicate anything
	require.NoError(t, store.LoadMockData(context.Background(), strings.NewReader(data)))

	r, err := store.LoadRoster(context.Background())
	require.NoError(t, err)

	assert.Len(t, r.Users, 2)
	assert.Len(t, r.Courses, 2)
	assert.Len(t, r.Accesses, 4)
}

func TestLoadRosterWithMissingDatabase(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))

	_, err := store.LoadRoster(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestLoadRosterWithMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	script(t, path, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, role TEXT);
		CREATE TABLE courses (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE accesses (user_id INTEGER, course_id INTEGER);
	`)

	_, err := NewStore(path).LoadRoster(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "files")
}

func TestLoadRosterWithMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	script(t, path, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT);
		CREATE TABLE courses (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE accesses (user_id INTEGER, course_id INTEGER);
		CREATE TABLE files (id TEXT, course_id INTEGER, class TEXT);
	`)

	_, err := NewStore(path).LoadRoster(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "role")
}

func TestLoadRosterWithInvalidFileClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	script(t, path, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, role TEXT);
		CREATE TABLE courses (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE accesses (user_id INTEGER, course_id INTEGER);
		CREATE TABLE files (id TEXT, course_id INTEGER, class TEXT);
		INSERT INTO courses (id, name) VALUES (1, 'Concurrency');
		INSERT INTO files (id, course_id, class) VALUES ('F1', 1, 'spreadsheet');
	`)

	_, err := NewStore(path).LoadRoster(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestLoadRosterWithMinimalSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	script(t, path, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, role TEXT);
		CREATE TABLE courses (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE accesses (user_id INTEGER, course_id INTEGER);
		CREATE TABLE files (id TEXT, course_id INTEGER, class TEXT);
		INSERT INTO users (id, email, role) VALUES (1, ' Ada@Example.com ', 'Teacher');
		INSERT INTO courses (id, name) VALUES (1, 'Concurrency');
		INSERT INTO accesses (user_id, course_id) VALUES (1, 1);
		INSERT INTO files (id, course_id, class) VALUES ('P1', 1, 'Presentation');
	`)

	r, err := NewStore(path).LoadRoster(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []User{{ID: 1, Email: "Ada@Example.com", Role: Instructor}}, r.Users)
	assert.Equal(t, []string{"P1"}, r.Files())
	assert.True(t, r.Users[0].Active())
}

func TestRosterWithout(t *testing.T) {
	r := &Roster{
		Courses: []Course{
			{ID: 1, Files: []File{{ID: "P1", Class: Presentation}, {ID: "A1", Class: Auxiliary}}},
			{ID: 2, Files: []File{{ID: "P2", Class: Presentation}}},
		},
	}

	filtered := r.Without([]string{"A1", "P2"})

	assert.Equal(t, []string{"P1"}, filtered.Files())
	assert.Equal(t, []string{"P1", "A1", "P2"}, r.Files())
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"instructor": Instructor,
		" Teacher ":  Instructor,
		"STUDENT":    Student,
		"reader":     RoleUnknown,
		"":           RoleUnknown,
	}

	for v, expected := range tests {
		assert.Equalf(t, expected, ParseRole(v), "role '%v'", v)
	}
}

func script(t *testing.T, path, sql string) {
	t.Helper()

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	require.NoError(t, err)

	defer conn.Close()

	require.NoError(t, sqlitex.ExecuteScript(conn, sql, nil))
}
