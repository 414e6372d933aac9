package roster

import (
	"context"
	"fmt"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store is the SQLite roster database.
type Store struct {
	path string
}

var required = map[string][]string{
	"users":    {"id", "email", "role"},
	"courses":  {"id", "name"},
	"accesses": {"user_id", "course_id"},
	"files":    {"id", "course_id", "class"},
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

// LoadRoster reads a complete snapshot of the roster. The database is opened
// read-only so a missing file is reported rather than created.
func (s *Store) LoadRoster(ctx context.Context) (*Roster, error) {
	conn, err := sqlite.OpenConn(s.path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open %v (%v)", ErrStoreUnavailable, s.path, err)
	}

	defer conn.Close()

	conn.SetInterrupt(ctx.Done())

	schema := map[string]map[string]bool{}
	for table, columns := range required {
		available, err := tableColumns(conn, table)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		} else if len(available) == 0 {
			return nil, fmt.Errorf("%w: missing table '%v'", ErrStoreUnavailable, table)
		}

		for _, c := range columns {
			if !available[c] {
				return nil, fmt.Errorf("%w: table '%v' is missing column '%v'", ErrStoreUnavailable, table, c)
			}
		}

		schema[table] = available
	}

	users, err := loadUsers(conn, schema["users"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	courses, err := loadCourses(conn, schema["courses"])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := loadFiles(conn, courses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	accesses, err := loadAccesses(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Roster{
		Users:    users,
		Courses:  courses,
		Accesses: accesses,
	}, nil
}

func tableColumns(conn *sqlite.Conn, table string) (map[string]bool, error) {
	columns := map[string]bool{}

	err := sqlitex.Execute(conn, "SELECT name FROM pragma_table_info(?)", &sqlitex.ExecOptions{
		Args: []any{table},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			columns[strings.ToLower(stmt.ColumnText(0))] = true
			return nil
		},
	})

	if err != nil {
		return nil, fmt.Errorf("error reading schema for '%v' (%v)", table, err)
	}

	return columns, nil
}

// optional returns the column name if the table has it, otherwise the default
// expression.
func optional(columns map[string]bool, column, dflt string) string {
	if columns[column] {
		return column
	}

	return dflt
}

func loadUsers(conn *sqlite.Conn, columns map[string]bool) ([]User, error) {
	query := fmt.Sprintf("SELECT id, email, role, %v, %v, %v FROM users ORDER BY id",
		optional(columns, "name", "''"),
		optional(columns, "status", "''"),
		optional(columns, "is_deleted", "0"))

	users := []User{}
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			users = append(users, User{
				ID:      stmt.ColumnInt64(0),
				Email:   strings.TrimSpace(stmt.ColumnText(1)),
				Role:    ParseRole(stmt.ColumnText(2)),
				Name:    stmt.ColumnText(3),
				Status:  stmt.ColumnText(4),
				Deleted: stmt.ColumnInt64(5) != 0,
			})

			return nil
		},
	})

	if err != nil {
		return nil, fmt.Errorf("error reading users (%v)", err)
	}

	return users, nil
}

func loadCourses(conn *sqlite.Conn, columns map[string]bool) ([]Course, error) {
	query := fmt.Sprintf("SELECT id, name, %v, %v FROM courses ORDER BY id",
		optional(columns, "category", "''"),
		optional(columns, "sub_category", "''"))

	courses := []Course{}
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			courses = append(courses, Course{
				ID:          stmt.ColumnInt64(0),
				Name:        stmt.ColumnText(1),
				Category:    stmt.ColumnText(2),
				SubCategory: stmt.ColumnText(3),
				Files:       []File{},
			})

			return nil
		},
	})

	if err != nil {
		return nil, fmt.Errorf("error reading courses (%v)", err)
	}

	return courses, nil
}

func loadFiles(conn *sqlite.Conn, courses []Course) error {
	index := map[int64]int{}
	for i, c := range courses {
		index[c.ID] = i
	}

	return sqlitex.Execute(conn, "SELECT id, course_id, class FROM files ORDER BY course_id, id", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id := strings.TrimSpace(stmt.ColumnText(0))
			if id == "" {
				return fmt.Errorf("file for course %v has no file ID", stmt.ColumnInt64(1))
			}

			class, err := ParseClass(stmt.ColumnText(2))
			if err != nil {
				return fmt.Errorf("file %v: %v", id, err)
			}

			courseID := stmt.ColumnInt64(1)
			if ix, ok := index[courseID]; ok {
				courses[ix].Files = append(courses[ix].Files, File{
					ID:       id,
					CourseID: courseID,
					Class:    class,
				})
			}

			return nil
		},
	})
}

func loadAccesses(conn *sqlite.Conn) ([]Access, error) {
	accesses := []Access{}
	err := sqlitex.Execute(conn, "SELECT user_id, course_id FROM accesses ORDER BY user_id, course_id", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			accesses = append(accesses, Access{
				UserID:   stmt.ColumnInt64(0),
				CourseID: stmt.ColumnInt64(1),
			})

			return nil
		},
	})

	if err != nil {
		return nil, fmt.Errorf("error reading accesses (%v)", err)
	}

	return accesses, nil
}
