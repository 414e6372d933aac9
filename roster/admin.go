package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         INTEGER PRIMARY KEY,
    email      TEXT    NOT NULL UNIQUE,
    name       TEXT    NOT NULL DEFAULT '',
    status     TEXT    NOT NULL DEFAULT 'new',
    role       TEXT    NOT NULL,
    is_deleted INTEGER NOT NULL DEFAULT 0,
    comment    TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS courses (
    id           INTEGER PRIMARY KEY,
    category     TEXT NOT NULL DEFAULT '',
    sub_category TEXT NOT NULL DEFAULT '',
    name         TEXT NOT NULL,
    UNIQUE (category, name)
);

CREATE TABLE IF NOT EXISTS accesses (
    id        INTEGER PRIMARY KEY,
    user_id   INTEGER NOT NULL REFERENCES users(id),
    course_id INTEGER NOT NULL REFERENCES courses(id),
    UNIQUE (user_id, course_id)
);

CREATE TABLE IF NOT EXISTS files (
    id        TEXT    PRIMARY KEY,
    course_id INTEGER NOT NULL REFERENCES courses(id),
    class     TEXT    NOT NULL CHECK (class IN ('presentation', 'auxiliary'))
);
`

// MockData is the JSON layout accepted by LoadMockData.
type MockData struct {
	Users []struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Status    string `json:"status"`
		Role      string `json:"role"`
		IsDeleted bool   `json:"is_deleted"`
		Comment   string `json:"comment"`
	} `json:"users"`

	Courses []struct {
		Category    string `json:"category"`
		SubCategory string `json:"sub_category"`
		Name        string `json:"course_name"`
		Files       []struct {
			ID    string `json:"id"`
			Class string `json:"class"`
		} `json:"files"`
	} `json:"courses"`

	Accesses []struct {
		Email    string `json:"email"`
		Category string `json:"category"`
		Course   string `json:"course_name"`
	} `json:"accesses"`
}

// CreateTables creates the roster tables if they do not already exist.
func (s *Store) CreateTables(ctx context.Context) error {
	conn, err := s.openRW(ctx)
	if err != nil {
		return err
	}

	defer conn.Close()

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("error creating tables (%w)", err)
	}

	return nil
}

// LoadMockData populates the roster from a JSON document. Users and courses
// that already exist are left unchanged. If the document has no accesses
// every user is enrolled in every course.
func (s *Store) LoadMockData(ctx context.Context, r io.Reader) (err error) {
	var data MockData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("invalid mock data (%w)", err)
	}

	conn, err := s.openRW(ctx)
	if err != nil {
		return err
	}

	defer conn.Close()

	defer sqlitex.Save(conn)(&err)

	for _, u := range data.Users {
		if u.Email == "" || u.Role == "" {
			return fmt.Errorf("user '%v' is missing required fields", u.Name)
		}

		if err := exec(conn, `INSERT OR IGNORE INTO users (email, name, status, role, is_deleted, comment) VALUES (?, ?, ?, ?, ?, ?)`,
			u.Email, u.Name, status(u.Status), u.Role, flag(u.IsDeleted), u.Comment); err != nil {
			return fmt.Errorf("error adding user %v (%w)", u.Email, err)
		}
	}

	for _, c := range data.Courses {
		if c.Name == "" {
			return fmt.Errorf("course in category '%v' has no name", c.Category)
		}

		if err := exec(conn, `INSERT OR IGNORE INTO courses (category, sub_category, name) VALUES (?, ?, ?)`,
			c.Category, c.SubCategory, c.Name); err != nil {
			return fmt.Errorf("error adding course %v (%w)", c.Name, err)
		}

		courseID, err := lookup(conn, `SELECT id FROM courses WHERE category = ? AND name = ?`, c.Category, c.Name)
		if err != nil {
			return err
		}

		for _, f := range c.Files {
			class, err := ParseClass(f.Class)
			if err != nil {
				return fmt.Errorf("course %v: file %v: %w", c.Name, f.ID, err)
			}

			if err := exec(conn, `INSERT OR REPLACE INTO files (id, course_id, class) VALUES (?, ?, ?)`,
				f.ID, courseID, class.String()); err != nil {
				return fmt.Errorf("error adding file %v (%w)", f.ID, err)
			}
		}
	}

	if len(data.Accesses) == 0 {
		if err := exec(conn, `INSERT OR IGNORE INTO accesses (user_id, course_id) SELECT users.id, courses.id FROM users CROSS JOIN courses`); err != nil {
			return fmt.Errorf("error adding accesses (%w)", err)
		}

		return nil
	}

	for _, a := range data.Accesses {
		userID, err := lookup(conn, `SELECT id FROM users WHERE email = ?`, a.Email)
		if err != nil {
			return err
		}

		courseID, err := lookup(conn, `SELECT id FROM courses WHERE category = ? AND name = ?`, a.Category, a.Course)
		if err != nil {
			return err
		}

		if err := exec(conn, `INSERT OR IGNORE INTO accesses (user_id, course_id) VALUES (?, ?)`, userID, courseID); err != nil {
			return fmt.Errorf("error adding access %v/%v (%w)", a.Email, a.Course, err)
		}
	}

	return nil
}

func (s *Store) openRW(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(s.path, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open %v (%v)", ErrStoreUnavailable, s.path, err)
	}

	conn.SetInterrupt(ctx.Done())

	return conn, nil
}

func status(v string) string {
	if v == "" {
		return "new"
	}

	return v
}

func flag(v bool) int64 {
	if v {
		return 1
	}

	return 0
}

func exec(conn *sqlite.Conn, query string, args ...any) error {
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
	})
}

func lookup(conn *sqlite.Conn, query string, args ...any) (int64, error) {
	var id int64
	found := false

	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id = stmt.ColumnInt64(0)
			found = true
			return nil
		},
	})

	if err != nil {
		return 0, err
	} else if !found {
		return 0, fmt.Errorf("no record for %v", args)
	}

	return id, nil
}
