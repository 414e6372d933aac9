// Package roster reads the users, courses, enrolments and course files that
// determine who should have access to which Google Drive files.
package roster

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStoreUnavailable is returned (wrapped) when the roster database cannot be
// opened or does not have the expected tables and columns.
var ErrStoreUnavailable = errors.New("roster store unavailable")

type Role int

const (
	RoleUnknown Role = iota
	Student
	Instructor
)

func (r Role) String() string {
	switch r {
	case Student:
		return "student"
	case Instructor:
		return "instructor"
	default:
		return "unknown"
	}
}

// ParseRole accepts the role names used in the users table. 'teacher' is
// accepted as an alias for 'instructor'.
func ParseRole(v string) Role {
	switch normalise(v) {
	case "instructor", "teacher":
		return Instructor
	case "student":
		return Student
	default:
		return RoleUnknown
	}
}

type Class int

const (
	Presentation Class = iota + 1
	Auxiliary
)

func (c Class) String() string {
	switch c {
	case Presentation:
		return "presentation"
	case Auxiliary:
		return "auxiliary"
	default:
		return "unknown"
	}
}

func ParseClass(v string) (Class, error) {
	switch normalise(v) {
	case "presentation":
		return Presentation, nil
	case "auxiliary":
		return Auxiliary, nil
	default:
		return 0, fmt.Errorf("invalid file class '%v'", v)
	}
}

type User struct {
	ID      int64
	Email   string
	Name    string
	Role    Role
	Status  string
	Deleted bool
}

// Active is false for users who have left (status 'fired', 'deactivated' or
// 'inactive') or who are flagged as deleted. Inactive users remain managed
// principals but are not granted anything.
func (u User) Active() bool {
	if u.Deleted {
		return false
	}

	switch normalise(u.Status) {
	case "fired", "deactivated", "inactive":
		return false
	}

	return true
}

type File struct {
	ID       string
	CourseID int64
	Name     string
	Class    Class
}

type Course struct {
	ID          int64
	Name        string
	Category    string
	SubCategory string
	Files       []File
}

// Path is the Drive folder path of the course below the courses root, i.e.
// category/sub-category/name with an empty sub-category omitted.
func (c Course) Path() []string {
	path := []string{}
	if c.Category != "" {
		path = append(path, c.Category)
	}

	if c.SubCategory != "" {
		path = append(path, c.SubCategory)
	}

	return append(path, c.Name)
}

type Access struct {
	UserID   int64
	CourseID int64
}

// Roster is a snapshot of the roster database.
type Roster struct {
	Users    []User
	Courses  []Course
	Accesses []Access
}

// Files returns the IDs of all course files, in course order.
func (r *Roster) Files() []string {
	list := []string{}
	for _, c := range r.Courses {
		for _, f := range c.Files {
			list = append(list, f.ID)
		}
	}

	return list
}

// Without returns a copy of the roster with the listed files removed from
// their courses.
func (r *Roster) Without(files []string) *Roster {
	exclude := map[string]bool{}
	for _, f := range files {
		exclude[f] = true
	}

	courses := make([]Course, 0, len(r.Courses))
	for _, c := range r.Courses {
		course := c
		course.Files = []File{}
		for _, f := range c.Files {
			if !exclude[f.ID] {
				course.Files = append(course.Files, f)
			}
		}

		courses = append(courses, course)
	}

	return &Roster{
		Users:    r.Users,
		Courses:  courses,
		Accesses: r.Accesses,
	}
}

func normalise(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
