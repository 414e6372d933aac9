package acl

import (
	"github.com/eduaccess/gdrive-access-sync/roster"
)

// Desired computes the permissions implied by the roster:
//
//   - instructor on a course: reader on presentation files, writer on auxiliary files
//   - student on a course: reader on presentation files
//
// Inactive users, unknown roles and enrolments that reference unknown users or
// courses imply nothing.
func Desired(r *roster.Roster) State {
	users := map[int64]roster.User{}
	for _, u := range r.Users {
		users[u.ID] = u
	}

	courses := map[int64]roster.Course{}
	for _, c := range r.Courses {
		courses[c.ID] = c
	}

	state := State{}
	for _, a := range r.Accesses {
		u, ok := users[a.UserID]
		if !ok || !u.Active() {
			continue
		}

		c, ok := courses[a.CourseID]
		if !ok {
			continue
		}

		principal := Normalise(u.Email)
		if principal == "" {
			continue
		}

		for _, f := range c.Files {
			if level := implied(u.Role, f.Class); level != None {
				state.Add(f.ID, principal, level)
			}
		}
	}

	return state
}

// Managed returns the set of principals the roster is responsible for. Only
// these principals are ever revoked.
func Managed(r *roster.Roster) map[string]bool {
	managed := map[string]bool{}
	for _, u := range r.Users {
		if principal := Normalise(u.Email); principal != "" {
			managed[principal] = true
		}
	}

	return managed
}

// Reconcile compares the desired state for the roster with the current state
// reported by the provider. Files missing from current are treated as having
// no permissions.
//
// A managed principal that keeps access to a file at a different level gets a
// single grant at the new level rather than a revoke/grant pair. Owner and
// organizer permissions are left untouched.
func Reconcile(r *roster.Roster, current State) Plan {
	desired := Desired(r)
	managed := Managed(r)

	plan := Plan{
		Grants:      []Permission{},
		Revocations: []Permission{},
	}

	for file, principals := range desired {
		for principal, level := range principals {
			have := current.Get(file, principal)
			if have == level || have.Protected() {
				continue
			}

			plan.Grants = append(plan.Grants, Permission{
				FileID:    file,
				Principal: principal,
				Level:     level,
			})
		}
	}

	for file, principals := range current {
		for principal, level := range principals {
			if !managed[principal] || level.Protected() || level == None {
				continue
			}

			if desired.Get(file, principal) != None {
				continue
			}

			plan.Revocations = append(plan.Revocations, Permission{
				FileID:    file,
				Principal: principal,
				Level:     level,
			})
		}
	}

	sortPermissions(plan.Grants)
	sortPermissions(plan.Revocations)

	return plan
}

func implied(role roster.Role, class roster.Class) Level {
	switch {
	case role == roster.Instructor && class == roster.Presentation:
		return Reader

	case role == roster.Instructor && class == roster.Auxiliary:
		return Writer

	case role == roster.Student && class == roster.Presentation:
		return Reader

	default:
		return None
	}
}
