package acl

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// Level is a Drive permission role, ordered so that a higher level implies
// everything a lower level allows.
type Level int

const (
	None Level = iota
	Reader
	Commenter
	Writer
	Organizer
	Owner
)

func (l Level) String() string {
	switch l {
	case Reader:
		return "reader"
	case Commenter:
		return "commenter"
	case Writer:
		return "writer"
	case Organizer:
		return "organizer"
	case Owner:
		return "owner"
	default:
		return "none"
	}
}

// Protected levels are never revoked or changed.
func (l Level) Protected() bool {
	return l >= Organizer
}

// ParseLevel maps a Drive permission role to a Level. 'read' and 'write' are
// accepted as aliases.
func ParseLevel(role string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "reader", "read":
		return Reader, nil
	case "commenter":
		return Commenter, nil
	case "writer", "write":
		return Writer, nil
	case "organizer", "fileorganizer":
		return Organizer, nil
	case "owner":
		return Owner, nil
	default:
		return None, fmt.Errorf("unknown permission role '%v'", role)
	}
}

type Permission struct {
	FileID    string
	Principal string
	Level     Level
}

func (p Permission) String() string {
	return fmt.Sprintf("%v  %v  %v", p.FileID, p.Principal, p.Level)
}

// State maps file ID -> principal -> level.
type State map[string]map[string]Level

// Add records a permission, keeping the higher level if the principal already
// has one on the file.
func (s State) Add(fileID, principal string, level Level) {
	principals, ok := s[fileID]
	if !ok {
		principals = map[string]Level{}
		s[fileID] = principals
	}

	if level > principals[principal] {
		principals[principal] = level
	}
}

func (s State) Get(fileID, principal string) Level {
	if principals, ok := s[fileID]; ok {
		return principals[principal]
	}

	return None
}

// Permissions returns the state as a list sorted by file and principal.
func (s State) Permissions() []Permission {
	list := []Permission{}
	for file, principals := range s {
		for principal, level := range principals {
			list = append(list, Permission{
				FileID:    file,
				Principal: principal,
				Level:     level,
			})
		}
	}

	sortPermissions(list)

	return list
}

// Apply returns a copy of the state with the plan applied.
func (s State) Apply(plan Plan) State {
	state := State{}
	for file, principals := range s {
		state[file] = map[string]Level{}
		for principal, level := range principals {
			state[file][principal] = level
		}
	}

	for _, p := range plan.Revocations {
		delete(state[p.FileID], p.Principal)
	}

	for _, p := range plan.Grants {
		if _, ok := state[p.FileID]; !ok {
			state[p.FileID] = map[string]Level{}
		}

		state[p.FileID][p.Principal] = p.Level
	}

	return state
}

type Plan struct {
	Grants      []Permission
	Revocations []Permission
}

func (p Plan) IsEmpty() bool {
	return len(p.Grants) == 0 && len(p.Revocations) == 0
}

// Normalise returns the canonical form of a principal e-mail address: trimmed,
// lower case and with an ASCII (punycode) domain.
func Normalise(email string) string {
	s := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return s
	}

	domain, err := idna.Lookup.ToASCII(s[at+1:])
	if err != nil {
		return s
	}

	return s[:at+1] + domain
}

func sortPermissions(list []Permission) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].FileID != list[j].FileID {
			return list[i].FileID < list[j].FileID
		}

		return list[i].Principal < list[j].Principal
	})
}
