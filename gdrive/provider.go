package gdrive

import (
	"context"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/roster"
)

// Provider is the permission call surface of a file sharing service.
type Provider interface {
	ListPermissions(ctx context.Context, fileID string) ([]Entry, error)
	CreatePermission(ctx context.Context, fileID, principal string, level acl.Level) error
	DeletePermission(ctx context.Context, fileID, principal string) error
}

// CopyProtector is implemented by providers that can restrict copying,
// printing and downloading of a file to writers.
type CopyProtector interface {
	SetCopyRequiresWriterPermission(ctx context.Context, fileID string, protect bool) error
}

// Discoverer is implemented by providers that can find the files for a course
// by walking a folder hierarchy.
type Discoverer interface {
	CourseFiles(ctx context.Context, root string, course roster.Course) ([]roster.File, error)
}

// Entry is a single permission record as reported by the provider.
type Entry struct {
	ID        string
	Principal string
	Type      string
	Level     acl.Level
}
