package gdrive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/eduaccess/gdrive-access-sync/acl"
	"github.com/eduaccess/gdrive-access-sync/roster"
)

const (
	FOLDER = "application/vnd.google-apps.folder"
	EMPTY  = "Empty"
)

var presentations = map[string]bool{
	"application/vnd.google-apps.presentation":                                  true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.ms-powerpoint":                                             true,
}

// Drive implements Provider, CopyProtector and Discoverer over the Google
// Drive v3 API. Permission IDs are cached per file and principal from the most
// recent listing so that updates and deletes do not need to relist.
type Drive struct {
	service *drive.Service
	ids     map[string]map[string]string
	sync.RWMutex
}

func NewDrive(ctx context.Context, client *http.Client) (*Drive, error) {
	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Drive client (%w)", err)
	}

	return &Drive{
		service: service,
		ids:     map[string]map[string]string{},
	}, nil
}

func (d *Drive) ListPermissions(ctx context.Context, fileID string) ([]Entry, error) {
	entries := []Entry{}
	ids := map[string]string{}

	err := d.service.Permissions.
		List(fileID).
		Fields("nextPageToken,permissions(id,type,role,emailAddress)").
		PageSize(100).
		SupportsAllDrives(true).
		Pages(ctx, func(page *drive.PermissionList) error {
			for _, p := range page.Permissions {
				level, err := acl.ParseLevel(p.Role)
				if err != nil {
					debugf("%v: ignoring permission %v (%v)", fileID, p.Id, err)
					continue
				}

				principal := ""
				if p.Type == "user" || p.Type == "group" {
					principal = acl.Normalise(p.EmailAddress)
				}

				if principal != "" {
					ids[principal] = p.Id
				}

				entries = append(entries, Entry{
					ID:        p.Id,
					Principal: principal,
					Type:      p.Type,
					Level:     level,
				})
			}

			return nil
		})

	if err != nil {
		return nil, err
	}

	d.Lock()
	d.ids[fileID] = ids
	d.Unlock()

	return entries, nil
}

// CreatePermission grants a user access to a file without sending a
// notification e-mail. An existing permission for the principal is updated to
// the new level rather than duplicated.
func (d *Drive) CreatePermission(ctx context.Context, fileID, principal string, level acl.Level) error {
	if level == acl.None || level.Protected() {
		return &ProviderError{Kind: ErrPermanent, Err: fmt.Errorf("cannot grant '%v' on %v", level, fileID)}
	}

	id, err := d.permissionID(ctx, fileID, principal)
	if err != nil {
		return err
	}

	if id != "" {
		_, err := d.service.Permissions.
			Update(fileID, id, &drive.Permission{Role: level.String()}).
			SupportsAllDrives(true).
			Context(ctx).
			Do()

		return err
	}

	permission := drive.Permission{
		Type:         "user",
		Role:         level.String(),
		EmailAddress: principal,
	}

	created, err := d.service.Permissions.
		Create(fileID, &permission).
		SendNotificationEmail(false).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()

	if err != nil {
		return err
	}

	d.Lock()
	if _, ok := d.ids[fileID]; !ok {
		d.ids[fileID] = map[string]string{}
	}
	d.ids[fileID][acl.Normalise(principal)] = created.Id
	d.Unlock()

	return nil
}

// DeletePermission removes the principal's permission on a file. A principal
// with no permission on the file is not an error.
func (d *Drive) DeletePermission(ctx context.Context, fileID, principal string) error {
	id, err := d.permissionID(ctx, fileID, principal)
	if err != nil {
		return err
	} else if id == "" {
		debugf("%v: no permission for %v", fileID, principal)
		return nil
	}

	err = d.service.Permissions.
		Delete(fileID, id).
		SupportsAllDrives(true).
		Context(ctx).
		Do()

	if err != nil {
		return err
	}

	d.Lock()
	delete(d.ids[fileID], acl.Normalise(principal))
	d.Unlock()

	return nil
}

func (d *Drive) SetCopyRequiresWriterPermission(ctx context.Context, fileID string, protect bool) error {
	file := drive.File{
		CopyRequiresWriterPermission: protect,
		ForceSendFields:              []string{"CopyRequiresWriterPermission"},
	}

	_, err := d.service.Files.
		Update(fileID, &file).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()

	return err
}

// CourseFiles finds the files in the course folder <root>/<category>/<sub-category>/<course>.
// A course folder with the description 'Empty' has no files. Presentations
// (Google Slides and PowerPoint) are presentation files and everything else is
// auxiliary.
func (d *Drive) CourseFiles(ctx context.Context, root string, course roster.Course) ([]roster.File, error) {
	folder, err := d.folder(ctx, "", root)
	if err != nil {
		return nil, err
	} else if folder == nil {
		return nil, &ProviderError{Kind: ErrPermanent, Err: fmt.Errorf("missing root folder '%v'", root)}
	}

	for _, name := range course.Path() {
		if folder, err = d.folder(ctx, folder.Id, name); err != nil {
			return nil, err
		} else if folder == nil {
			return nil, &ProviderError{Kind: ErrPermanent, Err: fmt.Errorf("missing folder '%v' for course '%v'", name, course.Name)}
		}
	}

	if strings.TrimSpace(folder.Description) == EMPTY {
		debugf("course folder '%v' is marked %v", strings.Join(course.Path(), "/"), EMPTY)
		return []roster.File{}, nil
	}

	files := []roster.File{}
	q := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", folder.Id, FOLDER)

	err = d.service.Files.
		List().
		Q(q).
		Fields("nextPageToken,files(id,name,mimeType)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, roster.File{
					ID:       f.Id,
					CourseID: course.ID,
					Name:     f.Name,
					Class:    ClassOf(f.MimeType),
				})
			}

			return nil
		})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// ClassOf classifies a Drive file by MIME type.
func ClassOf(mimeType string) roster.Class {
	if presentations[strings.ToLower(strings.TrimSpace(mimeType))] {
		return roster.Presentation
	}

	return roster.Auxiliary
}

func (d *Drive) folder(ctx context.Context, parent, name string) (*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escape(name), FOLDER)
	if parent != "" {
		q = fmt.Sprintf("'%s' in parents and %s", parent, q)
	}

	list, err := d.service.Files.
		List().
		Q(q).
		Fields("files(id,name,description)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()

	if err != nil {
		return nil, err
	} else if len(list.Files) == 0 {
		return nil, nil
	}

	return list.Files[0], nil
}

func (d *Drive) permissionID(ctx context.Context, fileID, principal string) (string, error) {
	principal = acl.Normalise(principal)

	d.RLock()
	ids, ok := d.ids[fileID]
	id := ids[principal]
	d.RUnlock()

	if ok {
		return id, nil
	}

	if _, err := d.ListPermissions(ctx, fileID); err != nil {
		return "", err
	}

	d.RLock()
	defer d.RUnlock()

	return d.ids[fileID][principal], nil
}

func escape(name string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
}
