package drive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/storage"
)

const (
	FolderMimeType = "application/vnd.google-apps.folder"

	fileFields = "id, name, mimeType, size, createdTime, parents, webViewLink"
)

// Store keeps Canvas files in Google Drive.
type Store struct {
	svc       *gdrive.Service
	chunkSize int
}

// New wraps an authorized HTTP client. chunkSizeMB <= 0 keeps the SDK default.
// Extra options (such as option.WithEndpoint) are passed to the Drive service.
func New(ctx context.Context, client *http.Client, chunkSizeMB int, opts ...option.ClientOption) (*Store, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	s := &Store{svc: svc}
	if chunkSizeMB > 0 {
		s.chunkSize = chunkSizeMB * 1024 * 1024
	}
	return s, nil
}

func (s *Store) Name() string { return "drive" }

// Verify checks that the session is accepted by Drive.
func (s *Store) Verify(ctx context.Context) (string, error) {
	about, err := s.svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if about.User == nil {
		return "", nil
	}
	return about.User.EmailAddress, nil
}

func (s *Store) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	q := fmt.Sprintf("mimeType='%s' and trashed=false", FolderMimeType)

	var out []domain.Folder
	err := s.svc.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name, parents)").
		OrderBy("name").
		PageSize(100).
		Pages(ctx, func(fl *gdrive.FileList) error {
			for _, f := range fl.Files {
				out = append(out, domain.Folder{ID: f.Id, Name: f.Name, ParentIDs: f.Parents})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("drive: list folders: %w", err)
	}
	return out, nil
}

func (s *Store) EnsureFolder(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	fl, err := s.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		OrderBy("createdTime").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: find folder %q: %w", name, err)
	}
	if len(fl.Files) > 0 {
		return fl.Files[0].Id, nil
	}

	f, err := s.svc.Files.Create(&gdrive.File{Name: name, MimeType: FolderMimeType}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive: create folder %q: %w", name, err)
	}
	return f.Id, nil
}

// Lookup finds a non-trashed file with exactly this name. The backend orders by
// creation time, so the earliest file wins. An empty parentID searches everywhere.
func (s *Store) Lookup(ctx context.Context, name, parentID string) storage.Lookup {
	fl, err := s.svc.Files.List().
		Q(lookupQuery(name, parentID)).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		OrderBy("createdTime").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return storage.Failed(fmt.Errorf("drive: lookup %q: %w", name, err))
	}
	for _, f := range fl.Files {
		// Drive's name operator is case-insensitive; keep exact matches only.
		if f.Name == name {
			return storage.FoundFile(toStored(f))
		}
	}
	return storage.Missing()
}

func (s *Store) Upload(ctx context.Context, req storage.UploadRequest) (domain.StoredFile, error) {
	meta := &gdrive.File{
		Name:     req.Name,
		MimeType: req.MimeType,
	}
	if req.ParentID != "" {
		meta.Parents = []string{req.ParentID}
	}

	mediaOpts := []googleapi.MediaOption{googleapi.ContentType(req.MimeType)}
	if s.chunkSize > 0 {
		mediaOpts = append(mediaOpts, googleapi.ChunkSize(s.chunkSize))
	}

	f, err := s.svc.Files.Create(meta).
		Media(req.Body, mediaOpts...).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return domain.StoredFile{}, fmt.Errorf("drive: upload %q: %w", req.Name, err)
	}
	return toStored(f), nil
}

func lookupQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and trashed=false", escapeQuery(name))
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

// escapeQuery escapes a literal for a Drive query string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func toStored(f *gdrive.File) domain.StoredFile {
	out := domain.StoredFile{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		WebURL:   f.WebViewLink,
	}
	if len(f.Parents) > 0 {
		out.ParentFolderID = f.Parents[0]
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		out.CreatedTime = t
	}
	return out
}
