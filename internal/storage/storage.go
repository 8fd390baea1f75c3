package storage

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"canvas-drive-sync/internal/domain"
)

const DefaultMimeType = "application/octet-stream"

// Store is a destination file store. Folders are addressed by id, files by
// name inside a folder.
type Store interface {
	Name() string
	ListFolders(ctx context.Context) ([]domain.Folder, error)
	// EnsureFolder returns the id of the folder called name, creating it when absent.
	EnsureFolder(ctx context.Context, name string) (string, error)
	Lookup(ctx context.Context, name, parentID string) Lookup
	Upload(ctx context.Context, req UploadRequest) (domain.StoredFile, error)
}

type UploadRequest struct {
	Name     string
	ParentID string
	MimeType string
	Size     int64
	Body     io.Reader
}

type Outcome int

const (
	NotFound Outcome = iota
	Found
	BackendError
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	case BackendError:
		return "backend-error"
	}
	return "unknown"
}

// Lookup is the result of an existence check. Found carries the first match
// reported by the backend; BackendError carries the failure.
type Lookup struct {
	Outcome Outcome
	File    domain.StoredFile
	Err     error
}

func FoundFile(f domain.StoredFile) Lookup { return Lookup{Outcome: Found, File: f} }

func Missing() Lookup { return Lookup{Outcome: NotFound} }

func Failed(err error) Lookup { return Lookup{Outcome: BackendError, Err: err} }

// GuessMimeType prefers the declared type, then the extension, then DefaultMimeType.
func GuessMimeType(declared, name string) string {
	if d := strings.TrimSpace(declared); d != "" {
		return d
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return DefaultMimeType
}

// PathName turns a display name into a single NFC path segment for backends
// that address files by path. Canvas names may arrive decomposed (NFD).
func PathName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "/", "_")
	if name == "." || name == ".." || name == "" {
		return "_"
	}
	return name
}
