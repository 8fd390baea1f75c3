package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"canvas-drive-sync/internal/domain"
	gstorage "canvas-drive-sync/internal/storage"
)

// Store keeps files as objects in one bucket. A folder is a key prefix and its
// id is the prefix itself (no trailing slash).
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

func New(client *storage.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *Store) Name() string { return "gcs" }

func (s *Store) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	q := &storage.Query{Delimiter: "/"}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}

	var out []domain.Folder
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list folders: %w", err)
		}
		if attrs.Prefix == "" {
			continue
		}
		id := strings.TrimSuffix(attrs.Prefix, "/")
		out = append(out, domain.Folder{ID: id, Name: path.Base(id), ParentIDs: []string{s.prefix}})
	}
	return out, nil
}

// EnsureFolder only computes the prefix; object stores have no directories to create.
func (s *Store) EnsureFolder(ctx context.Context, name string) (string, error) {
	return s.key("", gstorage.PathName(name)), nil
}

func (s *Store) Lookup(ctx context.Context, name, parentID string) gstorage.Lookup {
	key := s.key(parentID, gstorage.PathName(name))
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return gstorage.Missing()
	}
	if err != nil {
		return gstorage.Failed(fmt.Errorf("gcs: attrs %s: %w", key, err))
	}
	return gstorage.FoundFile(toStored(attrs))
}

func (s *Store) Upload(ctx context.Context, req gstorage.UploadRequest) (domain.StoredFile, error) {
	key := s.key(req.ParentID, gstorage.PathName(req.Name))

	// DoesNotExist keeps a concurrent writer from being overwritten.
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = req.MimeType

	if _, err := io.Copy(w, req.Body); err != nil {
		w.Close()
		return domain.StoredFile{}, fmt.Errorf("gcs: upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return domain.StoredFile{}, fmt.Errorf("gcs: upload %s: %w", key, err)
	}
	return toStored(w.Attrs()), nil
}

func (s *Store) key(parentID, name string) string {
	if parentID == "" {
		parentID = s.prefix
	}
	if parentID == "" {
		return name
	}
	return parentID + "/" + name
}

func toStored(a *storage.ObjectAttrs) domain.StoredFile {
	if a == nil {
		return domain.StoredFile{}
	}
	parent := ""
	if i := strings.LastIndex(a.Name, "/"); i >= 0 {
		parent = a.Name[:i]
	}
	return domain.StoredFile{
		ID:             a.Name,
		Name:           path.Base(a.Name),
		MimeType:       a.ContentType,
		Size:           a.Size,
		CreatedTime:    a.Created,
		ParentFolderID: parent,
		WebURL:         fmt.Sprintf("https://storage.cloud.google.com/%s/%s", a.Bucket, a.Name),
	}
}
