package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/storage"
)

// Policy decides what a failed existence check means.
type Policy int

const (
	// FailOpen treats a lookup backend error as "not found" and uploads anyway.
	FailOpen Policy = iota
	// FailClosed records the file as failed and does not upload it.
	FailClosed
)

func (p Policy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

var ErrFileNotFound = errors.New("file not found in Canvas")

// Transferer moves one file descriptor into a destination folder.
type Transferer struct {
	LMS    LMS
	Store  storage.Store
	Policy Policy

	// FileTimeout bounds one file end to end (0 = no limit).
	FileTimeout time.Duration

	// PlanWorkers bounds concurrent lookups during a dry run.
	PlanWorkers int
}

// Transfer resolves the file, skips it when the folder already holds a file
// with the same name, and otherwise downloads and uploads it. It never returns
// an error: every outcome is a terminal TransferResult. Existence is checked
// before any bytes are downloaded.
func (t *Transferer) Transfer(ctx context.Context, d domain.FileDescriptor, folderID string) domain.TransferResult {
	if t.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.FileTimeout)
		defer cancel()
	}

	res := domain.TransferResult{
		CourseID:     d.CourseID,
		ModuleName:   d.ModuleName,
		Title:        d.Title,
		CanvasFileID: d.ContentID,
	}

	f, err := t.resolve(ctx, d)
	if err != nil {
		return failed(res, err)
	}
	res.Filename = f.Name()
	res.ContentType = f.ContentType
	res.Size = f.Size

	switch lk := t.Store.Lookup(ctx, res.Filename, folderID); lk.Outcome {
	case storage.Found:
		res.UploadSuccess = true
		res.DuplicateSkipped = true
		res.DestinationID = lk.File.ID
		res.DestinationURL = lk.File.WebURL
		res.Status = domain.StatusSkipped
		return res
	case storage.BackendError:
		if t.Policy == FailClosed {
			return failed(res, fmt.Errorf("existence check: %w", lk.Err))
		}
		log.Printf("WARN: existence check for %q failed, uploading anyway: %v", res.Filename, lk.Err)
	}

	body, err := t.LMS.Download(ctx, f.DownloadURL)
	if err != nil {
		return failed(res, err)
	}
	defer body.Close()

	stored, err := t.Store.Upload(ctx, storage.UploadRequest{
		Name:     res.Filename,
		ParentID: folderID,
		MimeType: storage.GuessMimeType(f.ContentType, res.Filename),
		Size:     f.Size,
		Body:     body,
	})
	if err != nil {
		return failed(res, err)
	}

	res.UploadSuccess = true
	res.DestinationID = stored.ID
	res.DestinationURL = stored.WebURL
	res.Status = domain.StatusUploaded
	return res
}

// resolve fetches fresh metadata for the descriptor's content id.
func (t *Transferer) resolve(ctx context.Context, d domain.FileDescriptor) (*domain.RemoteFile, error) {
	f, err := t.LMS.GetFile(ctx, d.ContentID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: content id %d", ErrFileNotFound, d.ContentID)
	}
	return f, nil
}

func failed(res domain.TransferResult, err error) domain.TransferResult {
	res.UploadSuccess = false
	res.DuplicateSkipped = false
	res.Status = domain.StatusFailed
	res.Error = err.Error()
	return res
}
