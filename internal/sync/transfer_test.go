package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/storage"
)

const folderID = "folder-1"

func descriptor(contentID int64, title string) domain.FileDescriptor {
	return domain.FileDescriptor{CourseID: 1, CourseName: "COMP10001", ModuleName: "Week 1", Title: title, ContentID: contentID}
}

func TestTransferUploads(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 42, "week1.pdf", "%PDF week one")
	store := newFakeStore()
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(42, "week1.pdf"), folderID)

	assert.Equal(t, domain.StatusUploaded, res.Status)
	assert.True(t, res.UploadSuccess)
	assert.False(t, res.DuplicateSkipped)
	assert.Equal(t, "stored-1", res.DestinationID)
	assert.Equal(t, "https://drive.test/stored-1", res.DestinationURL)
	assert.Equal(t, "week1.pdf", res.Filename)
	assert.Equal(t, int64(len("%PDF week one")), res.Size)
	assert.Equal(t, int64(42), res.CanvasFileID)
	assert.Empty(t, res.Error)

	require.Len(t, store.uploads, 1)
	assert.Equal(t, folderID, store.uploads[0].ParentID)
	assert.Equal(t, "application/pdf", store.uploads[0].MimeType)
	assert.Equal(t, "%PDF week one", store.contents["stored-1"])
}

func TestTransferSkipsExisting(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 7, "syllabus.pdf", "bytes")
	store := newFakeStore()
	store.seed(folderID, "existing-id", "syllabus.pdf")
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(7, "Syllabus"), folderID)

	assert.Equal(t, domain.StatusSkipped, res.Status)
	assert.True(t, res.UploadSuccess)
	assert.True(t, res.DuplicateSkipped)
	assert.Equal(t, "existing-id", res.DestinationID)
	assert.Empty(t, store.uploads)
	assert.Equal(t, 0, lms.downloadCalls, "existing files are not downloaded")
}

func TestTransferSameNameOtherFolderUploads(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 7, "syllabus.pdf", "bytes")
	store := newFakeStore()
	store.seed("other-folder", "existing-id", "syllabus.pdf")
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(7, "Syllabus"), folderID)
	assert.Equal(t, domain.StatusUploaded, res.Status)
}

func TestTransferMissingFile(t *testing.T) {
	lms := newFakeLMS()
	store := newFakeStore()
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(999, "gone.pdf"), folderID)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.False(t, res.UploadSuccess)
	assert.Contains(t, res.Error, "999")
	assert.Empty(t, store.lookups)
	assert.Empty(t, store.uploads)
	assert.Equal(t, 0, lms.downloadCalls)
}

func TestTransferDownloadFailure(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 5, "lecture.mp4", "video")
	lms.downloadErr["https://files.test/5"] = errors.New("canvas: download: status=403")
	store := newFakeStore()
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(5, "Lecture"), folderID)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, "lecture.mp4", res.Filename, "metadata is kept on failure")
	assert.Equal(t, int64(5), res.Size)
	assert.Contains(t, res.Error, "403")
	assert.Empty(t, store.uploads)
}

func TestTransferUploadFailure(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 5, "notes.docx", "doc")
	store := newFakeStore()
	store.uploadErr = errors.New("quota exceeded")
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(5, "Notes"), folderID)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.False(t, res.UploadSuccess)
	assert.Equal(t, "notes.docx", res.Filename)
	assert.Equal(t, int64(3), res.Size)
	assert.Equal(t, "quota exceeded", res.Error)
}

func TestTransferLookupErrorPolicy(t *testing.T) {
	testCases := []struct {
		policy  Policy
		status  string
		uploads int
	}{
		{FailOpen, domain.StatusUploaded, 1},
		{FailClosed, domain.StatusFailed, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			lms := newFakeLMS()
			lms.addFile(10, 5, "a.pdf", "x")
			store := newFakeStore()
			store.lookupErr = errors.New("drive: 500")
			tr := &Transferer{LMS: lms, Store: store, Policy: tc.policy}

			res := tr.Transfer(context.Background(), descriptor(5, "A"), folderID)
			assert.Equal(t, tc.status, res.Status)
			assert.Len(t, store.uploads, tc.uploads)
			if tc.policy == FailClosed {
				assert.Contains(t, res.Error, "existence check")
				assert.Equal(t, 0, lms.downloadCalls)
			}
		})
	}
}

func TestTransferMimeFallback(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 5, "slides.png", "png")
	f := lms.files[5]
	f.ContentType = ""
	lms.files[5] = f
	store := newFakeStore()
	tr := &Transferer{LMS: lms, Store: store}

	res := tr.Transfer(context.Background(), descriptor(5, "Slides"), folderID)
	require.Equal(t, domain.StatusUploaded, res.Status)
	assert.Equal(t, "image/png", store.uploads[0].MimeType)
}

func TestTransferFileTimeout(t *testing.T) {
	lms := newFakeLMS()
	lms.addFile(10, 5, "a.pdf", "x")
	store := &ctxCheckingStore{fakeStore: newFakeStore()}
	tr := &Transferer{LMS: lms, Store: store, FileTimeout: time.Minute}

	res := tr.Transfer(context.Background(), descriptor(5, "A"), folderID)
	assert.Equal(t, domain.StatusUploaded, res.Status)
}

// ctxCheckingStore fails uploads that do not carry a deadline.
type ctxCheckingStore struct {
	*fakeStore
}

func (s *ctxCheckingStore) Upload(ctx context.Context, req storage.UploadRequest) (domain.StoredFile, error) {
	if _, ok := ctx.Deadline(); !ok {
		return domain.StoredFile{}, errors.New("no deadline")
	}
	return s.fakeStore.Upload(ctx, req)
}
