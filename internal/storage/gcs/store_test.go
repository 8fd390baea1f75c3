package gcs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gstorage "canvas-drive-sync/internal/storage"
)

func TestKey(t *testing.T) {
	s := New(nil, "bucket", "/canvas/")
	assert.Equal(t, "canvas", s.prefix)
	assert.Equal(t, "canvas/a.pdf", s.key("", "a.pdf"))
	assert.Equal(t, "canvas/Week 1/a.pdf", s.key("canvas/Week 1", "a.pdf"))

	bare := New(nil, "bucket", "")
	assert.Equal(t, "a.pdf", bare.key("", "a.pdf"))
}

func TestEnsureFolder(t *testing.T) {
	s := New(nil, "bucket", "canvas")
	id, err := s.EnsureFolder(context.Background(), "COMP10001/2026")
	require.NoError(t, err)
	assert.Equal(t, "canvas/COMP10001_2026", id)
}

func TestToStored(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	got := toStored(&storage.ObjectAttrs{
		Bucket:      "bucket",
		Name:        "canvas/Files/syllabus.pdf",
		ContentType: "application/pdf",
		Size:        42,
		Created:     created,
	})
	assert.Equal(t, "canvas/Files/syllabus.pdf", got.ID)
	assert.Equal(t, "syllabus.pdf", got.Name)
	assert.Equal(t, "canvas/Files", got.ParentFolderID)
	assert.Equal(t, int64(42), got.Size)
	assert.True(t, got.CreatedTime.Equal(created))
	assert.Equal(t, "https://storage.cloud.google.com/bucket/canvas/Files/syllabus.pdf", got.WebURL)

	assert.Equal(t, "", toStored(nil).ID)
}

// getTestGCSClient returns an emulator-backed client or skips.
func getTestGCSClient(t *testing.T) *storage.Client {
	t.Helper()

	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST not set, skipping integration test")
	}

	client, err := storage.NewClient(context.Background())
	if err != nil {
		t.Fatalf("failed to create GCS client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStoreAgainstEmulator(t *testing.T) {
	client := getTestGCSClient(t)
	ctx := context.Background()

	bucket := fmt.Sprintf("canvasdrive-test-%d", time.Now().UnixNano())
	if err := client.Bucket(bucket).Create(ctx, "test-project", nil); err != nil {
		t.Logf("note: bucket creation returned: %v", err)
	}

	s := New(client, bucket, "canvas")
	folder, err := s.EnsureFolder(ctx, "COMP10001")
	require.NoError(t, err)

	assert.Equal(t, gstorage.NotFound, s.Lookup(ctx, "syllabus.pdf", folder).Outcome)

	stored, err := s.Upload(ctx, gstorage.UploadRequest{
		Name:     "syllabus.pdf",
		ParentID: folder,
		MimeType: "application/pdf",
		Body:     strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "canvas/COMP10001/syllabus.pdf", stored.ID)

	found := s.Lookup(ctx, "syllabus.pdf", folder)
	require.Equal(t, gstorage.Found, found.Outcome)
	assert.Equal(t, int64(len("%PDF-1.4")), found.File.Size)

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "COMP10001", folders[0].Name)
}
