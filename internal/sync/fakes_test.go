package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	stdsync "sync"

	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/storage"
)

// fakeLMS serves courses, modules and files from memory and counts calls.
type fakeLMS struct {
	mu stdsync.Mutex

	courses map[int64]domain.Course
	modules map[int64][]domain.Module
	items   map[int64][]domain.ModuleItem // by module id
	files   map[int64]domain.RemoteFile
	bodies  map[string]string // by download url

	moduleErr   map[int64]error // by course id
	downloadErr map[string]error

	getFileCalls  int
	downloadCalls int
}

func newFakeLMS() *fakeLMS {
	return &fakeLMS{
		courses:     map[int64]domain.Course{},
		modules:     map[int64][]domain.Module{},
		items:       map[int64][]domain.ModuleItem{},
		files:       map[int64]domain.RemoteFile{},
		bodies:      map[string]string{},
		moduleErr:   map[int64]error{},
		downloadErr: map[string]error{},
	}
}

// addFile registers a File item in a module and its metadata and bytes.
func (f *fakeLMS) addFile(moduleID, contentID int64, name, body string) {
	url := fmt.Sprintf("https://files.test/%d", contentID)
	f.items[moduleID] = append(f.items[moduleID], domain.ModuleItem{
		ID:        contentID * 10,
		ModuleID:  moduleID,
		Type:      domain.ItemFile,
		Title:     name,
		ContentID: contentID,
	})
	f.files[contentID] = domain.RemoteFile{
		ID:          contentID,
		DisplayName: name,
		Filename:    name,
		DownloadURL: url,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
	}
	f.bodies[url] = body
}

func (f *fakeLMS) GetCourse(ctx context.Context, courseID int64) (*domain.Course, error) {
	c, ok := f.courses[courseID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeLMS) ListModules(ctx context.Context, courseID int64) ([]domain.Module, error) {
	if err := f.moduleErr[courseID]; err != nil {
		return nil, err
	}
	return f.modules[courseID], nil
}

func (f *fakeLMS) ListModuleItems(ctx context.Context, courseID, moduleID int64) ([]domain.ModuleItem, error) {
	return f.items[moduleID], nil
}

func (f *fakeLMS) GetFile(ctx context.Context, fileID int64) (*domain.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getFileCalls++
	rf, ok := f.files[fileID]
	if !ok {
		return nil, nil
	}
	return &rf, nil
}

func (f *fakeLMS) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadCalls++
	if err := f.downloadErr[url]; err != nil {
		return nil, err
	}
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("download: status 404")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// fakeStore is an in-memory destination keyed by folder id and name.
type fakeStore struct {
	mu stdsync.Mutex

	files   map[string][]domain.StoredFile // by folder id
	folders map[string]string              // name -> id

	lookupErr error
	uploadErr error

	lookups  []string
	uploads  []storage.UploadRequest
	contents map[string]string
	ensured  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:    map[string][]domain.StoredFile{},
		folders:  map[string]string{},
		contents: map[string]string{},
	}
}

func (s *fakeStore) Name() string { return "fake" }

func (s *fakeStore) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	var out []domain.Folder
	for name, id := range s.folders {
		out = append(out, domain.Folder{ID: id, Name: name})
	}
	return out, nil
}

func (s *fakeStore) EnsureFolder(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured++
	if id, ok := s.folders[name]; ok {
		return id, nil
	}
	id := fmt.Sprintf("folder-%d", len(s.folders)+1)
	s.folders[name] = id
	return id, nil
}

func (s *fakeStore) Lookup(ctx context.Context, name, parentID string) storage.Lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, name)
	if s.lookupErr != nil {
		return storage.Failed(s.lookupErr)
	}
	for _, f := range s.files[parentID] {
		if f.Name == name {
			return storage.FoundFile(f)
		}
	}
	return storage.Missing()
}

func (s *fakeStore) Upload(ctx context.Context, req storage.UploadRequest) (domain.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, req)
	if s.uploadErr != nil {
		return domain.StoredFile{}, s.uploadErr
	}
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return domain.StoredFile{}, err
	}
	f := domain.StoredFile{
		ID:             fmt.Sprintf("stored-%d", len(s.uploads)),
		Name:           req.Name,
		MimeType:       req.MimeType,
		Size:           int64(len(b)),
		ParentFolderID: req.ParentID,
		WebURL:         fmt.Sprintf("https://drive.test/stored-%d", len(s.uploads)),
	}
	s.files[req.ParentID] = append(s.files[req.ParentID], f)
	s.contents[f.ID] = string(b)
	return f, nil
}

// seed places an existing file in a folder.
func (s *fakeStore) seed(folderID, id, name string) {
	s.files[folderID] = append(s.files[folderID], domain.StoredFile{ID: id, Name: name, ParentFolderID: folderID})
}

type memRecorder struct {
	started  []string
	results  []domain.TransferResult
	finished []domain.Summary
	err      error
}

func (m *memRecorder) StartRun(ctx context.Context, runID, backend string, courseIDs []int64) error {
	m.started = append(m.started, runID)
	return m.err
}

func (m *memRecorder) RecordTransfer(ctx context.Context, runID string, r domain.TransferResult) error {
	m.results = append(m.results, r)
	return m.err
}

func (m *memRecorder) FinishRun(ctx context.Context, runID string, s domain.Summary) error {
	m.finished = append(m.finished, s)
	return m.err
}
