package domain

import "time"

// FileDescriptor is one File item discovered by a course scan.
// Descriptors keep discovery order: module order, then item order.
type FileDescriptor struct {
	CourseID   int64
	CourseName string
	ModuleName string
	Title      string
	ContentID  int64
	URL        string
}

// StoredFile is a file (or folder) as the destination store reports it.
type StoredFile struct {
	ID             string
	Name           string
	MimeType       string
	Size           int64
	CreatedTime    time.Time
	ParentFolderID string
	WebURL         string
}

// Folder is a destination folder offered to the operator.
type Folder struct {
	ID        string
	Name      string
	ParentIDs []string
}

const (
	StatusUploaded = "uploaded"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// TransferResult is the terminal outcome of one descriptor.
// DuplicateSkipped implies UploadSuccess, and DestinationID is then the pre-existing file.
type TransferResult struct {
	CourseID     int64
	ModuleName   string
	Title        string
	CanvasFileID int64

	Filename    string
	ContentType string
	Size        int64

	DestinationID  string
	DestinationURL string

	UploadSuccess    bool
	DuplicateSkipped bool
	Status           string
	Error            string
}

// Summary tallies results of a run.
type Summary struct {
	Total    int
	Uploaded int
	Skipped  int
	Failed   int

	FailedCourses []int64
}

func (s *Summary) Add(r TransferResult) {
	s.Total++
	switch r.Status {
	case StatusUploaded:
		s.Uploaded++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// OK reports whether every course was scanned and no file failed.
func (s Summary) OK() bool {
	return s.Failed == 0 && len(s.FailedCourses) == 0
}
