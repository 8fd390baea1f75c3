package domain

// Canvas resources, decoded straight from the REST API.
// Only the fields the transfer pipeline and the listing commands read are mapped.

type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code,omitempty"`
	WorkflowState string `json:"workflow_state,omitempty"`
}

// Module is an ordered grouping of items inside one course.
type Module struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	ItemsCount int    `json:"items_count"`
}

// Module item types as reported by Canvas.
const (
	ItemFile         = "File"
	ItemPage         = "Page"
	ItemQuiz         = "Quiz"
	ItemAssignment   = "Assignment"
	ItemDiscussion   = "Discussion"
	ItemExternalURL  = "ExternalUrl"
	ItemExternalTool = "ExternalTool"
	ItemSubHeader    = "SubHeader"
)

type ModuleItem struct {
	ID        int64  `json:"id"`
	ModuleID  int64  `json:"module_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	ContentID int64  `json:"content_id"`
	PageURL   string `json:"page_url,omitempty"`
	HTMLURL   string `json:"html_url,omitempty"`
	Position  int    `json:"position"`
}

// RemoteFile is the file metadata Canvas returns for a content id.
// DownloadURL is short-lived, so it is resolved on every transfer.
type RemoteFile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"url"`
	ContentType string `json:"content-type"`
	Size        int64  `json:"size"`
}

// Name is the name the file is stored under at the destination.
func (f RemoteFile) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Filename
}

type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Assignment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DueAt       string `json:"due_at"`
	HTMLURL     string `json:"html_url"`
}

type Quiz struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueAt       string `json:"due_at"`
	HTMLURL     string `json:"html_url"`
}

// CourseWork is an assignment or quiz with its description flattened to text.
type CourseWork struct {
	Kind        string // "assignment" or "quiz"
	Name        string
	DueAt       string
	Description string
}
