package canvas

import (
	"context"
	"fmt"
	"net/url"

	"canvas-drive-sync/internal/domain"
)

// GetCourse returns nil, nil when the course does not exist.
func (c *Client) GetCourse(ctx context.Context, courseID int64) (*domain.Course, error) {
	course, err := getOne[domain.Course](ctx, c, fmt.Sprintf("courses/%d", courseID))
	if err != nil {
		return nil, fmt.Errorf("canvas: get course %d: %w", courseID, err)
	}
	return course, nil
}

// ListActiveCourses lists the courses the token holder is actively enrolled in.
func (c *Client) ListActiveCourses(ctx context.Context) ([]domain.Course, error) {
	courses, err := FetchAll[domain.Course](ctx, c, "courses?enrollment_state=active")
	if err != nil {
		return nil, fmt.Errorf("canvas: list active courses: %w", err)
	}
	return courses, nil
}

func (c *Client) ListModules(ctx context.Context, courseID int64) ([]domain.Module, error) {
	modules, err := FetchAll[domain.Module](ctx, c, fmt.Sprintf("courses/%d/modules", courseID))
	if err != nil {
		return nil, fmt.Errorf("canvas: list modules course=%d: %w", courseID, err)
	}
	return modules, nil
}

func (c *Client) ListModuleItems(ctx context.Context, courseID, moduleID int64) ([]domain.ModuleItem, error) {
	items, err := FetchAll[domain.ModuleItem](ctx, c, fmt.Sprintf("courses/%d/modules/%d/items", courseID, moduleID))
	if err != nil {
		return nil, fmt.Errorf("canvas: list items course=%d module=%d: %w", courseID, moduleID, err)
	}
	return items, nil
}

// GetFile resolves file metadata, including a fresh download URL.
// It returns nil, nil when Canvas reports 404.
func (c *Client) GetFile(ctx context.Context, fileID int64) (*domain.RemoteFile, error) {
	f, err := getOne[domain.RemoteFile](ctx, c, fmt.Sprintf("files/%d", fileID))
	if err != nil {
		return nil, fmt.Errorf("canvas: get file %d: %w", fileID, err)
	}
	return f, nil
}

// GetPageBody returns the page body as plain text, or "" when the page is missing.
func (c *Client) GetPageBody(ctx context.Context, courseID int64, pageURL string) (string, error) {
	p, err := getOne[domain.Page](ctx, c, fmt.Sprintf("courses/%d/pages/%s", courseID, url.PathEscape(pageURL)))
	if err != nil {
		return "", fmt.Errorf("canvas: get page course=%d page=%s: %w", courseID, pageURL, err)
	}
	if p == nil {
		return "", nil
	}
	return HTMLToText(p.Body), nil
}

// GetQuizDescription returns the quiz description as plain text, or "" when the quiz is missing.
func (c *Client) GetQuizDescription(ctx context.Context, courseID, quizID int64) (string, error) {
	q, err := getOne[domain.Quiz](ctx, c, fmt.Sprintf("courses/%d/quizzes/%d", courseID, quizID))
	if err != nil {
		return "", fmt.Errorf("canvas: get quiz course=%d quiz=%d: %w", courseID, quizID, err)
	}
	if q == nil {
		return "", nil
	}
	return HTMLToText(q.Description), nil
}

func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]domain.CourseWork, error) {
	rows, err := FetchAll[domain.Assignment](ctx, c, fmt.Sprintf("courses/%d/assignments", courseID))
	if err != nil {
		return nil, fmt.Errorf("canvas: list assignments course=%d: %w", courseID, err)
	}
	out := make([]domain.CourseWork, 0, len(rows))
	for _, a := range rows {
		out = append(out, domain.CourseWork{
			Kind:        "assignment",
			Name:        firstNonEmpty(a.Name, "Unnamed Assignment"),
			DueAt:       a.DueAt,
			Description: HTMLToText(a.Description),
		})
	}
	return out, nil
}

func (c *Client) ListQuizzes(ctx context.Context, courseID int64) ([]domain.CourseWork, error) {
	rows, err := FetchAll[domain.Quiz](ctx, c, fmt.Sprintf("courses/%d/quizzes", courseID))
	if err != nil {
		return nil, fmt.Errorf("canvas: list quizzes course=%d: %w", courseID, err)
	}
	out := make([]domain.CourseWork, 0, len(rows))
	for _, q := range rows {
		out = append(out, domain.CourseWork{
			Kind:        "quiz",
			Name:        firstNonEmpty(q.Title, "Unnamed Quiz"),
			DueAt:       q.DueAt,
			Description: HTMLToText(q.Description),
		})
	}
	return out, nil
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
