package sync

import (
	"context"
	"fmt"
	"io"

	"canvas-drive-sync/internal/domain"
)

// LMS is the slice of the Canvas client the pipeline needs.
type LMS interface {
	GetCourse(ctx context.Context, courseID int64) (*domain.Course, error)
	ListModules(ctx context.Context, courseID int64) ([]domain.Module, error)
	ListModuleItems(ctx context.Context, courseID, moduleID int64) ([]domain.ModuleItem, error)
	GetFile(ctx context.Context, fileID int64) (*domain.RemoteFile, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Scan lists the File items of every module of course, in module order and
// then item order, exactly as Canvas returns them. Items of any other type are
// dropped. The same content id may appear more than once. Any fetch error
// aborts the scan.
func Scan(ctx context.Context, lms LMS, course domain.Course) ([]domain.FileDescriptor, error) {
	modules, err := lms.ListModules(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("scan course %d: %w", course.ID, err)
	}

	var out []domain.FileDescriptor
	for _, m := range modules {
		items, err := lms.ListModuleItems(ctx, course.ID, m.ID)
		if err != nil {
			return nil, fmt.Errorf("scan course %d module %q: %w", course.ID, m.Name, err)
		}
		for _, it := range items {
			if it.Type != domain.ItemFile {
				continue
			}
			out = append(out, domain.FileDescriptor{
				CourseID:   course.ID,
				CourseName: course.Name,
				ModuleName: m.Name,
				Title:      it.Title,
				ContentID:  it.ContentID,
				URL:        it.HTMLURL,
			})
		}
	}
	return out, nil
}
