package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"canvas-drive-sync/internal/domain"
)

// Recorder receives run events, typically to persist them. Its errors are
// logged and never stop a run.
type Recorder interface {
	StartRun(ctx context.Context, runID string, backend string, courseIDs []int64) error
	RecordTransfer(ctx context.Context, runID string, r domain.TransferResult) error
	FinishRun(ctx context.Context, runID string, s domain.Summary) error
}

// Destination names the folder every file of a run goes to.
// FolderID wins over FolderName when both are set.
type Destination struct {
	FolderName string
	FolderID   string
}

type Runner struct {
	LMS        LMS
	Transferer *Transferer
	Recorder   Recorder
	RunID      string

	// OnCourse, when set, is called before course n of total is scanned.
	OnCourse func(n, total int, courseID int64)
	// OnResult, when set, sees each result as soon as it is final.
	OnResult func(domain.TransferResult)
}

// Report is the outcome of a run.
type Report struct {
	RunID    string
	FolderID string
	Summary  domain.Summary
	Results  []domain.TransferResult
}

// ResolveFolder returns the destination folder id, creating the folder by name if needed.
func (r *Runner) ResolveFolder(ctx context.Context, dest Destination) (string, error) {
	if dest.FolderID != "" {
		return dest.FolderID, nil
	}
	if dest.FolderName == "" {
		return "", errors.New("no destination folder given")
	}
	id, err := r.Transferer.Store.EnsureFolder(ctx, dest.FolderName)
	if err != nil {
		return "", fmt.Errorf("resolve folder %q: %w", dest.FolderName, err)
	}
	return id, nil
}

// Run processes courses one after another. The destination folder is resolved
// once and reused for every file. A course that cannot be scanned is recorded
// in Summary.FailedCourses and the next course is still attempted. The only
// errors returned are folder resolution failures and context cancellation; the
// report holds whatever was done up to that point.
func (r *Runner) Run(ctx context.Context, courseIDs []int64, dest Destination) (Report, error) {
	rep := Report{RunID: r.RunID}

	folderID, err := r.ResolveFolder(ctx, dest)
	if err != nil {
		return rep, err
	}
	rep.FolderID = folderID

	r.record(func() error {
		return r.Recorder.StartRun(ctx, r.RunID, r.Transferer.Store.Name(), courseIDs)
	})
	defer func() {
		r.record(func() error {
			return r.Recorder.FinishRun(context.WithoutCancel(ctx), r.RunID, rep.Summary)
		})
	}()

	for i, courseID := range courseIDs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		log.Printf("[%d/%d] Processing course %d", i+1, len(courseIDs), courseID)
		if r.OnCourse != nil {
			r.OnCourse(i+1, len(courseIDs), courseID)
		}

		descriptors, err := r.scanCourse(ctx, courseID)
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			log.Printf("ERROR: course %d: %v", courseID, err)
			rep.Summary.FailedCourses = append(rep.Summary.FailedCourses, courseID)
			continue
		}
		log.Printf("course %d: %d file(s) found", courseID, len(descriptors))

		for j, d := range descriptors {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			res := r.Transferer.Transfer(ctx, d, folderID)
			log.Printf("  (%d/%d) %s %q: %s", j+1, len(descriptors), d.ModuleName, d.Title, describe(res))

			rep.Results = append(rep.Results, res)
			rep.Summary.Add(res)
			r.record(func() error {
				return r.Recorder.RecordTransfer(context.WithoutCancel(ctx), r.RunID, res)
			})
			if r.OnResult != nil {
				r.OnResult(res)
			}
		}
	}

	log.Printf("Run summary: total=%d uploaded=%d skipped=%d failed=%d failed_courses=%d",
		rep.Summary.Total, rep.Summary.Uploaded, rep.Summary.Skipped, rep.Summary.Failed, len(rep.Summary.FailedCourses))
	return rep, nil
}

// Plan is the dry-run counterpart of Run: same folder resolution and scans,
// lookups only.
func (r *Runner) Plan(ctx context.Context, courseIDs []int64, dest Destination) ([]PlanItem, []int64, error) {
	folderID := dest.FolderID
	if folderID == "" {
		// a dry run must not create the folder
		folders, err := r.Transferer.Store.ListFolders(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list folders: %w", err)
		}
		for _, f := range folders {
			if f.Name == dest.FolderName {
				folderID = f.ID
				break
			}
		}
	}

	var items []PlanItem
	var failedCourses []int64
	for _, courseID := range courseIDs {
		if err := ctx.Err(); err != nil {
			return items, failedCourses, err
		}
		descriptors, err := r.scanCourse(ctx, courseID)
		if err != nil {
			log.Printf("ERROR: course %d: %v", courseID, err)
			failedCourses = append(failedCourses, courseID)
			continue
		}
		items = append(items, r.Transferer.Plan(ctx, descriptors, folderID)...)
	}
	return items, failedCourses, nil
}

func (r *Runner) scanCourse(ctx context.Context, courseID int64) ([]domain.FileDescriptor, error) {
	course, err := r.LMS.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %d not found", courseID)
	}
	return Scan(ctx, r.LMS, *course)
}

func (r *Runner) record(fn func() error) {
	if r.Recorder == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("WARN: ledger: %v", err)
	}
}

func describe(res domain.TransferResult) string {
	switch res.Status {
	case domain.StatusFailed:
		return "failed: " + res.Error
	case domain.StatusSkipped:
		return "skipped (already exists as " + res.DestinationID + ")"
	}
	return "uploaded as " + res.DestinationID
}
