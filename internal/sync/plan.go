package sync

import (
	"context"
	"fmt"

	"canvas-drive-sync/internal/concurrency"
	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/storage"
)

// Planned actions for a dry run.
const (
	ActionUpload = "upload"
	ActionSkip   = "skip"
	ActionFail   = "fail"
)

// PlanItem is what a real run would do with one descriptor.
type PlanItem struct {
	Descriptor domain.FileDescriptor
	Action     string
	Filename   string
	Size       int64
	ExistingID string
	Reason     string
}

// Plan resolves and looks up each descriptor without downloading or uploading.
// An empty folderID means the folder does not exist yet: files are resolved
// but not looked up. Nothing is written, so descriptors are checked on PlanWorkers goroutines.
// Items keep the order of descriptors.
func (t *Transferer) Plan(ctx context.Context, descriptors []domain.FileDescriptor, folderID string) []PlanItem {
	items, _ := concurrency.ProcessParallel(ctx, descriptors, concurrency.ParallelOptions{MaxWorkers: t.PlanWorkers},
		func(ctx context.Context, _ int, d domain.FileDescriptor) (PlanItem, error) {
			return t.planOne(ctx, d, folderID), nil
		})
	for i := range items {
		if items[i].Action == "" {
			items[i] = PlanItem{Descriptor: descriptors[i], Action: ActionFail, Reason: ctx.Err().Error()}
		}
	}
	return items
}

func (t *Transferer) planOne(ctx context.Context, d domain.FileDescriptor, folderID string) PlanItem {
	item := PlanItem{Descriptor: d}

	f, err := t.resolve(ctx, d)
	if err != nil {
		item.Action = ActionFail
		item.Reason = err.Error()
		return item
	}
	item.Filename = f.Name()
	item.Size = f.Size

	if folderID == "" {
		item.Action = ActionUpload
		item.Reason = "destination folder will be created"
		return item
	}

	lk := t.Store.Lookup(ctx, item.Filename, folderID)
	switch lk.Outcome {
	case storage.Found:
		item.Action = ActionSkip
		item.ExistingID = lk.File.ID
		item.Reason = "already in destination"
	case storage.BackendError:
		if t.Policy == FailClosed {
			item.Action = ActionFail
			item.Reason = fmt.Sprintf("existence check: %v", lk.Err)
			return item
		}
		item.Action = ActionUpload
		item.Reason = fmt.Sprintf("existence check failed (%v), would upload", lk.Err)
	default:
		item.Action = ActionUpload
	}
	return item
}

// CountActions tallies a plan by action.
func CountActions(items []PlanItem) map[string]int {
	out := map[string]int{ActionUpload: 0, ActionSkip: 0, ActionFail: 0}
	for _, it := range items {
		out[it.Action]++
	}
	return out
}
