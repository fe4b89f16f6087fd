package session

import (
	"sort"

	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// report implements the Report interface for cycle results.
type report struct {
	checked []types.ImageReport
	updated []types.ImageReport
	applied []types.ImageReport
	failed  []types.ImageReport
	skipped []types.ImageReport
	fresh   []types.ImageReport
}

// SortableImages implements sort.Interface for reports.
type SortableImages []types.ImageReport

func (s SortableImages) Len() int           { return len(s) }
func (s SortableImages) Less(i, j int) bool { return s[i].Image() < s[j].Image() }
func (s SortableImages) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (r *report) Checked() []types.ImageReport { return r.checked }
func (r *report) Updated() []types.ImageReport { return r.updated }
func (r *report) Applied() []types.ImageReport { return r.applied }
func (r *report) Failed() []types.ImageReport  { return r.failed }
func (r *report) Skipped() []types.ImageReport { return r.skipped }
func (r *report) Fresh() []types.ImageReport   { return r.fresh }

// All returns every image once, sorted by image name. Progress holds a single status
// per image, so the categories never overlap.
func (r *report) All() []types.ImageReport {
	all := make([]types.ImageReport, 0, len(r.checked)+len(r.skipped))
	all = append(all, r.checked...)
	all = append(all, r.skipped...)

	sort.Sort(SortableImages(all))

	return all
}

// NewReport creates a report from progress data.
//
// Parameters:
//   - progress: Progress map to process.
//
// Returns:
//   - types.Report: Categorized and sorted report.
func NewReport(progress Progress) types.Report {
	report := &report{
		checked: make([]types.ImageReport, 0, len(progress)),
		updated: make([]types.ImageReport, 0),
		applied: make([]types.ImageReport, 0),
		failed:  make([]types.ImageReport, 0),
		skipped: make([]types.ImageReport, 0),
		fresh:   make([]types.ImageReport, 0),
	}

	for _, status := range progress {
		categorize(report, status)
	}

	for _, category := range [][]types.ImageReport{
		report.checked, report.updated, report.applied, report.failed, report.skipped, report.fresh,
	} {
		sort.Sort(SortableImages(category))
	}

	return report
}

func categorize(report *report, status *ImageStatus) {
	if status.state == SkippedState {
		report.skipped = append(report.skipped, status)

		return
	}

	report.checked = append(report.checked, status)

	switch status.state {
	case FreshState:
		report.fresh = append(report.fresh, status)
	case FoundState:
		report.updated = append(report.updated, status)
	case AppliedState:
		report.updated = append(report.updated, status)
		report.applied = append(report.applied, status)
	case FailedState:
		report.updated = append(report.updated, status)
		report.failed = append(report.failed, status)
	case UnknownState, SkippedState:
	}
}
