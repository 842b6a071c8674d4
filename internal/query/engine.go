// Package query turns a task snapshot and a filter state into one page of
// results. It keeps no state between calls.
package query

import (
	"errors"
	"slices"
	"strings"

	"task-dashboard/internal/model"
)

// ErrInvalidFilterState is returned for non-positive page or page size and
// for unknown sort settings.
var ErrInvalidFilterState = errors.New("invalid filter state")

// Result is one page of matching tasks.
type Result struct {
	Visible       []model.Task `json:"visible"`
	TotalMatching int          `json:"totalMatching"`
	Page          int          `json:"page"`
	PageSize      int          `json:"pageSize"`
}

// PageCount is the number of pages needed to show every matching task.
func (r Result) PageCount() int {
	if r.PageSize <= 0 || r.TotalMatching <= 0 {
		return 0
	}
	return (r.TotalMatching-1)/r.PageSize + 1
}

// Run filters, sorts and paginates tasks. The input slice is not modified.
func Run(tasks []model.Task, f FilterState) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	matched := Filter(tasks, f)
	sorted := Sort(matched, f.sortKey(), f.direction())

	return Result{
		Visible:       paginate(sorted, f.Page, f.PageSize),
		TotalMatching: len(sorted),
		Page:          f.Page,
		PageSize:      f.PageSize,
	}, nil
}

// Matching returns every task passing f's filters, sorted by f's sort
// settings. Page and PageSize are ignored.
func Matching(tasks []model.Task, f FilterState) ([]model.Task, error) {
	if err := f.validateSort(); err != nil {
		return nil, err
	}
	return Sort(Filter(tasks, f), f.sortKey(), f.direction()), nil
}

// Filter applies the priority, category, title and subcategory filters in
// that order and returns the matching tasks in input order.
func Filter(tasks []model.Task, f FilterState) []model.Task {
	out := make([]model.Task, 0, len(tasks))

	priorities := make(map[string]struct{}, len(f.Priorities))
	for _, p := range f.Priorities {
		priorities[model.Priority(p).Normalized()] = struct{}{}
	}

	for _, task := range tasks {
		if len(priorities) > 0 {
			if _, ok := priorities[task.Priority.Normalized()]; !ok {
				continue
			}
		}
		if !matchesCategory(task, f) {
			continue
		}
		if !matchesTitle(task, f.Title) {
			continue
		}
		if !matchesSubCategory(task, f.SubCategory) {
			continue
		}
		out = append(out, task)
	}
	return out
}

// Sort returns a sorted copy of tasks.
func Sort(tasks []model.Task, key SortKey, dir Direction) []model.Task {
	entries := make([]ranked, len(tasks))
	for i, task := range tasks {
		entries[i] = ranked{pos: i, task: task}
	}
	slices.SortFunc(entries, comparator(key, dir))

	out := make([]model.Task, len(entries))
	for i, e := range entries {
		out[i] = e.task
	}
	return out
}

func matchesCategory(task model.Task, f FilterState) bool {
	switch {
	case f.SubCategoryID != "":
		return task.SubCategoryKey() == f.SubCategoryID
	case f.CategoryID != "":
		return task.CategoryKey() == f.CategoryID
	default:
		return true
	}
}

func matchesTitle(task model.Task, term SearchTerm) bool {
	switch term.Kind {
	case TermResolved:
		return task.ID == term.ID
	case TermText:
		needle := strings.ToLower(term.Text)
		return containsFold(task.Title, needle) || containsFold(task.Description, needle)
	default:
		return true
	}
}

func matchesSubCategory(task model.Task, term SearchTerm) bool {
	switch term.Kind {
	case TermResolved:
		return task.SubCategoryKey() == term.ID
	case TermText:
		return containsFold(task.SubCategoryName(), strings.ToLower(term.Text))
	default:
		return true
	}
}

func containsFold(haystack, lowerNeedle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

// paginate compares page numbers before multiplying so huge pages cannot
// overflow into a valid offset.
func paginate(tasks []model.Task, page, size int) []model.Task {
	if len(tasks) == 0 || page-1 > (len(tasks)-1)/size {
		return []model.Task{}
	}
	start := (page - 1) * size
	end := len(tasks)
	if size < end-start {
		end = start + size
	}
	out := make([]model.Task, end-start)
	copy(out, tasks[start:end])
	return out
}
