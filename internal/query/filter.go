package query

import (
	"fmt"
	"strings"

	"task-dashboard/internal/model"
)

// SortKey names a sortable task field.
type SortKey string

const (
	SortTitle       SortKey = "title"
	SortDescription SortKey = "description"
	SortStatus      SortKey = "status"
	SortPriority    SortKey = "priority"
	SortDeadline    SortKey = "deadline"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// TermKind tags the variant held by a SearchTerm.
type TermKind int

const (
	TermNone TermKind = iota
	TermText
	TermResolved
)

// SearchTerm is either free text typed by the user or a record the user picked
// from an autocomplete list. Resolved terms filter by exact id.
type SearchTerm struct {
	Kind TermKind
	Text string
	ID   model.ID
}

// Text builds a free-text term. Blank input yields an inactive term.
func Text(s string) SearchTerm {
	if strings.TrimSpace(s) == "" {
		return SearchTerm{}
	}
	return SearchTerm{Kind: TermText, Text: s}
}

// Resolved builds an exact-id term. An empty id yields an inactive term.
func Resolved(id model.ID) SearchTerm {
	if id == "" {
		return SearchTerm{}
	}
	return SearchTerm{Kind: TermResolved, ID: id}
}

func (s SearchTerm) Active() bool {
	return s.Kind != TermNone
}

// FilterState is owned by the view and read, never modified, by Run.
type FilterState struct {
	// Priorities is the set of accepted priorities; empty means no restriction.
	Priorities []string

	// CategoryID and SubCategoryID are "All" when empty.
	CategoryID    model.ID
	SubCategoryID model.ID

	Title       SearchTerm
	SubCategory SearchTerm

	SortKey   SortKey
	Direction Direction

	// Page is 1-indexed.
	Page     int
	PageSize int
}

// Validate reports ErrInvalidFilterState for unusable pagination or sort settings.
func (f FilterState) Validate() error {
	if f.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidFilterState, f.PageSize)
	}
	if f.Page <= 0 {
		return fmt.Errorf("%w: page must be positive, got %d", ErrInvalidFilterState, f.Page)
	}
	return f.validateSort()
}

func (f FilterState) validateSort() error {
	switch f.sortKey() {
	case SortTitle, SortDescription, SortStatus, SortPriority, SortDeadline:
	default:
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidFilterState, f.SortKey)
	}
	switch f.direction() {
	case Asc, Desc:
	default:
		return fmt.Errorf("%w: unknown sort direction %q", ErrInvalidFilterState, f.Direction)
	}
	return nil
}

func (f FilterState) sortKey() SortKey {
	if f.SortKey == "" {
		return SortTitle
	}
	return f.SortKey
}

func (f FilterState) direction() Direction {
	if f.Direction == "" {
		return Asc
	}
	return f.Direction
}

// WithPage returns a copy of f pointing at page.
func (f FilterState) WithPage(page int) FilterState {
	f.Page = page
	return f
}

// ParsePriorities splits a comma separated list into a normalized priority set.
// "all" (any case) clears the restriction.
func ParsePriorities(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		p := model.Priority(part).Normalized()
		if p == "" {
			continue
		}
		if p == "all" {
			return nil
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
