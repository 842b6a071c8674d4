package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Priority is stored as received; callers compare it case-insensitively.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Normalized returns the lower-cased priority used for filter matching.
func (p Priority) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(p)))
}

// Task represents a single unit of work as served by the external API.
type Task struct {
	ID            ID           `gorm:"primaryKey" json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Deadline      *time.Time   `gorm:"index" json:"expiredDate,omitempty"`
	Status        Status       `gorm:"index" json:"status"`
	Priority      Priority     `json:"priority"`
	SubCategoryID *ID          `gorm:"index" json:"sub_category_id,omitempty"`
	SubCategory   *SubCategory `gorm:"foreignKey:SubCategoryID" json:"subCategory,omitempty"`

	// Position is the task's index in the fetched snapshot.
	Position  int       `gorm:"index" json:"-"`
	FetchedAt time.Time `json:"-"`
}

// DeadlineLocation is the zone for deadline strings that carry no offset.
// Set it once at startup, before any task is decoded.
var DeadlineLocation = time.Local

// deadlineLayouts are tried in order when decoding a deadline string.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON normalizes the external schema: the deadline may arrive as
// expiredDate or expried_date, and subCategory may be a document or a bare id.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		ExpiredDate json.RawMessage `json:"expiredDate"`
		ExpriedDate json.RawMessage `json:"expried_date"`
		SubCategory json.RawMessage `json:"subCategory"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Deadline = parseDeadline(aux.ExpiredDate)
	if t.Deadline == nil {
		t.Deadline = parseDeadline(aux.ExpriedDate)
	}

	raw := bytes.TrimSpace(aux.SubCategory)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		var sub SubCategory
		if err := json.Unmarshal(raw, &sub); err != nil {
			return err
		}
		t.SubCategory = &sub
	default:
		var id ID
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		if id != "" {
			t.SubCategoryID = &id
		}
	}
	if t.SubCategoryID == nil && t.SubCategory != nil && t.SubCategory.ID != "" {
		id := t.SubCategory.ID
		t.SubCategoryID = &id
	}
	return nil
}

// parseDeadline never fails: anything it cannot read is treated as absent.
func parseDeadline(raw json.RawMessage) *time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '"' {
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil
		}
		d := time.UnixMilli(ms).UTC()
		return &d
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	loc := DeadlineLocation
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range deadlineLayouts {
		if d, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &d
		}
	}
	return nil
}

// SubCategoryKey returns the id of the task's subcategory, or "" when the
// task has none.
func (t Task) SubCategoryKey() ID {
	if t.SubCategoryID != nil {
		return *t.SubCategoryID
	}
	if t.SubCategory != nil {
		return t.SubCategory.ID
	}
	return ""
}

// CategoryKey returns the parent category id reachable through the task's
// subcategory, or "".
func (t Task) CategoryKey() ID {
	if t.SubCategory == nil {
		return ""
	}
	if t.SubCategory.CategoryID != "" {
		return t.SubCategory.CategoryID
	}
	if t.SubCategory.Category != nil {
		return t.SubCategory.Category.ID
	}
	return ""
}

func (t Task) SubCategoryName() string {
	if t.SubCategory == nil {
		return ""
	}
	return t.SubCategory.Name
}

func (t Task) CategoryName() string {
	if t.SubCategory == nil || t.SubCategory.Category == nil {
		return ""
	}
	return t.SubCategory.Category.Name
}
