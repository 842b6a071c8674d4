package model

import (
	"bytes"
	"encoding/json"
)

// Category is top-level reference data used to group subcategories.
type Category struct {
	ID          ID     `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"index" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	IsDeleted   bool   `json:"is_deleted"`
}

// SubCategory belongs to exactly one Category.
type SubCategory struct {
	ID          ID        `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"index" json:"name"`
	Description string    `json:"description"`
	CategoryID  ID        `gorm:"index" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsDeleted   bool      `json:"is_deleted"`
}

// UnmarshalJSON accepts category_id either as a bare id or as a populated
// category document.
func (s *SubCategory) UnmarshalJSON(data []byte) error {
	type plain SubCategory
	aux := struct {
		*plain
		CategoryID json.RawMessage `json:"category_id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.CategoryID)
	switch {
	case len(raw) == 0:
	case raw[0] == '{':
		var category Category
		if err := json.Unmarshal(raw, &category); err != nil {
			return err
		}
		s.CategoryID = category.ID
		if s.Category == nil {
			s.Category = &category
		}
	default:
		if err := json.Unmarshal(raw, &s.CategoryID); err != nil {
			return err
		}
	}
	if s.CategoryID == "" && s.Category != nil {
		s.CategoryID = s.Category.ID
	}
	return nil
}
