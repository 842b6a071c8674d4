package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"task-dashboard/internal/model"
)

type CategoryLister interface {
	Categories(ctx context.Context) ([]model.Category, error)
	SubCategories(ctx context.Context, categoryID model.ID) ([]model.SubCategory, error)
}

type CategoryHandler struct {
	categories CategoryLister
}

func NewCategoryHandler(categories CategoryLister) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) ListCategoriesHandler(c echo.Context) error {
	categories, err := h.categories.Categories(c.Request().Context())
	if err != nil {
		return ResponseError(c, http.StatusInternalServerError, "Failed to list categories", err)
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return ResponseSuccess(c, http.StatusOK, "", categories)
}

// ListSubCategoriesHandler narrows to one category when category_id is set.
func (h *CategoryHandler) ListSubCategoriesHandler(c echo.Context) error {
	categoryID := model.ID(strings.TrimSpace(c.QueryParam("category_id")))
	subs, err := h.categories.SubCategories(c.Request().Context(), categoryID)
	if err != nil {
		return ResponseError(c, http.StatusInternalServerError, "Failed to list subcategories", err)
	}
	if subs == nil {
		subs = []model.SubCategory{}
	}
	return ResponseSuccess(c, http.StatusOK, "", subs)
}
