// Package export renders task lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"task-dashboard/internal/model"
)

const (
	SheetName      = "Tasks"
	DeadlineLayout = "2006-01-02 15:04"
)

// Column describes one exported column.
type Column struct {
	Header string
	Width  float64
	Value  func(model.Task) interface{}
}

// TaskColumns is the column set written by WriteTasks.
var TaskColumns = []Column{
	{Header: "ID", Width: 26, Value: func(t model.Task) interface{} { return t.ID.String() }},
	{Header: "Title", Width: 40, Value: func(t model.Task) interface{} { return t.Title }},
	{Header: "Status", Width: 14, Value: func(t model.Task) interface{} { return string(t.Status) }},
	{Header: "Priority", Width: 12, Value: func(t model.Task) interface{} { return string(t.Priority) }},
	{Header: "Deadline", Width: 18, Value: func(t model.Task) interface{} {
		if t.Deadline == nil {
			return ""
		}
		return t.Deadline.Format(DeadlineLayout)
	}},
	{Header: "Sub Category", Width: 22, Value: func(t model.Task) interface{} { return t.SubCategoryName() }},
	{Header: "Category", Width: 22, Value: func(t model.Task) interface{} { return t.CategoryName() }},
}

// WriteTasks streams tasks, in the given order, into a single-sheet workbook
// written to w.
func WriteTasks(w io.Writer, tasks []model.Task) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	header := make([]interface{}, len(TaskColumns))
	for i, col := range TaskColumns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col.Header}
		if col.Width > 0 {
			if err := sw.SetColWidth(i+1, i+1, col.Width); err != nil {
				return err
			}
		}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, task := range tasks {
		row := make([]interface{}, len(TaskColumns))
		for i, col := range TaskColumns {
			row[i] = col.Value(task)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
