package query

import (
	"cmp"
	"strings"

	"task-dashboard/internal/model"
)

// compareField orders a and b ascending by key. Missing values sort lowest.
func compareField(a, b model.Task, key SortKey) int {
	switch key {
	case SortDescription:
		return strings.Compare(a.Description, b.Description)
	case SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortPriority:
		return strings.Compare(string(a.Priority), string(b.Priority))
	case SortDeadline:
		switch {
		case a.Deadline == nil && b.Deadline == nil:
			return 0
		case a.Deadline == nil:
			return -1
		case b.Deadline == nil:
			return 1
		default:
			return a.Deadline.Compare(*b.Deadline)
		}
	default:
		return strings.Compare(a.Title, b.Title)
	}
}

type ranked struct {
	pos  int
	task model.Task
}

// comparator breaks ties on input position, which makes the order total and
// turns the descending comparator into the exact negation of the ascending one.
func comparator(key SortKey, dir Direction) func(a, b ranked) int {
	return func(a, b ranked) int {
		c := compareField(a.task, b.task, key)
		if c == 0 {
			c = cmp.Compare(a.pos, b.pos)
		}
		if dir == Desc {
			return -c
		}
		return c
	}
}
