package notify

import "time"

// NextWeekWindowWeeks is how many weeks past the start of next week the
// "next week" bucket reaches, through the end of that day.
const NextWeekWindowWeeks = 6

// TimeBucket is the deadline-relative bucket a task falls into.
type TimeBucket int

const (
	NoBucket TimeBucket = iota
	PastDue
	Today
	ThisWeek
	NextWeek
)

func (b TimeBucket) String() string {
	switch b {
	case PastDue:
		return "pastDue"
	case Today:
		return "today"
	case ThisWeek:
		return "thisWeek"
	case NextWeek:
		return "nextWeek"
	default:
		return "none"
	}
}

// Window holds the bucket boundaries for one instant. Weeks start on Monday
// and days follow now's location.
type Window struct {
	StartOfToday    time.Time
	StartOfTomorrow time.Time
	StartOfNextWeek time.Time
	// EndOfNextWeek is exclusive.
	EndOfNextWeek time.Time
}

func WindowAt(now time.Time) Window {
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	sinceMonday := (int(today.Weekday()) + 6) % 7
	nextWeek := today.AddDate(0, 0, 7-sinceMonday)

	return Window{
		StartOfToday:    today,
		StartOfTomorrow: today.AddDate(0, 0, 1),
		StartOfNextWeek: nextWeek,
		EndOfNextWeek:   nextWeek.AddDate(0, 0, 7*NextWeekWindowWeeks+1),
	}
}

// Place returns the single time bucket for deadline, or NoBucket when the
// deadline lies beyond the next-week window.
func (w Window) Place(deadline time.Time) TimeBucket {
	switch {
	case deadline.Before(w.StartOfToday):
		return PastDue
	case deadline.Before(w.StartOfTomorrow):
		return Today
	case deadline.Before(w.StartOfNextWeek):
		return ThisWeek
	case deadline.Before(w.EndOfNextWeek):
		return NextWeek
	default:
		return NoBucket
	}
}
