package weeks

import (
	"fmt"
	"time"
)

// DefaultWeeksAhead is the window size used when none (or an invalid one) is given.
const DefaultWeeksAhead = 26

// WeekLabel describes one generated week label
type WeekLabel struct {
	ISOYear     int    `json:"iso_year" yaml:"iso_year"`
	ISOWeek     int    `json:"iso_week" yaml:"iso_week"`
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
}

// Rollover selects how the week counter wraps into the next year.
type Rollover string

const (
	// RolloverFixed52 always wraps after week 52. ISO years with 53 weeks are
	// mis-numbered from week 53 onwards; this matches the labels existing
	// repositories already carry.
	RolloverFixed52 Rollover = "fixed52"

	// RolloverISO wraps after the real number of ISO weeks in the year.
	RolloverISO Rollover = "iso"
)

// ParseRollover parses a rollover mode name. An empty string selects RolloverFixed52.
func ParseRollover(s string) (Rollover, error) {
	switch Rollover(s) {
	case "", RolloverFixed52:
		return RolloverFixed52, nil
	case RolloverISO:
		return RolloverISO, nil
	default:
		return "", fmt.Errorf("unknown rollover mode %q (expected %s or %s)", s, RolloverFixed52, RolloverISO)
	}
}

type options struct {
	color    ColorFunc
	rollover Rollover
}

// Option customizes Generate.
type Option func(*options)

// WithColorFunc sets the color strategy for the whole sequence.
func WithColorFunc(fn ColorFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.color = fn
		}
	}
}

// WithRollover sets the year rollover mode.
func WithRollover(r Rollover) Option {
	return func(o *options) {
		if r != "" {
			o.rollover = r
		}
	}
}

// LabelName formats the label name for an ISO year and week.
func LabelName(year, week int) string {
	return fmt.Sprintf("week-%d-%02d", year, week)
}

// Description returns the label description for name.
func Description(name string) string {
	return fmt.Sprintf("ISO week %s", name)
}

// WeeksInYear returns the number of ISO weeks (52 or 53) in year.
func WeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// Step advances (year, week) by one week under the fixed-52 rule.
func Step(year, week int) (int, int) {
	week++
	if week > MaxWeek {
		return year + 1, 1
	}
	return year, week
}

// StepISO advances (year, week) by one week using the real ISO week count.
func StepISO(year, week int) (int, int) {
	week++
	if week > WeeksInYear(year) {
		return year + 1, 1
	}
	return year, week
}

// Generate returns weeksAhead labels starting at the ISO week containing ref.
// A non-positive weeksAhead yields an empty sequence.
func Generate(ref time.Time, weeksAhead int, opts ...Option) []WeekLabel {
	o := options{color: WeekColor, rollover: RolloverFixed52}
	for _, opt := range opts {
		opt(&o)
	}

	step := Step
	if o.rollover == RolloverISO {
		step = StepISO
	}

	if weeksAhead <= 0 {
		return []WeekLabel{}
	}

	year, week := ref.ISOWeek()
	labels := make([]WeekLabel, 0, weeksAhead)
	for i := 0; i < weeksAhead; i++ {
		labels = append(labels, newWeekLabel(year, week, o.color))
		year, week = step(year, week)
	}
	return labels
}

func newWeekLabel(year, week int, color ColorFunc) WeekLabel {
	name := LabelName(year, week)
	return WeekLabel{
		ISOYear:     year,
		ISOWeek:     week,
		Name:        name,
		Color:       color(week),
		Description: Description(name),
	}
}
