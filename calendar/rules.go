package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"AutoPostAPI/models"
)

// ErrMalformedRule marks a rule whose fields do not fit its recurrence kind.
var ErrMalformedRule = errors.New("malformed occasion rule")

type RecurrenceKind string

const (
	KindYearly   RecurrenceKind = "yearly"
	KindWeekly   RecurrenceKind = "weekly"
	KindMonthly  RecurrenceKind = "monthly"
	KindBiWeekly RecurrenceKind = "bi-weekly"
	KindDaily    RecurrenceKind = "daily"
	KindSeasonal RecurrenceKind = "seasonal"
	KindAsNeeded RecurrenceKind = "as-needed"
)

// CategoryAll is the sentinel category matching every organization type.
const CategoryAll = "all"

// LastDayOfMonth is the DayOfMonth value for month-end rules.
const LastDayOfMonth = -1

type WeekPattern string

const (
	WeekOdd  WeekPattern = "odd"
	WeekEven WeekPattern = "even"
)

// Recurrence is the kind-specific half of an OccasionRule. Exactly one of the
// concrete types below is attached to each rule.
type Recurrence interface {
	Kind() RecurrenceKind
	validate() error
}

type Yearly struct {
	Month time.Month
	Day   int
}

type Weekly struct {
	Weekday time.Weekday
}

type Monthly struct {
	DayOfMonth int
}

type BiWeekly struct {
	Weekday time.Weekday
	Pattern WeekPattern
}

type Seasonal struct {
	Season  Season
	Weekday time.Weekday
}

type Daily struct {
	ContentType string
}

// AsNeeded rules are only ever triggered by hand.
type AsNeeded struct {
	ContentType string
}

func (Yearly) Kind() RecurrenceKind   { return KindYearly }
func (Weekly) Kind() RecurrenceKind   { return KindWeekly }
func (Monthly) Kind() RecurrenceKind  { return KindMonthly }
func (BiWeekly) Kind() RecurrenceKind { return KindBiWeekly }
func (Seasonal) Kind() RecurrenceKind { return KindSeasonal }
func (Daily) Kind() RecurrenceKind    { return KindDaily }
func (AsNeeded) Kind() RecurrenceKind { return KindAsNeeded }

func (r Yearly) validate() error {
	if r.Month < time.January || r.Month > time.December {
		return fmt.Errorf("month %d out of range", int(r.Month))
	}
	// 2024 is a leap year, so Feb 29 passes here and is clamped at resolve time.
	if r.Day < 1 || r.Day > daysIn(2024, r.Month) {
		return fmt.Errorf("day %d out of range for %s", r.Day, r.Month)
	}
	return nil
}

func (r Weekly) validate() error {
	return validateWeekday(r.Weekday)
}

func (r Monthly) validate() error {
	if r.DayOfMonth == LastDayOfMonth || (r.DayOfMonth >= 1 && r.DayOfMonth <= 31) {
		return nil
	}
	return fmt.Errorf("day_of_month %d out of range", r.DayOfMonth)
}

func (r BiWeekly) validate() error {
	if err := validateWeekday(r.Weekday); err != nil {
		return err
	}
	if r.Pattern != WeekOdd && r.Pattern != WeekEven {
		return fmt.Errorf("week_pattern %q must be odd or even", r.Pattern)
	}
	return nil
}

func (r Seasonal) validate() error {
	if err := validateWeekday(r.Weekday); err != nil {
		return err
	}
	if _, ok := seasonMonths[r.Season]; !ok {
		return fmt.Errorf("unknown season %q", r.Season)
	}
	return nil
}

func (Daily) validate() error    { return nil }
func (AsNeeded) validate() error { return nil }

func validateWeekday(w time.Weekday) error {
	if w < time.Sunday || w > time.Saturday {
		return fmt.Errorf("day_of_week %d out of range", int(w))
	}
	return nil
}

// OccasionRule is one entry of the occasion calendar.
type OccasionRule struct {
	Occasion        string
	Categories      []string
	Recurrence      Recurrence
	PromptHint      string
	PreferredTime   string
	EngagementType  string
	IsIndianHoliday bool

	// foreign lists fields supplied for a different recurrence kind.
	foreign []string
}

func (r OccasionRule) Kind() RecurrenceKind {
	if r.Recurrence == nil {
		return ""
	}
	return r.Recurrence.Kind()
}

// AppliesTo reports whether the rule targets the given organization category.
func (r OccasionRule) AppliesTo(category models.Category) bool {
	for _, c := range r.Categories {
		if c == CategoryAll || models.Category(c) == category {
			return true
		}
	}
	return false
}

// Validate returns an error wrapping ErrMalformedRule when the rule cannot be
// resolved.
func (r OccasionRule) Validate() error {
	if strings.TrimSpace(r.Occasion) == "" {
		return fmt.Errorf("%w: occasion is required", ErrMalformedRule)
	}
	if len(r.Occasion) > models.MaxOccasionLength {
		return fmt.Errorf("%w: %q: occasion exceeds %d characters", ErrMalformedRule, r.Occasion, models.MaxOccasionLength)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%w: %q: no categories", ErrMalformedRule, r.Occasion)
	}
	if r.Recurrence == nil {
		return fmt.Errorf("%w: %q: missing or unknown recurrence kind", ErrMalformedRule, r.Occasion)
	}
	if len(r.foreign) > 0 {
		return fmt.Errorf("%w: %q: fields %s do not apply to %s rules", ErrMalformedRule, r.Occasion, strings.Join(r.foreign, ", "), r.Kind())
	}
	if err := r.Recurrence.validate(); err != nil {
		return fmt.Errorf("%w: %q (%s): %v", ErrMalformedRule, r.Occasion, r.Kind(), err)
	}
	if r.PreferredTime != "" {
		if _, err := time.Parse("15:04", r.PreferredTime); err != nil {
			return fmt.Errorf("%w: %q: preferred_time %q is not HH:MM", ErrMalformedRule, r.Occasion, r.PreferredTime)
		}
	}
	return nil
}
