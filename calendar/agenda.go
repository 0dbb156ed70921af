package calendar

import (
	"sort"
	"strings"
	"time"

	"AutoPostAPI/models"
)

// DefaultStartHour is the local hour the first occasion of a day is slotted at.
const DefaultStartHour = 10

type AgendaOptions struct {
	// Location is the automation timezone. Nil means UTC.
	Location  *time.Location
	StartHour int
}

func (o AgendaOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// DailyEvent is one occasion due for a user today with its assigned slot.
type DailyEvent struct {
	Occasion            string          `json:"occasion"`
	Kind                RecurrenceKind  `json:"kind"`
	Category            models.Category `json:"category"`
	Audience            models.Audience `json:"audience"`
	OrganizationContext string          `json:"organization_context,omitempty"`
	CalendarDay         Date            `json:"calendar_day"`
	AssignedTime        time.Time       `json:"assigned_time"`
	PromptHint          string          `json:"prompt_hint"`
}

type SkippedRule struct {
	Occasion string `json:"occasion"`
	Reason   string `json:"reason"`
}

type DroppedEvent struct {
	Occasion     string    `json:"occasion"`
	AssignedTime time.Time `json:"assigned_time"`
	Reason       string    `json:"reason"`
}

// Agenda is the outcome of one BuildAgenda pass.
type Agenda struct {
	Day     Date           `json:"day"`
	Events  []DailyEvent   `json:"events"`
	Skipped []SkippedRule  `json:"skipped,omitempty"`
	Dropped []DroppedEvent `json:"dropped,omitempty"`
}

const (
	reasonSlotPassed   = "assigned time already passed"
	reasonPastMidnight = "assigned time falls after the end of the day"
)

// BuildAgenda selects the rules that fire today for user and gives each a
// distinct hourly slot. The output depends only on its inputs: matches are
// ordered by occasion name and slotted from opts.StartHour onward in
// opts.Location. Slots that are already behind now, or that would spill into
// the next day, are dropped rather than scheduled.
func BuildAgenda(user *models.User, rules []OccasionRule, now time.Time, opts AgendaOptions) Agenda {
	loc := opts.location()
	today := DateOf(now.In(loc))
	agenda := Agenda{Day: today}

	var matches []OccasionRule
	for _, rule := range rules {
		if !rule.AppliesTo(user.DefaultCategory) {
			continue
		}
		if err := rule.Validate(); err != nil {
			agenda.Skipped = append(agenda.Skipped, SkippedRule{Occasion: rule.Occasion, Reason: err.Error()})
			continue
		}
		if rule.Kind() == KindAsNeeded {
			continue
		}
		if FiresOn(rule, today) {
			matches = append(matches, rule)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Occasion < matches[j].Occasion
	})

	orgContext := user.OrganizationContext()
	for i, rule := range matches {
		hour := opts.StartHour + i
		assigned := today.At(hour, 0, loc)
		if hour >= 24 {
			agenda.Dropped = append(agenda.Dropped, DroppedEvent{Occasion: rule.Occasion, AssignedTime: assigned, Reason: reasonPastMidnight})
			continue
		}
		if assigned.Before(now) {
			agenda.Dropped = append(agenda.Dropped, DroppedEvent{Occasion: rule.Occasion, AssignedTime: assigned, Reason: reasonSlotPassed})
			continue
		}

		agenda.Events = append(agenda.Events, DailyEvent{
			Occasion:            rule.Occasion,
			Kind:                rule.Kind(),
			Category:            user.DefaultCategory,
			Audience:            user.Audience(),
			OrganizationContext: orgContext,
			CalendarDay:         today,
			AssignedTime:        assigned,
			PromptHint:          strings.TrimSpace(rule.PromptHint + " " + orgContext),
		})
	}

	return agenda
}
