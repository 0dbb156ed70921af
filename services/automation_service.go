package services

import (
	"context"
	"fmt"
	"time"

	"AutoPostAPI/calendar"
	"AutoPostAPI/models"
	"AutoPostAPI/utils"
)

const (
	jobDaily = "daily"
	jobSweep = "sweep"
)

// DailyReport summarizes one pass of the daily job.
type DailyReport struct {
	Day            calendar.Date `json:"day"`
	Users          int           `json:"users"`
	Scheduled      int           `json:"scheduled"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	Duplicate      int           `json:"duplicate"`
	Dropped        int           `json:"dropped"`
	MalformedRules int           `json:"malformed_rules"`
	Errors         []string      `json:"errors,omitempty"`
}

func (r *DailyReport) count(outcome Outcome) {
	switch outcome {
	case OutcomeScheduled:
		r.Scheduled++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeDuplicate:
		r.Duplicate++
	}
}

// AutomationService runs the daily provisioning job and the due sweep. Both
// take now explicitly so timers, operators and tests drive them the same way.
type AutomationService struct {
	users       UserStore
	rules       calendar.RuleSet
	provisioner *Provisioner
	sweeper     *Sweeper
	opts        calendar.AgendaOptions
	metrics     *Metrics
}

func NewAutomationService(users UserStore, rules calendar.RuleSet, provisioner *Provisioner, sweeper *Sweeper, opts calendar.AgendaOptions, metrics *Metrics) *AutomationService {
	return &AutomationService{
		users:       users,
		rules:       rules,
		provisioner: provisioner,
		sweeper:     sweeper,
		opts:        opts,
		metrics:     metrics,
	}
}

// RunDaily builds today's agenda for every opted-in user and provisions each
// event. Users and their events are handled one after another. A failure to
// load users aborts the run; a failure on one event is recorded and the run
// moves on.
func (a *AutomationService) RunDaily(ctx context.Context, now time.Time) (DailyReport, error) {
	started := time.Now()
	report, err := a.runDaily(ctx, now)
	a.metrics.job(jobDaily, started, err)
	if err != nil {
		utils.Errorf("Daily automation aborted: %v", err)
		return report, err
	}
	utils.Infof("Daily automation for %s done: users=%d scheduled=%d failed=%d skipped=%d duplicate=%d dropped=%d",
		report.Day, report.Users, report.Scheduled, report.Failed, report.Skipped, report.Duplicate, report.Dropped)
	return report, nil
}

func (a *AutomationService) runDaily(ctx context.Context, now time.Time) (DailyReport, error) {
	report := DailyReport{Day: calendar.DateOf(now.In(a.location()))}

	users, err := a.users.GetAutomationUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("load automation users: %w", err)
	}
	report.Users = len(users)
	if len(users) == 0 {
		utils.Infof("No users with automatic posts enabled")
		return report, nil
	}

	warned := make(map[string]bool)
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !user.DefaultCategory.Valid() {
			utils.Warnf("User %s has unknown category %q, skipping", user.ID, user.DefaultCategory)
			continue
		}

		agenda := calendar.BuildAgenda(user, a.rules, now, a.opts)
		for _, skipped := range agenda.Skipped {
			if !warned[skipped.Occasion] {
				warned[skipped.Occasion] = true
				report.MalformedRules++
				utils.Warnf("Skipping malformed rule: %s", skipped.Reason)
			}
		}
		for _, dropped := range agenda.Dropped {
			utils.Infof("Not scheduling %q for user %s at %s: %s", dropped.Occasion, user.ID, dropped.AssignedTime.Format(time.RFC3339), dropped.Reason)
		}
		report.Dropped += len(agenda.Dropped)
		a.metrics.agenda("scheduled", len(agenda.Events))
		a.metrics.agenda("dropped", len(agenda.Dropped))
		a.metrics.agenda("skipped", len(agenda.Skipped))

		for _, event := range agenda.Events {
			outcome, err := a.provisioner.Provision(ctx, user.ID, event)
			if err != nil {
				utils.Errorf("Provisioning %q for user %s failed: %v", event.Occasion, user.ID, err)
				report.Errors = append(report.Errors, fmt.Sprintf("%s/%s: %v", user.ID, event.Occasion, err))
				continue
			}
			report.count(outcome)
		}
	}
	return report, nil
}

// RunSweep finalizes every post due at now.
func (a *AutomationService) RunSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	started := time.Now()
	report, err := a.sweeper.Sweep(ctx, now)
	a.metrics.job(jobSweep, started, err)
	if err != nil {
		utils.Errorf("Sweep aborted: %v", err)
	}
	return report, err
}

// TodayAgenda previews what RunDaily would schedule for user at now.
func (a *AutomationService) TodayAgenda(user *models.User, now time.Time) calendar.Agenda {
	return calendar.BuildAgenda(user, a.rules, now, a.opts)
}

// Upcoming lists the next date of every yearly occasion for category.
func (a *AutomationService) Upcoming(category models.Category, now time.Time) (common, specific []calendar.UpcomingOccasion) {
	return calendar.UpcomingYearly(a.rules, category, calendar.DateOf(now.In(a.location())))
}

func (a *AutomationService) Location() *time.Location {
	return a.location()
}

func (a *AutomationService) location() *time.Location {
	if a.opts.Location == nil {
		return time.UTC
	}
	return a.opts.Location
}
