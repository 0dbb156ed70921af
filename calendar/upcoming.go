package calendar

import (
	"sort"
	"strings"

	"AutoPostAPI/models"
)

type UpcomingOccasion struct {
	Occasion   string `json:"occasion"`
	Date       Date   `json:"date"`
	IsToday    bool   `json:"is_today"`
	Categories string `json:"category"`
}

// UpcomingYearly lists the next occurrence of every yearly rule, split into
// occasions shared by all categories and those specific to category. Both
// lists are ordered by date, then occasion.
func UpcomingYearly(rules []OccasionRule, category models.Category, today Date) (common, specific []UpcomingOccasion) {
	for _, rule := range rules {
		if rule.Kind() != KindYearly {
			continue
		}
		next, ok := Resolve(rule, today)
		if !ok {
			continue
		}

		item := UpcomingOccasion{
			Occasion:   rule.Occasion,
			Date:       next,
			IsToday:    next == today,
			Categories: categoryLabel(rule.Categories),
		}
		switch {
		case hasAll(rule.Categories):
			common = append(common, item)
		case rule.AppliesTo(category):
			specific = append(specific, item)
		}
	}

	sortUpcoming(common)
	sortUpcoming(specific)
	return common, specific
}

func sortUpcoming(items []UpcomingOccasion) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].Occasion < items[j].Occasion
	})
}

func hasAll(categories []string) bool {
	for _, c := range categories {
		if c == CategoryAll {
			return true
		}
	}
	return false
}

func categoryLabel(categories []string) string {
	if hasAll(categories) {
		return "All"
	}
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" {
			continue
		}
		labels = append(labels, strings.ToUpper(c[:1])+c[1:])
	}
	return strings.Join(labels, ", ")
}
