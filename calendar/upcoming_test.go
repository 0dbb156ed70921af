package calendar

import (
	"testing"
	"time"

	"AutoPostAPI/models"
)

func TestUpcomingYearly(t *testing.T) {
	rules := []OccasionRule{
		rule("New Year's Day", Yearly{Month: time.January, Day: 1}),
		rule("Christmas", Yearly{Month: time.December, Day: 25}),
		{Occasion: "Teachers' Day", Categories: []string{"college", "ngo"}, Recurrence: Yearly{Month: time.September, Day: 5}},
		{Occasion: "Startup Day", Categories: []string{"business"}, Recurrence: Yearly{Month: time.January, Day: 16}},
		rule("Motivational Monday", Weekly{Weekday: time.Monday}),
		rule("Broken", Yearly{Month: 14, Day: 1}),
	}
	today := mustDate(t, "2024-12-25")

	common, specific := UpcomingYearly(rules, models.CategoryCollege, today)

	if len(common) != 2 {
		t.Fatalf("expected 2 common occasions, got %+v", common)
	}
	if common[0].Occasion != "Christmas" || !common[0].IsToday || common[0].Date != today {
		t.Fatalf("expected Christmas today first, got %+v", common[0])
	}
	if common[1].Occasion != "New Year's Day" || common[1].Date.String() != "2025-01-01" || common[1].IsToday {
		t.Fatalf("expected New Year's Day next year, got %+v", common[1])
	}
	if common[0].Categories != "All" {
		t.Fatalf("expected All label, got %q", common[0].Categories)
	}

	if len(specific) != 1 || specific[0].Occasion != "Teachers' Day" {
		t.Fatalf("expected only Teachers' Day for college, got %+v", specific)
	}
	if specific[0].Date.String() != "2025-09-05" || specific[0].Categories != "College, Ngo" {
		t.Fatalf("unexpected specific occasion %+v", specific[0])
	}
}

func TestUpcomingYearlyOrdersTiesByOccasion(t *testing.T) {
	rules := []OccasionRule{
		rule("Zebra Day", Yearly{Month: time.March, Day: 1}),
		rule("Aardvark Day", Yearly{Month: time.March, Day: 1}),
	}

	common, _ := UpcomingYearly(rules, models.CategoryNGO, mustDate(t, "2024-02-01"))

	if len(common) != 2 || common[0].Occasion != "Aardvark Day" {
		t.Fatalf("expected ties broken by occasion, got %+v", common)
	}
}
