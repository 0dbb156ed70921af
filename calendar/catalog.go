package calendar

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"
)

//go:embed special_dates.yaml
var defaultCatalog []byte

// RuleSet is the immutable occasion calendar loaded at startup.
type RuleSet []OccasionRule

// rawRule mirrors one YAML catalog entry before it is split into a
// kind-specific Recurrence.
type rawRule struct {
	Occasion       string   `yaml:"occasion"`
	Categories     []string `yaml:"categories"`
	Kind           string   `yaml:"kind"`
	Month          *int     `yaml:"month"`
	Day            *int     `yaml:"day"`
	DayOfWeek      *int     `yaml:"day_of_week"`
	DayOfMonth     *int     `yaml:"day_of_month"`
	WeekPattern    string   `yaml:"week_pattern"`
	Season         string   `yaml:"season"`
	ContentType    string   `yaml:"content_type"`
	EngagementType string   `yaml:"engagement_type"`
	IndianHoliday  bool     `yaml:"indian_holiday"`
	PromptHint     string   `yaml:"prompt_hint"`
	PreferredTime  string   `yaml:"preferred_time"`
}

// DefaultRuleSet returns the catalog compiled into the binary.
func DefaultRuleSet() (RuleSet, error) {
	return ParseRuleSet(defaultCatalog)
}

// LoadRuleSet reads a catalog file, or the embedded catalog when path is empty.
func LoadRuleSet(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRuleSet()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule catalog: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes a YAML catalog. Entries that are structurally valid YAML
// but malformed as rules are kept; Validate reports them and the agenda
// builder skips them.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var raws []rawRule
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode rule catalog: %w", err)
	}

	rules := make(RuleSet, 0, len(raws))
	for _, raw := range raws {
		rules = append(rules, raw.toRule())
	}
	return rules, nil
}

// Validate returns every malformed rule joined into one error, or nil.
func (rs RuleSet) Validate() error {
	var errs []error
	for _, rule := range rs {
		if err := rule.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (raw rawRule) toRule() OccasionRule {
	rule := OccasionRule{
		Occasion:        raw.Occasion,
		Categories:      raw.Categories,
		PromptHint:      raw.PromptHint,
		PreferredTime:   raw.PreferredTime,
		EngagementType:  raw.EngagementType,
		IsIndianHoliday: raw.IndianHoliday,
	}

	var allowed map[string]bool
	switch RecurrenceKind(raw.Kind) {
	case KindYearly:
		rule.Recurrence = Yearly{Month: time.Month(intOr(raw.Month, 0)), Day: intOr(raw.Day, 0)}
		allowed = fieldSet("month", "day")
	case KindWeekly:
		rule.Recurrence = Weekly{Weekday: weekdayOf(raw.DayOfWeek)}
		allowed = fieldSet("day_of_week")
	case KindMonthly:
		rule.Recurrence = Monthly{DayOfMonth: intOr(raw.DayOfMonth, 0)}
		allowed = fieldSet("day_of_month")
	case KindBiWeekly:
		rule.Recurrence = BiWeekly{Weekday: weekdayOf(raw.DayOfWeek), Pattern: WeekPattern(raw.WeekPattern)}
		allowed = fieldSet("day_of_week", "week_pattern")
	case KindSeasonal:
		rule.Recurrence = Seasonal{Season: Season(raw.Season), Weekday: weekdayOf(raw.DayOfWeek)}
		allowed = fieldSet("day_of_week", "season")
	case KindDaily:
		rule.Recurrence = Daily{ContentType: raw.ContentType}
		allowed = fieldSet("content_type")
	case KindAsNeeded:
		rule.Recurrence = AsNeeded{ContentType: raw.ContentType}
		allowed = fieldSet("content_type")
	default:
		return rule
	}

	for name, present := range raw.presentFields() {
		if present && !allowed[name] {
			rule.foreign = append(rule.foreign, name)
		}
	}
	sort.Strings(rule.foreign)
	return rule
}

func (raw rawRule) presentFields() map[string]bool {
	return map[string]bool{
		"month":        raw.Month != nil,
		"day":          raw.Day != nil,
		"day_of_week":  raw.DayOfWeek != nil,
		"day_of_month": raw.DayOfMonth != nil,
		"week_pattern": raw.WeekPattern != "",
		"season":       raw.Season != "",
		"content_type": raw.ContentType != "",
	}
}

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

// weekdayOf maps a missing day_of_week to an out-of-range weekday so the rule
// fails validation instead of silently meaning Sunday.
func weekdayOf(v *int) time.Weekday {
	if v == nil {
		return time.Weekday(-1)
	}
	return time.Weekday(*v)
}
