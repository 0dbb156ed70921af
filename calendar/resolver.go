package calendar

import "time"

// Resolve returns the calendar day on which rule next occurs at or after ref.
//
// Yearly, weekly and monthly rules search forward. Bi-weekly, seasonal and
// daily rules are predicates: they resolve to ref itself when they fire on
// ref and report false otherwise. As-needed and malformed rules never
// resolve.
func Resolve(rule OccasionRule, ref Date) (Date, bool) {
	if rule.Validate() != nil {
		return Date{}, false
	}

	switch r := rule.Recurrence.(type) {
	case Yearly:
		return resolveYearly(r, ref), true
	case Weekly:
		diff := (int(r.Weekday) - int(ref.Weekday()) + 7) % 7
		return ref.AddDays(diff), true
	case Monthly:
		return resolveMonthly(r, ref), true
	case BiWeekly:
		if ref.Weekday() == r.Weekday && weekParity(ref) == r.Pattern {
			return ref, true
		}
		return Date{}, false
	case Seasonal:
		if ref.Weekday() == r.Weekday && InSeason(r.Season, ref.Month) {
			return ref, true
		}
		return Date{}, false
	case Daily:
		return ref, true
	case AsNeeded:
		return Date{}, false
	default:
		return Date{}, false
	}
}

// FiresOn reports whether rule occurs exactly on day.
func FiresOn(rule OccasionRule, day Date) bool {
	next, ok := Resolve(rule, day)
	return ok && next == day
}

func resolveYearly(r Yearly, ref Date) Date {
	d := clampedDate(ref.Year, r.Month, r.Day)
	if d.Before(ref) {
		d = clampedDate(ref.Year+1, r.Month, r.Day)
	}
	return d
}

func resolveMonthly(r Monthly, ref Date) Date {
	d := monthlyDate(ref.Year, ref.Month, r.DayOfMonth)
	if d.Before(ref) {
		year, month := ref.Year, ref.Month+1
		if month > 12 {
			year, month = year+1, 1
		}
		d = monthlyDate(year, month, r.DayOfMonth)
	}
	return d
}

func monthlyDate(year int, month time.Month, dayOfMonth int) Date {
	if dayOfMonth == LastDayOfMonth {
		return Date{Year: year, Month: month, Day: daysIn(year, month)}
	}
	return clampedDate(year, month, dayOfMonth)
}

// weekParity uses the ISO-8601 week number, so the odd/even rhythm can repeat
// across a year boundary (week 53 followed by week 1).
func weekParity(d Date) WeekPattern {
	if d.ISOWeek()%2 == 1 {
		return WeekOdd
	}
	return WeekEven
}
