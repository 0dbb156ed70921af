package calendar

import "time"

type Season string

const (
	SeasonSummer   Season = "summer"
	SeasonMonsoon  Season = "monsoon"
	SeasonWinter   Season = "winter"
	SeasonFestival Season = "festival"
)

var allMonths = []time.Month{
	time.January, time.February, time.March, time.April, time.May, time.June,
	time.July, time.August, time.September, time.October, time.November, time.December,
}

// seasonMonths follows the Indian calendar the catalog was written for.
// Festival themes run all year.
var seasonMonths = map[Season][]time.Month{
	SeasonSummer:   {time.April, time.May, time.June},
	SeasonMonsoon:  {time.July, time.August, time.September},
	SeasonWinter:   {time.December, time.January, time.February},
	SeasonFestival: allMonths,
}

// InSeason reports whether month falls inside season.
func InSeason(season Season, month time.Month) bool {
	for _, m := range seasonMonths[season] {
		if m == month {
			return true
		}
	}
	return false
}
