package musicbrainz

import "time"

// Release weeks are anchored on Fridays, the industry-wide global release
// day.

// CurrentWeekFriday returns the date of this week's Friday (today if now
// is a Friday) in YYYY-MM-DD form.
func CurrentWeekFriday(now time.Time) string {
	days := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, days).Format("2006-01-02")
}

// PreviousWeekFriday returns the Friday weeksBack weeks before the current
// week's Friday.
func PreviousWeekFriday(now time.Time, weeksBack int) string {
	days := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, days-7*weeksBack).Format("2006-01-02")
}
