/*
Package holiday generates German public-holiday calendars.

PURPOSE:
  ZeitPal serves German SMEs, where public holidays are set per
  Bundesland. This package generates the holidays for a given year and
  region code so they can be loaded into the holiday store without
  hand-entry. Fixed-date holidays are combined with the movable feasts
  derived from Easter Sunday.

REGION CODES:
  The standard two-letter Bundesland codes (BW, BY, BE, BB, HB, HH, HE,
  MV, NI, NW, RP, SL, SN, ST, SH, TH). The empty region yields only the
  nationwide holidays.

EASTER:
  Easter Sunday is computed with the Anonymous Gregorian algorithm,
  valid for all Gregorian years.

SEE ALSO:
  - workday/calendar.go: HolidaySet consuming these dates
  - store/sqlite: Persists generated holidays per region
*/
package holiday

import (
	"sort"
	"time"

	"github.com/zeitpal/leave-engine/workday"
)

// Holiday is a named public holiday on a concrete date.
type Holiday struct {
	Date   workday.Date
	Name   string
	Region string // empty = nationwide
}

// Regions lists the supported Bundesland codes.
func Regions() []string {
	return []string{"BW", "BY", "BE", "BB", "HB", "HH", "HE", "MV", "NI", "NW", "RP", "SL", "SN", "ST", "SH", "TH"}
}

// ValidRegion reports whether code is a known Bundesland code or empty
// (nationwide only).
func ValidRegion(code string) bool {
	if code == "" {
		return true
	}
	for _, r := range Regions() {
		if r == code {
			return true
		}
	}
	return false
}

// EasterSunday returns Easter Sunday for the year (Gregorian calendar,
// Anonymous Gregorian algorithm).
func EasterSunday(year int) workday.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return workday.NewDate(year, time.Month(month), day)
}

// ForRegion returns all public holidays of the year observed in the
// region: the nationwide set plus the region's additions. Dates are
// sorted ascending.
func ForRegion(year int, region string) []Holiday {
	easter := EasterSunday(year)

	holidays := []Holiday{
		{Date: workday.NewDate(year, time.January, 1), Name: "Neujahr"},
		{Date: easter.AddDays(-2), Name: "Karfreitag"},
		{Date: easter.AddDays(1), Name: "Ostermontag"},
		{Date: workday.NewDate(year, time.May, 1), Name: "Tag der Arbeit"},
		{Date: easter.AddDays(39), Name: "Christi Himmelfahrt"},
		{Date: easter.AddDays(50), Name: "Pfingstmontag"},
		{Date: workday.NewDate(year, time.October, 3), Name: "Tag der Deutschen Einheit"},
		{Date: workday.NewDate(year, time.December, 25), Name: "1. Weihnachtstag"},
		{Date: workday.NewDate(year, time.December, 26), Name: "2. Weihnachtstag"},
	}

	holidays = append(holidays, regionalHolidays(year, easter, region)...)

	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays
}

// Dates returns only the dates as a HolidaySet snapshot.
func Dates(holidays []Holiday) workday.HolidaySet {
	set := workday.NewHolidaySet()
	for _, h := range holidays {
		set.Add(h.Date)
	}
	return set
}

func regionalHolidays(year int, easter workday.Date, region string) []Holiday {
	var out []Holiday
	add := func(date workday.Date, name string, regions ...string) {
		for _, r := range regions {
			if r == region {
				out = append(out, Holiday{Date: date, Name: name, Region: region})
				return
			}
		}
	}

	add(workday.NewDate(year, time.January, 6), "Heilige Drei Könige", "BW", "BY", "ST")
	add(workday.NewDate(year, time.March, 8), "Internationaler Frauentag", "BE", "MV")
	add(easter.AddDays(60), "Fronleichnam", "BW", "BY", "HE", "NW", "RP", "SL")
	add(workday.NewDate(year, time.August, 15), "Mariä Himmelfahrt", "SL")
	add(workday.NewDate(year, time.September, 20), "Weltkindertag", "TH")
	add(workday.NewDate(year, time.October, 31), "Reformationstag", "BB", "HB", "HH", "MV", "NI", "SN", "ST", "SH", "TH")
	add(workday.NewDate(year, time.November, 1), "Allerheiligen", "BW", "BY", "NW", "RP", "SL")
	add(bussUndBettag(year), "Buß- und Bettag", "SN")

	return out
}

// bussUndBettag is the Wednesday before November 23.
func bussUndBettag(year int) workday.Date {
	d := workday.NewDate(year, time.November, 22)
	for d.Weekday() != time.Wednesday {
		d = d.AddDays(-1)
	}
	return d
}
