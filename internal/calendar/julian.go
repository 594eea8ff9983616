// Package calendar implements the Vietnamese lunisolar calendar: conversion
// between Gregorian and lunar dates, and the sexagenary (Can-Chi) cycle for
// days, months, years and hours.
//
// All calendar arithmetic is referenced to a single fixed time zone, UTC+7.
// Inputs in any location are normalized with t.In(Zone) before their civil
// date is taken, and outputs are returned in Zone.
package calendar

import (
	"math"
	"time"
)

// TimeZoneOffset is the offset in hours of the reference time zone used by
// every component of the engine.
const TimeZoneOffset = 7

// Zone is the reference location (Indochina Time, UTC+7).
var Zone = time.FixedZone("ICT", TimeZoneOffset*60*60)

// J2000 is the Julian date of 2000-01-01 12:00 UTC.
const J2000 = 2451545.0

// DayNumber returns the Julian day number of a proleptic Gregorian date:
// the integer JD at noon of that civil day.
func DayNumber(year int, month time.Month, day int) int {
	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) - 32045
}

// DateFromDayNumber is the inverse of DayNumber.
func DateFromDayNumber(jdn int) (year int, month time.Month, day int) {
	a := jdn + 32044
	b := floorDiv(4*a+3, 146097)
	c := a - floorDiv(146097*b, 4)
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153

	day = e - (153*m+2)/5 + 1
	month = time.Month(m + 3 - 12*(m/10))
	year = 100*b + d - 4800 + m/10
	return year, month, day
}

// ToJulianDay converts t to a real-valued Julian date whose fractional part is
// the time of day in the zone offsetHours east of UTC. With offsetHours = 0,
// 2000-01-01 12:00 UTC maps to J2000.
func ToJulianDay(t time.Time, offsetHours float64) float64 {
	lt := t.In(time.FixedZone("", int(offsetHours*3600)))
	y, m, d := lt.Date()
	hh, mm, ss := lt.Clock()
	seconds := float64(hh*3600+mm*60+ss) + float64(lt.Nanosecond())/1e9
	return float64(DayNumber(y, m, d)) + seconds/86400 - 0.5
}

// FromJulianDay is the inverse of ToJulianDay. The result is rounded to the
// nearest microsecond and expressed in the zone offsetHours east of UTC.
func FromJulianDay(jd float64, offsetHours float64) time.Time {
	shifted := jd + 0.5
	jdn := math.Floor(shifted)
	frac := shifted - jdn
	y, m, d := DateFromDayNumber(int(jdn))
	micros := int64(math.Round(frac * 86400 * 1e6))
	loc := time.FixedZone("", int(offsetHours*3600))
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(micros) * time.Microsecond)
}

// LocalDayNumber returns the day number of the civil date of t in Zone.
func LocalDayNumber(t time.Time) int {
	y, m, d := t.In(Zone).Date()
	return DayNumber(y, m, d)
}

// DateInZone returns midnight of the civil day with the given day number, in Zone.
func DateInZone(jdn int) time.Time {
	y, m, d := DateFromDayNumber(jdn)
	return time.Date(y, m, d, 0, 0, 0, 0, Zone)
}

// floorDiv is integer division rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// mod returns a modulo b in [0, b).
func mod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
