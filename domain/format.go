package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodsign/monday"
)

// FormatDate renders the long Spanish (Peru) date printed on certificates,
// e.g. "5 de marzo de 2025".
func FormatDate(t time.Time) string {
	return monday.Format(t, "2 de January de 2006", monday.LocaleEsES)
}

// FormatTime renders a 12-hour clock with the es-PE day period marker,
// e.g. "03:04:05 p. m.".
func FormatTime(t time.Time) string {
	return clock(t, true)
}

// FormatDateTime is the "fecha de generación" line on the second page,
// e.g. "5/3/2025, 3:04:05 p. m.". The hour is not padded here.
func FormatDateTime(t time.Time) string {
	return t.Format("2/1/2006") + ", " + clock(t, false)
}

func clock(t time.Time, padHour bool) string {
	period := "a. m."
	if t.Hour() >= 12 {
		period = "p. m."
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	h := strconv.Itoa(hour)
	if padHour && hour < 10 {
		h = "0" + h
	}
	return fmt.Sprintf("%s:%02d:%02d %s", h, t.Minute(), t.Second(), period)
}
