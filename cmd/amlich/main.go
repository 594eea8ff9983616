// Command amlich prints lunar calendar data without running the server.
//
// Usage:
//
//	go run ./cmd/amlich -year 2025           # month table of a solar year
//	go run ./cmd/amlich -date 2025-01-29     # almanac entry for one day
//	go run ./cmd/amlich -verify 1900-2100    # round-trip every day in a year span
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lichviet/amlich-api/internal/calendar"
)

func main() {
	year := flag.Int("year", 0, "Print the lunar months of a solar year")
	date := flag.String("date", "", "Print the almanac entry of a YYYY-MM-DD date")
	verify := flag.String("verify", "", "Round-trip every day of a FROM-TO solar year span")
	ascii := flag.Bool("ascii", false, "Strip Vietnamese diacritics from names")
	flag.Parse()

	conv := calendar.NewConverter()

	var err error
	switch {
	case *year != 0:
		err = printYear(conv, *year, *ascii)
	case *date != "":
		err = printDay(conv, *date, *ascii)
	case *verify != "":
		err = verifySpan(conv, *verify)
	default:
		err = printDay(conv, calendar.FormatDate(time.Now()), *ascii)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "amlich: %v\n", err)
		os.Exit(1)
	}
}

func printYear(conv *calendar.Converter, year int, ascii bool) error {
	ly, err := conv.MonthStarts(year)
	if err != nil {
		return err
	}

	fmt.Printf("=== Lunar months for solar year %d ===\n\n", year)
	if leap, ok := ly.LeapMonth(); ok {
		fmt.Printf("Leap month: %d (starts %s)\n\n", leap.Month, calendar.FormatDate(leap.StartDate()))
	} else {
		fmt.Print("No leap month\n\n")
	}

	fmt.Printf("%-12s %-6s %-5s %-5s %s\n", "Start", "Month", "Leap", "Days", "Can Chi")
	fmt.Println(strings.Repeat("-", 50))
	for _, m := range ly.Months {
		leap := ""
		if m.Leap {
			leap = "N"
		}
		fmt.Printf("%-12s %2d/%-3d %-5s %-5d %s\n",
			calendar.FormatDate(m.StartDate()), m.Month, m.Year%100, leap, m.Days,
			name(calendar.MonthCanChi(m.Year, m.Month), ascii))
	}
	return nil
}

func printDay(conv *calendar.Converter, s string, ascii bool) error {
	t, err := calendar.ParseDateString(s)
	if err != nil {
		return err
	}
	info, err := conv.DayInfo(t)
	if err != nil {
		return err
	}

	fmt.Printf("Solar:       %s (%s)\n", calendar.FormatDate(t), t.Weekday())
	fmt.Printf("Lunar:       %s\n", info.Lunar)
	fmt.Printf("Day:         %s\n", name(info.DayCanChi, ascii))
	fmt.Printf("Month:       %s\n", name(info.MonthCanChi, ascii))
	fmt.Printf("Year:        %s\n", name(info.YearCanChi, ascii))
	fmt.Printf("Solar term:  %s\n", fold(info.SolarTerm.Name, ascii))
	fmt.Printf("Officer:     %s\n", fold(info.Officer.Name, ascii))
	if info.UnluckyDay != nil {
		fmt.Printf("Unlucky:     %s\n", fold(info.UnluckyDay.Name, ascii))
	}
	if info.Festival != "" {
		fmt.Printf("Festival:    %s\n", fold(info.Festival, ascii))
	}

	hours := make([]string, 0, len(info.LuckyHours))
	for _, w := range info.LuckyHours {
		hours = append(hours, fmt.Sprintf("%s (%d-%d)", fold(w.Branch, ascii), w.StartHour, w.EndHour))
	}
	fmt.Printf("Lucky hours: %s\n", strings.Join(hours, ", "))
	return nil
}

// verifySpan converts every day of the span to lunar and back, one solar
// year per goroutine, and fails on the first mismatch.
func verifySpan(conv *calendar.Converter, span string) error {
	from, to, ok := strings.Cut(span, "-")
	if !ok {
		return fmt.Errorf("verify span %q: want FROM-TO", span)
	}
	first, err := strconv.Atoi(from)
	if err != nil {
		return fmt.Errorf("verify span: %w", err)
	}
	last, err := strconv.Atoi(to)
	if err != nil {
		return fmt.Errorf("verify span: %w", err)
	}
	if last < first {
		return fmt.Errorf("verify span %q: end before start", span)
	}

	var days atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := first; y <= last; y++ {
		g.Go(func() error {
			d := time.Date(y, time.January, 1, 0, 0, 0, 0, calendar.Zone)
			for ; d.Year() == y; d = d.AddDate(0, 0, 1) {
				if ctx.Err() != nil {
					return nil
				}
				ld, err := conv.SolarToLunar(d)
				if err != nil {
					return fmt.Errorf("%s: %w", calendar.FormatDate(d), err)
				}
				back, err := conv.LunarToSolar(ld.Day, ld.Month, ld.Year, ld.Leap)
				if err != nil {
					return fmt.Errorf("%s (%s): %w", calendar.FormatDate(d), ld, err)
				}
				if !back.Equal(d) {
					return fmt.Errorf("%s → %s → %s", calendar.FormatDate(d), ld, calendar.FormatDate(back))
				}
				days.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Verified %d days in %d-%d (%v)\n", days.Load(), first, last,
		time.Since(start).Round(time.Millisecond))
	return nil
}

func name(c calendar.CanChi, ascii bool) string {
	return fold(c.DisplayName(), ascii)
}

func fold(s string, ascii bool) string {
	if ascii {
		return calendar.ASCII(s)
	}
	return s
}
