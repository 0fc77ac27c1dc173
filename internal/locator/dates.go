package locator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Polish month names in the genitive case, as they appear in phrases like
// "10 czerwca".
var polishMonthsGenitive = map[string]time.Month{
	"stycznia":     time.January,
	"lutego":       time.February,
	"marca":        time.March,
	"kwietnia":     time.April,
	"maja":         time.May,
	"czerwca":      time.June,
	"lipca":        time.July,
	"sierpnia":     time.August,
	"września":     time.September,
	"października": time.October,
	"listopada":    time.November,
	"grudnia":      time.December,
}

var polishWeekdays = map[string]time.Weekday{
	"poniedziałek": time.Monday,
	"wtorek":       time.Tuesday,
	"środa":        time.Wednesday,
	"środę":        time.Wednesday,
	"czwartek":     time.Thursday,
	"piątek":       time.Friday,
	"sobota":       time.Saturday,
	"sobotę":       time.Saturday,
	"niedziela":    time.Sunday,
	"niedzielę":    time.Sunday,
}

var dayMonthRe = regexp.MustCompile(`(\d{1,2})\s+([a-zżźćńółęąś]+)`)

// ParseHumanDate translates a human date phrase ("wczoraj", "wtorek",
// "10 czerwca") into a calendar date relative to today. Weekdays resolve
// to the most recent past occurrence.
func ParseHumanDate(text string, today time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(lower, "dzisiaj"):
		return today, true
	case strings.Contains(lower, "wczoraj") && !strings.Contains(lower, "przedwczoraj"):
		return today.AddDate(0, 0, -1), true
	case strings.Contains(lower, "przedwczoraj"):
		return today.AddDate(0, 0, -2), true
	}

	// Weekday, possibly prefixed with filler words ("w zeszły wtorek").
	var kept []string
	for _, word := range strings.Fields(lower) {
		switch word {
		case "ostatni", "ostatnia", "zeszły", "zeszła", "w", "we", "z":
		default:
			kept = append(kept, word)
		}
	}
	dayText := strings.Join(kept, " ")
	if wd, ok := polishWeekdays[dayText]; ok {
		daysAgo := (int(today.Weekday()) - int(wd) + 7) % 7
		if daysAgo == 0 {
			daysAgo = 7
		}
		return today.AddDate(0, 0, -daysAgo), true
	}

	// "10 czerwca" style, anywhere in the text.
	if m := dayMonthRe.FindStringSubmatch(lower); m != nil {
		if month, ok := polishMonthsGenitive[m[2]]; ok {
			day, err := strconv.Atoi(m[1])
			if err == nil && day >= 1 && day <= 31 {
				d := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
				if d.Day() == day {
					return d, true
				}
			}
		}
	}

	return time.Time{}, false
}
