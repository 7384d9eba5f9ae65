package matching

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrUnknownTimeline = errors.New("unknown possession timeline")

// monthNames holds whole month names and their common abbreviations only.
var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

var namedMonthPattern = regexp.MustCompile(`\b([a-z]{3,9})[\s\-/,.']*(\d{2,4})\b`)

// ParsePossession turns a loosely formatted possession date into a year and month.
// Accepted shapes: MM-YY, MM-YYYY, DD-MM-YYYY, YYYY-MM, YYYY-MM-DD, a bare year
// (read as December), and month names ("Dec 2027"). "/" is tried before "-".
// Ready-to-move markers are not dates and report false.
func ParsePossession(raw string) (YearMonth, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || IsReadyMarker(s) {
		return YearMonth{}, false
	}

	if m := namedMonthPattern.FindStringSubmatch(s); m != nil {
		if month, ok := monthFromName(m[1]); ok {
			if year, ok := parseYear(m[2]); ok {
				return YearMonth{Year: year, Month: month}, true
			}
		}
	}

	for _, sep := range []string{"/", "-", "."} {
		if !strings.Contains(s, sep) {
			continue
		}
		if ym, ok := parseNumericParts(strings.Split(s, sep)); ok {
			return ym, true
		}
	}

	if len(s) == 4 {
		if year, ok := parseYear(s); ok {
			return YearMonth{Year: year, Month: 12}, true
		}
	}
	return YearMonth{}, false
}

func parseNumericParts(parts []string) (YearMonth, bool) {
	nums := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return YearMonth{}, false
		}
		if _, err := strconv.Atoi(p); err != nil {
			return YearMonth{}, false
		}
		nums = append(nums, p)
	}

	var monthStr, yearStr string
	switch len(nums) {
	case 2:
		if len(nums[0]) == 4 {
			yearStr, monthStr = nums[0], nums[1]
		} else {
			monthStr, yearStr = nums[0], nums[1]
		}
	case 3:
		if len(nums[0]) == 4 {
			yearStr, monthStr = nums[0], nums[1]
		} else {
			monthStr, yearStr = nums[1], nums[2]
		}
	default:
		return YearMonth{}, false
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, false
	}
	year, ok := parseYear(yearStr)
	if !ok {
		return YearMonth{}, false
	}
	return YearMonth{Year: year, Month: month}, true
}

func parseYear(s string) (int, bool) {
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	switch len(s) {
	case 2:
		y += 2000
	case 4:
	default:
		return 0, false
	}
	if y < 2000 || y > 2100 {
		return 0, false
	}
	return y, true
}

func monthFromName(name string) (int, bool) {
	m, ok := monthNames[name]
	return m, ok
}

// IsReadyMarker reports whether a status or possession string means the unit can be occupied now.
func IsReadyMarker(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "rtm" || s == "immediate" || s == "completed" {
		return true
	}
	return strings.Contains(s, "ready")
}

// PossessionWindow is an (exclusive From, inclusive To] range of possession months.
// Ready windows also accept listings flagged ready-to-move without a date.
type PossessionWindow struct {
	Ready bool
	From  *YearMonth
	To    *YearMonth
}

const (
	TimelineReady     = "ready"
	TimelineThreeSix  = "3-6"
	TimelineSixTwelve = "6-12"
	TimelineOneTwo    = "1-2"
	TimelineTwoPlus   = "2plus"
)

var timelineAliases = map[string]string{
	"ready":         TimelineReady,
	"ready-to-move": TimelineReady,
	"rtm":           TimelineReady,
	"immediate":     TimelineReady,
	"3-6":           TimelineThreeSix,
	"3-6-months":    TimelineThreeSix,
	"6-12":          TimelineSixTwelve,
	"6-12-months":   TimelineSixTwelve,
	"1-2":           TimelineOneTwo,
	"1-2-years":     TimelineOneTwo,
	"2plus":         TimelineTwoPlus,
	"2-plus":        TimelineTwoPlus,
	"2+":            TimelineTwoPlus,
	"2-years-plus":  TimelineTwoPlus,
	"2plus-years":   TimelineTwoPlus,
}

func canonicalTimeline(bucket string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(bucket))
	key = strings.ReplaceAll(key, " ", "-")
	v, ok := timelineAliases[key]
	return v, ok
}

func IsTimeline(bucket string) bool {
	_, ok := canonicalTimeline(bucket)
	return ok
}

// ParseTimeline converts a wizard timeline bucket into a window relative to now.
func ParseTimeline(bucket string, now time.Time) (PossessionWindow, error) {
	canonical, ok := canonicalTimeline(bucket)
	if !ok {
		return PossessionWindow{}, ErrUnknownTimeline
	}
	cur := YearMonthOf(now)
	window := func(fromMonths, toMonths int) PossessionWindow {
		from := cur.AddMonths(fromMonths)
		w := PossessionWindow{From: &from}
		if toMonths > 0 {
			to := cur.AddMonths(toMonths)
			w.To = &to
		}
		return w
	}

	switch canonical {
	case TimelineReady:
		return PossessionWindow{Ready: true, To: &cur}, nil
	case TimelineThreeSix:
		return window(0, 6), nil
	case TimelineSixTwelve:
		return window(6, 12), nil
	case TimelineOneTwo:
		return window(12, 24), nil
	default:
		return window(24, 0), nil
	}
}

// Contains reports whether a listing with the given possession month (if known)
// and ready flag falls inside the window.
func (w PossessionWindow) Contains(at YearMonth, known, ready bool) bool {
	if w.Ready && ready {
		return true
	}
	if !known {
		return false
	}
	if w.From != nil && at.Compare(*w.From) <= 0 {
		return false
	}
	if w.To != nil && at.Compare(*w.To) > 0 {
		return false
	}
	return true
}
