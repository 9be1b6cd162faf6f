package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRange is a resolved start/end pair. End is never before Start.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TimeDefaults controls the times assumed when a listing omits them.
type TimeDefaults struct {
	StartHour      int           // start of a single-day event with no time
	StartMinute    int           //
	Duration       time.Duration // show length when no end time is given
	RangeStartHour int           // start hour of a multi-day range with no time
}

// DefaultTimeDefaults returns the evening-show defaults: 19:00 start, three
// hour shows, and noon for the first day of a multi-day range.
func DefaultTimeDefaults() TimeDefaults {
	return TimeDefaults{
		StartHour:      19,
		Duration:       3 * time.Hour,
		RangeStartHour: 12,
	}
}

// Normalizer converts free-text dates into concrete DateRanges.
type Normalizer struct {
	Defaults TimeDefaults
	Location *time.Location
	// Now anchors the year for listings that omit it.
	Now func() time.Time
}

// NewNormalizer creates a Normalizer. A nil location means time.Local.
func NewNormalizer(defaults TimeDefaults, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	if defaults.Duration <= 0 {
		defaults.Duration = DefaultTimeDefaults().Duration
	}
	return &Normalizer{
		Defaults: defaults,
		Location: loc,
		Now:      time.Now,
	}
}

// NormalizeDate parses dateText with the default times in the local zone.
// Returns nil if no date could be recognized.
func NormalizeDate(dateText string) *DateRange {
	return NewNormalizer(DefaultTimeDefaults(), time.Local).Normalize(dateText)
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

const rangeSep = `\s*(?:-|to|through|until)\s*`

var (
	ordinalRe = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)

	// 2025-07-15, optionally followed by a time
	isoRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2})(?::\d{2}(?:\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?`)
	isoZoneRe = regexp.MustCompile(`^[+-]\d{4}$`)

	// July 15, 2025 / July 15-16, 2025 / July 16 - August 2, 2025
	monthDayYearRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:` + rangeSep + `(?:` + monthPattern + `\.?\s+)?(\d{1,2}))?\b(?:,\s*|\s+)(\d{4})\b`)

	// 7/15/2025 or 7/15/25
	numericRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`)

	// July 15 / July 15-16 with no year
	monthDayRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+(\d{1,2})(?:` + rangeSep + `(?:` + monthPattern + `\.?\s+)?(\d{1,2}))?\b`)

	// 15 July 2025
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+` + monthPattern + `\.?,?\s+(\d{4})\b`)

	// 7-10pm / 8:00 PM - 11:00 PM
	timeRange12Re = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])?\.?(?:m\.?)?` + rangeSep + `(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\.?(?:[^a-z]|$)`)
	time12Re      = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\.?(?:[^a-z]|$)`)
	time24Re      = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	time24RangeRe = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)` + rangeSep + `([01]?\d|2[0-3]):([0-5]\d)\b`)
	showRe        = regexp.MustCompile(`(?i)\bshow(?:time)?s?\b`)
)

// genericLayouts are the last-resort layouts tried against the whole string.
var genericLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"Monday January 2 2006",
	"Mon Jan 2 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006/01/02",
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

type clock struct {
	hour, minute int
}

// dayMatch is the calendar part of a parsed date string.
type dayMatch struct {
	start, end time.Time // midnight in the normalizer's location
	startClock *clock
	endClock   *clock
	span       [2]int // byte offsets of the matched text
}

// Normalize resolves text into a DateRange, or nil if it is unparseable.
//
// Recognized shapes, tried in order: ISO YYYY-MM-DD, "Month Day, Year"
// (with optional day range), numeric M/D/Y, "Month Day" with the year
// inferred, and finally a generic parse of the whole string.
func (n *Normalizer) Normalize(text string) *DateRange {
	cleaned := cleanDateText(text)
	if cleaned == "" {
		return nil
	}

	m := n.matchISO(cleaned)
	if m == nil {
		m = n.matchMonthDayYear(cleaned)
	}
	if m == nil {
		m = n.matchNumeric(cleaned)
	}
	if m == nil {
		m = n.matchMonthDay(cleaned)
	}
	if m == nil {
		m = n.matchGeneric(cleaned)
	}
	if m == nil {
		return nil
	}

	// Scan for times outside the date itself so day numbers are never read as hours.
	rest := cleaned[:m.span[0]] + " " + cleaned[m.span[1]:]
	if m.startClock == nil {
		m.startClock, m.endClock = parseTimes(rest)
	}

	return n.resolve(m)
}

func (n *Normalizer) resolve(m *dayMatch) *DateRange {
	d := n.Defaults
	startDay, endDay := m.start, m.end
	if endDay.IsZero() || endDay.Before(startDay) {
		endDay = startDay
	}
	multiDay := endDay.After(startDay)

	var start time.Time
	switch {
	case m.startClock != nil:
		start = n.at(startDay, *m.startClock)
	case multiDay:
		start = n.at(startDay, clock{hour: d.RangeStartHour})
	default:
		start = n.at(startDay, clock{hour: d.StartHour, minute: d.StartMinute})
	}

	var end time.Time
	switch {
	case multiDay && m.endClock != nil:
		end = n.at(endDay, *m.endClock)
	case multiDay:
		end = time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 23, 59, 59, 0, n.Location)
	case m.endClock != nil:
		end = n.at(startDay, *m.endClock)
		if end.Before(start) {
			// 10pm - 2am runs past midnight
			end = end.AddDate(0, 0, 1)
		}
	default:
		end = start.Add(d.Duration)
	}

	if end.Before(start) {
		end = start.Add(d.Duration)
	}

	return &DateRange{Start: start, End: end}
}

func (n *Normalizer) at(day time.Time, c clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, n.Location)
}

func (n *Normalizer) day(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, n.Location)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func (n *Normalizer) matchISO(s string) *dayMatch {
	all := isoRe.FindAllStringSubmatchIndex(s, 2)
	if len(all) == 0 {
		return nil
	}

	parse := func(idx []int) (time.Time, *clock, bool) {
		year, _ := strconv.Atoi(s[idx[2]:idx[3]])
		month, _ := strconv.Atoi(s[idx[4]:idx[5]])
		dd, _ := strconv.Atoi(s[idx[6]:idx[7]])
		day, ok := n.day(year, time.Month(month), dd)
		if !ok {
			return time.Time{}, nil, false
		}
		if idx[8] < 0 {
			return day, nil, true
		}
		if idx[12] >= 0 {
			// Explicit zone: convert the instant into the venue's location.
			if t, ok := parseISOInstant(s[idx[0]:idx[1]]); ok {
				t = t.In(n.Location)
				return n.at(t, clock{}), &clock{hour: t.Hour(), minute: t.Minute()}, true
			}
		}
		hh, _ := strconv.Atoi(s[idx[8]:idx[9]])
		mm, _ := strconv.Atoi(s[idx[10]:idx[11]])
		if hh > 23 || mm > 59 {
			return day, nil, true
		}
		return day, &clock{hour: hh, minute: mm}, true
	}

	start, startClock, ok := parse(all[0])
	if !ok {
		return nil
	}
	m := &dayMatch{start: start, startClock: startClock, span: [2]int{all[0][0], all[0][1]}}
	if len(all) > 1 {
		if end, endClock, ok := parse(all[1]); ok {
			m.end = end
			m.endClock = endClock
			m.span[1] = all[1][1]
		}
	}
	if m.startClock == nil {
		m.endClock = nil
	}
	return m
}

func parseISOInstant(s string) (time.Time, bool) {
	s = strings.Replace(s, " ", "T", 1)
	if i := strings.LastIndexAny(s, "+-"); i > 10 && isoZoneRe.MatchString(s[i:]) {
		s = s[:i+3] + ":" + s[i+3:]
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (n *Normalizer) matchMonthDayYear(s string) *dayMatch {
	idx := monthDayYearRe.FindStringSubmatchIndex(s)
	if idx == nil {
		return nil
	}
	sub := submatches(s, idx)
	year, _ := strconv.Atoi(sub[5])
	return n.monthDay(sub[1], sub[2], sub[3], sub[4], year, true, idx)
}

func (n *Normalizer) matchMonthDay(s string) *dayMatch {
	idx := monthDayRe.FindStringSubmatchIndex(s)
	if idx == nil {
		return nil
	}
	sub := submatches(s, idx)

	// No year given: take the next occurrence of that day.
	now := n.Now().In(n.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.Location)
	m := n.monthDay(sub[1], sub[2], sub[3], sub[4], now.Year(), false, idx)
	if m == nil {
		return nil
	}
	if m.start.Before(today) {
		return n.monthDay(sub[1], sub[2], sub[3], sub[4], now.Year()+1, false, idx)
	}
	return m
}

// monthDay builds a match from "Month Day[-[Month] Day]". The end day borrows
// month and year from the start when they are not repeated. When the year was
// written after a range that wraps into January, it belongs to the end.
func (n *Normalizer) monthDay(monthText, dayText, endMonthText, endDayText string, year int, yearIsEnd bool, idx []int) *dayMatch {
	month := parseMonth(monthText)
	dd, _ := strconv.Atoi(dayText)

	endMonth := month
	if endMonthText != "" {
		endMonth = parseMonth(endMonthText)
	}
	startYear, endYear := year, year
	if endMonth < month {
		if yearIsEnd {
			startYear--
		} else {
			endYear++
		}
	}

	start, ok := n.day(startYear, month, dd)
	if !ok {
		return nil
	}
	m := &dayMatch{start: start, span: [2]int{idx[0], idx[1]}}
	if endDayText != "" {
		endDD, _ := strconv.Atoi(endDayText)
		if end, ok := n.day(endYear, endMonth, endDD); ok {
			m.end = end
		}
	}
	return m
}

func (n *Normalizer) matchNumeric(s string) *dayMatch {
	all := numericRe.FindAllStringSubmatchIndex(s, 2)
	if len(all) == 0 {
		return nil
	}
	parse := func(idx []int) (time.Time, bool) {
		sub := submatches(s, idx)
		month, _ := strconv.Atoi(sub[1])
		dd, _ := strconv.Atoi(sub[2])
		year, _ := strconv.Atoi(sub[3])
		if len(sub[3]) == 2 {
			year += 2000
		}
		return n.day(year, time.Month(month), dd)
	}
	start, ok := parse(all[0])
	if !ok {
		return nil
	}
	m := &dayMatch{start: start, span: [2]int{all[0][0], all[0][1]}}
	if len(all) > 1 {
		if end, ok := parse(all[1]); ok {
			m.end = end
			m.span[1] = all[1][1]
		}
	}
	return m
}

func (n *Normalizer) matchGeneric(s string) *dayMatch {
	if idx := dayMonthYearRe.FindStringSubmatchIndex(s); idx != nil {
		sub := submatches(s, idx)
		dd, _ := strconv.Atoi(sub[1])
		year, _ := strconv.Atoi(sub[3])
		if day, ok := n.day(year, parseMonth(sub[2]), dd); ok {
			return &dayMatch{start: day, span: [2]int{idx[0], idx[1]}}
		}
	}

	for _, layout := range genericLayouts {
		t, err := time.ParseInLocation(layout, s, n.Location)
		if err != nil {
			continue
		}
		t = t.In(n.Location)
		m := &dayMatch{start: n.at(t, clock{}), span: [2]int{0, len(s)}}
		if t.Hour() != 0 || t.Minute() != 0 {
			m.startClock = &clock{hour: t.Hour(), minute: t.Minute()}
		}
		return m
	}
	return nil
}

// parseTimes finds a start and optional end time of day in s.
func parseTimes(s string) (start, end *clock) {
	if sub := timeRange12Re.FindStringSubmatch(s); sub != nil {
		endClock, ok := to24(sub[4], sub[5], sub[6])
		if ok {
			meridiem := sub[3]
			if meridiem == "" {
				meridiem = sub[6]
			}
			startClock, ok := to24(sub[1], sub[2], meridiem)
			if ok && sub[3] == "" && startClock.hour > endClock.hour {
				// "11-2pm" starts in the morning
				startClock, ok = to24(sub[1], sub[2], "a")
			}
			if ok {
				return &startClock, &endClock
			}
		}
	}

	if sub := time24RangeRe.FindStringSubmatch(s); sub != nil {
		startClock := clockOf(sub[1], sub[2])
		endClock := clockOf(sub[3], sub[4])
		return &startClock, &endClock
	}

	// Separate times without a range ("Doors 7pm, Show 8pm") give only a
	// start; the show time wins over the first time listed.
	if loc := showRe.FindStringIndex(s); loc != nil {
		if sub := time12Re.FindStringSubmatch(s[loc[1]:]); sub != nil {
			if c, ok := to24(sub[1], sub[2], sub[3]); ok {
				return &c, nil
			}
		}
	}

	if sub := time12Re.FindStringSubmatch(s); sub != nil {
		if c, ok := to24(sub[1], sub[2], sub[3]); ok {
			return &c, nil
		}
	}

	if sub := time24Re.FindStringSubmatch(s); sub != nil {
		c := clockOf(sub[1], sub[2])
		return &c, nil
	}

	return nil, nil
}

func clockOf(hourText, minuteText string) clock {
	h, _ := strconv.Atoi(hourText)
	m, _ := strconv.Atoi(minuteText)
	return clock{hour: h, minute: m}
}

// to24 converts a 12-hour clock reading. An empty meridiem means 24-hour.
func to24(hourText, minuteText, meridiem string) (clock, bool) {
	h, err := strconv.Atoi(hourText)
	if err != nil {
		return clock{}, false
	}
	m := 0
	if minuteText != "" {
		m, _ = strconv.Atoi(minuteText)
	}
	if m > 59 {
		return clock{}, false
	}

	switch strings.ToLower(meridiem) {
	case "a":
		if h < 1 || h > 12 {
			return clock{}, false
		}
		if h == 12 {
			h = 0
		}
	case "p":
		if h < 1 || h > 12 {
			return clock{}, false
		}
		if h < 12 {
			h += 12
		}
	default:
		if h > 23 {
			return clock{}, false
		}
	}
	return clock{hour: h, minute: m}, true
}

// FindDateText returns the first date-shaped substring of text, or "".
// Looks for "July 15, 2025", "2025-07-15", "7/15/2025" and "Jul 15".
func FindDateText(text string) string {
	text = cleanDateText(text)
	for _, re := range []*regexp.Regexp{monthDayYearRe, isoRe, numericRe, dayMonthYearRe, monthDayRe} {
		if match := re.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

func cleanDateText(s string) string {
	s = strings.NewReplacer("–", "-", "—", "-", "‑", "-", "−", "-").Replace(s)
	s = ordinalRe.ReplaceAllString(s, "$1")
	return strings.Join(strings.Fields(s), " ")
}

func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0
	}
	return monthNames[name[:3]]
}

func submatches(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}
