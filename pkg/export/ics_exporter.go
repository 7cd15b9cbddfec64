package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsProductID = "-//course-planner-api//timetable//EN"

// RecurringEvent is a weekly block placed on a calendar. Minutes are counted
// from midnight in the exporter's location.
type RecurringEvent struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Weekdays    []time.Weekday
	StartMinute int
	EndMinute   int
}

// Calendar is the input to ICSExporter.Render.
type Calendar struct {
	Name   string
	Events []RecurringEvent
	// Anchor is the first day the recurrence may start on.
	Anchor time.Time
	Weeks  int
}

// ICSExporter renders weekly recurring events as an iCalendar document.
type ICSExporter struct {
	loc *time.Location
}

// NewICSExporter builds an exporter placing events in loc (UTC when nil).
func NewICSExporter(loc *time.Location) *ICSExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &ICSExporter{loc: loc}
}

// Render serialises the calendar. Each event starts on its first weekday on
// or after the anchor and repeats for the requested number of weeks.
func (e *ICSExporter) Render(cal Calendar) ([]byte, error) {
	if cal.Weeks <= 0 {
		return nil, fmt.Errorf("calendar requires a positive week count")
	}
	anchor := cal.Anchor.In(e.loc)
	anchor = time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, e.loc)
	stamp := cal.Anchor.UTC()

	out := ics.NewCalendar()
	out.SetMethod(ics.MethodPublish)
	out.SetProductId(icsProductID)
	if cal.Name != "" {
		out.SetName(cal.Name)
	}

	for _, ev := range cal.Events {
		if len(ev.Weekdays) == 0 {
			return nil, fmt.Errorf("event %s has no weekdays", ev.UID)
		}
		if ev.EndMinute <= ev.StartMinute {
			return nil, fmt.Errorf("event %s ends before it starts", ev.UID)
		}
		days := sortedWeekdays(ev.Weekdays, anchor.Weekday())
		first := anchor.AddDate(0, 0, daysUntil(anchor.Weekday(), days[0]))

		vevent := out.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(ev.Summary)
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		vevent.SetStartAt(first.Add(time.Duration(ev.StartMinute) * time.Minute))
		vevent.SetEndAt(first.Add(time.Duration(ev.EndMinute) * time.Minute))
		vevent.AddRrule(fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;COUNT=%d", byDay(days), cal.Weeks*len(days)))
	}
	return []byte(out.Serialize()), nil
}

// sortedWeekdays orders days by distance from the anchor weekday so the
// first element is the earliest occurrence.
func sortedWeekdays(days []time.Weekday, from time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return daysUntil(from, out[i]) < daysUntil(from, out[j])
	})
	return out
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

var icsDayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

func byDay(days []time.Weekday) string {
	codes := make([]string, len(days))
	for i, d := range days {
		codes[i] = icsDayCodes[d]
	}
	return strings.Join(codes, ",")
}
