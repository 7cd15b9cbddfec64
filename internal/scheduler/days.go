package scheduler

import (
	"fmt"
	"strings"

	"github.com/noah-isme/course-planner-api/internal/models"
)

var dayAliases = map[string]models.Day{
	"monday": models.DayMonday, "mon": models.DayMonday,
	"tuesday": models.DayTuesday, "tue": models.DayTuesday, "tues": models.DayTuesday,
	"wednesday": models.DayWednesday, "wed": models.DayWednesday,
	"thursday": models.DayThursday, "thu": models.DayThursday, "thur": models.DayThursday, "thurs": models.DayThursday,
	"friday": models.DayFriday, "fri": models.DayFriday,
	"saturday": models.DaySaturday, "sat": models.DaySaturday,
	"sunday": models.DaySunday, "sun": models.DaySunday,
}

// DaysOverlap reports whether two day lists share at least one day.
func DaysOverlap(a, b []models.Day) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for _, left := range a {
		for _, right := range b {
			if left == right {
				return true
			}
		}
	}
	return false
}

func firstSharedDay(a, b []models.Day) models.Day {
	for _, day := range models.Weekdays {
		if containsDay(a, day) && containsDay(b, day) {
			return day
		}
	}
	return ""
}

func containsDay(days []models.Day, target models.Day) bool {
	for _, day := range days {
		if day == target {
			return true
		}
	}
	return false
}

// ParseDays reads catalog day strings such as "MWF", "TTh", "SaSu",
// "M, W" or "Monday/Wednesday". Banner style R (Thursday) and U (Sunday)
// are accepted. The result is de-duplicated and in calendar order.
func ParseDays(raw string) ([]models.Day, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '/' || r == ';' || r == '|'
	})
	seen := make(map[models.Day]bool)
	for _, field := range fields {
		if day, ok := dayAliases[strings.ToLower(field)]; ok {
			seen[day] = true
			continue
		}
		days, err := parseCompactDays(field)
		if err != nil {
			return nil, err
		}
		for _, day := range days {
			seen[day] = true
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}
	result := make([]models.Day, 0, len(seen))
	for _, day := range models.Weekdays {
		if seen[day] {
			result = append(result, day)
		}
	}
	return result, nil
}

func parseCompactDays(token string) ([]models.Day, error) {
	var days []models.Day
	for i := 0; i < len(token); {
		rest := token[i:]
		switch {
		case strings.HasPrefix(rest, "Th"):
			days = append(days, models.DayThursday)
			i += 2
		case strings.HasPrefix(rest, "Tu"):
			days = append(days, models.DayTuesday)
			i += 2
		case strings.HasPrefix(rest, "Sa"):
			days = append(days, models.DaySaturday)
			i += 2
		case strings.HasPrefix(rest, "Su"):
			days = append(days, models.DaySunday)
			i += 2
		default:
			switch rest[0] {
			case 'M':
				days = append(days, models.DayMonday)
			case 'T':
				days = append(days, models.DayTuesday)
			case 'W':
				days = append(days, models.DayWednesday)
			case 'R':
				days = append(days, models.DayThursday)
			case 'F':
				days = append(days, models.DayFriday)
			case 'S':
				days = append(days, models.DaySaturday)
			case 'U':
				days = append(days, models.DaySunday)
			default:
				return nil, fmt.Errorf("unknown day code %q in %q", rest[:1], token)
			}
			i++
		}
	}
	return days, nil
}
