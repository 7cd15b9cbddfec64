package models

// TimeOfDayPreference is the preferred part of the day for meetings.
type TimeOfDayPreference string

const (
	TimeOfDayMorning   TimeOfDayPreference = "morning"
	TimeOfDayAfternoon TimeOfDayPreference = "afternoon"
	TimeOfDayEvening   TimeOfDayPreference = "evening"
	TimeOfDayAny       TimeOfDayPreference = "any"
	TimeOfDayNone      TimeOfDayPreference = "none"
)

// DayDistribution expresses how meetings should be spread across the week.
type DayDistribution string

const (
	DayDistributionSpread  DayDistribution = "spread"
	DayDistributionCompact DayDistribution = "compact"
	DayDistributionNone    DayDistribution = "none"
)

// SchedulePreferences are the student's soft scheduling wishes.
type SchedulePreferences struct {
	TimeOfDay       TimeOfDayPreference `json:"timeOfDay" validate:"omitempty,oneof=morning afternoon evening any none"`
	AvoidFriday     bool                `json:"avoidFriday"`
	AvoidBackToBack bool                `json:"avoidBackToBack"`
	DayDistribution DayDistribution     `json:"dayDistribution" validate:"omitempty,oneof=spread compact none"`
}

// DefaultPreferences returns preferences that constrain nothing.
func DefaultPreferences() SchedulePreferences {
	return SchedulePreferences{
		TimeOfDay:       TimeOfDayAny,
		DayDistribution: DayDistributionNone,
	}
}
