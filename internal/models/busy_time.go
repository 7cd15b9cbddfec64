package models

// BusyTimeType tags a busy time for display; it never affects conflict logic.
type BusyTimeType string

const (
	BusyTimeWork     BusyTimeType = "work"
	BusyTimeStudy    BusyTimeType = "study"
	BusyTimePersonal BusyTimeType = "personal"
	BusyTimeClass    BusyTimeType = "class"
	BusyTimeMeeting  BusyTimeType = "meeting"
	BusyTimeEvent    BusyTimeType = "event"
	BusyTimeReminder BusyTimeType = "reminder"
	BusyTimeOther    BusyTimeType = "other"
)

// BusyTime is a recurring commitment declared by the student.
type BusyTime struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Type      BusyTimeType `json:"type"`
	Days      []Day        `json:"days"`
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	TermID    string       `json:"termId,omitempty"`
}

// Clone returns a deep copy of the busy time.
func (b BusyTime) Clone() BusyTime {
	out := b
	out.Days = append([]Day(nil), b.Days...)
	return out
}

// CloneBusyTimes deep-copies a busy time list.
func CloneBusyTimes(items []BusyTime) []BusyTime {
	if items == nil {
		return nil
	}
	out := make([]BusyTime, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
