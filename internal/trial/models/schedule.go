package models

import "time"

// TrialHoursFor picks the trial length for a join at t: 120 hours when t falls on
// a Saturday or Sunday after shifting by offsetHours, 72 otherwise.
func TrialHoursFor(t time.Time, offsetHours float64) int {
	local := t.UTC().Add(time.Duration(offsetHours * float64(time.Hour)))
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return WeekendTrialHours
	default:
		return WeekdayTrialHours
	}
}

// ReminderOffsets are the reminder points after join for each trial length.
func ReminderOffsets(totalHours int) []time.Duration {
	switch totalHours {
	case WeekdayTrialHours:
		return []time.Duration{24 * time.Hour, 48 * time.Hour}
	case WeekendTrialHours:
		return []time.Duration{24 * time.Hour, 72 * time.Hour, 96 * time.Hour}
	default:
		return nil
	}
}

// NewActiveTrial builds the record for a join at joinTime.
func NewActiveTrial(userID UserID, joinTime time.Time, offsetHours float64) *ActiveTrial {
	hours := TrialHoursFor(joinTime, offsetHours)
	return &ActiveTrial{
		UserID:     userID,
		JoinTime:   joinTime.UTC(),
		TotalHours: hours,
		TrialEndAt: joinTime.UTC().Add(time.Duration(hours) * time.Hour),
	}
}
