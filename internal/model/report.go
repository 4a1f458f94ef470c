package model

import "time"

// DailyReport is the once-per-day DSR summary persisted for a user.
// At most one report exists per (user_id, report_date).
type DailyReport struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	// ReportDate is the calendar day in YYYY-MM-DD form, local to the
	// submitting user.
	ReportDate string `json:"report_date" db:"report_date"`

	AssignedToday  int `json:"assigned_today" db:"assigned_today"`
	TotalCases     int `json:"total_cases" db:"total_cases"`
	CompletedToday int `json:"completed_today" db:"completed_today"`
	CompletedTotal int `json:"completed_total" db:"completed_total"`
	RemainingOpen  int `json:"remaining_open" db:"remaining_open"`

	// CompletedCases is the delimited list of candidate names completed
	// on the report day.
	CompletedCases string `json:"completed_cases,omitempty" db:"completed_cases"`

	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// DailyCounters holds the five DSR counters recomputed from a case list.
type DailyCounters struct {
	AssignedToday  int      `json:"assigned_today"`
	TotalCases     int      `json:"total_cases"`
	CompletedToday int      `json:"completed_today"`
	CompletedTotal int      `json:"completed_total"`
	RemainingOpen  int      `json:"remaining_open"`
	CompletedNames []string `json:"completed_names,omitempty"`
}
