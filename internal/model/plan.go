package model

import "time"

// PlanEntry is one row of a user's ordered day plan. Snapshot columns are
// refreshed from the live case on every case-change event; the plan itself
// is never authoritative for case state.
type PlanEntry struct {
	UserID        string     `json:"user_id" db:"user_id"`
	Position      int        `json:"position" db:"position"`
	CaseID        string     `json:"case_id" db:"case_id"`
	ReferenceNo   string     `json:"reference_no" db:"reference_no"`
	CandidateName string     `json:"candidate_name" db:"candidate_name"`
	Status        CaseStatus `json:"status" db:"status"`
	AddedAt       time.Time  `json:"added_at" db:"added_at"`
}

// AddPlanEntryRequest appends a case to the plan.
type AddPlanEntryRequest struct {
	CaseID string `json:"case_id"`
}

// ReorderPlanRequest replaces the plan order with the given case id
// sequence. Ids absent from the plan are ignored.
type ReorderPlanRequest struct {
	CaseIDs []string `json:"case_ids"`
}
