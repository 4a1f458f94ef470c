// Package model provides data models for field-verification case management.
package model

import (
	"strings"
	"time"
)

// CaseStatus represents the lifecycle state of a verification case.
type CaseStatus string

const (
	StatusOpen      CaseStatus = "open"
	StatusAssigned  CaseStatus = "assigned"
	StatusReverted  CaseStatus = "reverted"
	StatusAudit     CaseStatus = "audit"
	StatusCompleted CaseStatus = "completed"
)

// VerificationType represents the kind of field check a case covers.
type VerificationType string

const (
	VerificationAddress    VerificationType = "address"
	VerificationEmployment VerificationType = "employment"
	VerificationEducation  VerificationType = "education"
	VerificationReference  VerificationType = "reference"
)

// PhotoCategory identifies one required photo deliverable of a case.
type PhotoCategory string

const (
	PhotoSelfie    PhotoCategory = "selfie"
	PhotoHouse     PhotoCategory = "house"
	PhotoStreet    PhotoCategory = "street"
	PhotoNameplate PhotoCategory = "nameplate"
	PhotoLandmark  PhotoCategory = "landmark"
	PhotoDocument  PhotoCategory = "document"

	// RedoForm is the pseudo-category selecting the filled form for redo.
	RedoForm PhotoCategory = "form"
)

// PhotoCategories lists the fixed photo deliverable enumeration, without
// the form pseudo-category.
var PhotoCategories = []PhotoCategory{
	PhotoSelfie, PhotoHouse, PhotoStreet, PhotoNameplate, PhotoLandmark, PhotoDocument,
}

// Valid reports whether the category is a known redo selection: one of
// the fixed photo categories or the form pseudo-category.
func (c PhotoCategory) Valid() bool {
	if c == RedoForm {
		return true
	}
	for _, known := range PhotoCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the capitalized display label for a category.
func (c PhotoCategory) Label() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Case represents a single field-verification job.
type Case struct {
	ID          string           `json:"id" db:"id"`
	ReferenceNo string           `json:"reference_no" db:"reference_no"` // Human-readable reference (e.g. FV-2026-0001)
	Type        VerificationType `json:"type" db:"type"`
	Status      CaseStatus       `json:"status" db:"status"`

	// Subject of the verification
	CandidateName string `json:"candidate_name" db:"candidate_name"`
	Address       string `json:"address,omitempty" db:"address"`
	ClientName    string `json:"client_name,omitempty" db:"client_name"`

	// Assignment
	AssignedTo string     `json:"assigned_to,omitempty" db:"assigned_to"`
	AssignedAt *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`

	// Evidence
	Photos        map[PhotoCategory]string `json:"photos,omitempty"` // category -> asset URL
	FilledFormRef string                   `json:"filled_form_ref,omitempty" db:"filled_form_ref"`
	FilledFormURL string                   `json:"filled_form_url,omitempty" db:"filled_form_url"`
	FormCompleted bool                     `json:"form_completed" db:"form_completed"`
	PhotoReportURL string                  `json:"photo_report_url,omitempty" db:"photo_report_url"`

	// Audit stage
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	AuditFeedback string          `json:"audit_feedback,omitempty" db:"audit_feedback"`
	PhotosToRedo  []PhotoCategory `json:"photos_to_redo,omitempty"`

	// Completion
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty" db:"finalized_at"`
	FinalizedBy string     `json:"finalized_by,omitempty" db:"finalized_by"`

	// Audit trail
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
}

// CreateCaseRequest represents a request to create a new case.
type CreateCaseRequest struct {
	ReferenceNo   string           `json:"reference_no"`
	Type          VerificationType `json:"type"`
	CandidateName string           `json:"candidate_name"`
	Address       string           `json:"address,omitempty"`
	ClientName    string           `json:"client_name,omitempty"`
	AssignedTo    string           `json:"assigned_to,omitempty"`
}

// UpdateCaseRequest represents a partial-field update of a case. Nil
// pointers leave the field untouched.
type UpdateCaseRequest struct {
	CandidateName  *string                  `json:"candidate_name,omitempty"`
	Address        *string                  `json:"address,omitempty"`
	Photos         map[PhotoCategory]string `json:"photos,omitempty"` // merged per category
	FilledFormRef  *string                  `json:"filled_form_ref,omitempty"`
	FilledFormURL  *string                  `json:"filled_form_url,omitempty"`
	FormCompleted  *bool                    `json:"form_completed,omitempty"`
	PhotoReportURL *string                  `json:"photo_report_url,omitempty"`
}

// RevertCaseRequest selects the deliverables an auditor wants redone.
type RevertCaseRequest struct {
	SelectedRedoItems []PhotoCategory `json:"selected_redo_items"`
	Reason            string          `json:"reason,omitempty"`
}

// ApproveCaseRequest carries the recipient selection for the approval mail.
type ApproveCaseRequest struct {
	To string   `json:"to"`
	CC []string `json:"cc,omitempty"`
}

// CaseFilter defines filters for listing cases.
type CaseFilter struct {
	AssignedTo string       `json:"assigned_to,omitempty"`
	Status     []CaseStatus `json:"status,omitempty"`
	Search     string       `json:"search,omitempty"`
	Limit      int          `json:"limit,omitempty"`
	Offset     int          `json:"offset,omitempty"`
	SortBy     string       `json:"sort_by,omitempty"`
	SortOrder  string       `json:"sort_order,omitempty"` // asc, desc
}

// CaseListResult contains paginated case results.
type CaseListResult struct {
	Cases   []*Case `json:"cases"`
	Total   int64   `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	HasMore bool    `json:"has_more"`
}
