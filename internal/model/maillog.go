package model

import "time"

// MailLogEntry is one append-only record of a delivered approval mail.
// One entry is expected per successful case approval.
type MailLogEntry struct {
	ID          string    `json:"id" db:"id"`
	CaseID      string    `json:"case_id" db:"case_id"`
	ReferenceNo string    `json:"reference_no" db:"reference_no"`
	Subject     string    `json:"subject" db:"subject"`
	Recipient   string    `json:"recipient" db:"recipient"`
	CC          string    `json:"cc,omitempty" db:"cc"`
	Channel     string    `json:"channel" db:"channel"`
	SentAt      time.Time `json:"sent_at" db:"sent_at"`
	SentBy      string    `json:"sent_by" db:"sent_by"`
}
