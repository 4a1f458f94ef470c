// Package service provides business logic for field-verification case
// management.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldverify-platform/caseflow/internal/apperrors"
	"github.com/fieldverify-platform/caseflow/internal/dispatch"
	"github.com/fieldverify-platform/caseflow/internal/model"
	"github.com/fieldverify-platform/caseflow/internal/watch"
)

// CaseStore is the case persistence surface the service depends on.
type CaseStore interface {
	Create(ctx context.Context, c *model.Case) error
	Get(ctx context.Context, id string) (*model.Case, error)
	Update(ctx context.Context, c *model.Case) error
	Complete(ctx context.Context, id, finalizedBy string, at time.Time) error
	List(ctx context.Context, filter *model.CaseFilter) (*model.CaseListResult, error)
	ListByAssignee(ctx context.Context, userID string) ([]*model.Case, error)
}

// MailLogStore appends sent-mail audit entries.
type MailLogStore interface {
	Append(ctx context.Context, entry *model.MailLogEntry) error
}

// Dispatcher delivers approval mail through the channel chain.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *dispatch.Message) (*dispatch.Result, error)
}

// EventPublisher emits case-change events to the live feed.
type EventPublisher interface {
	Publish(ctx context.Context, ev *watch.CaseEvent)
}

// CaseService provides case lifecycle operations.
type CaseService struct {
	store      CaseStore
	mailLog    MailLogStore
	dispatcher Dispatcher
	events     EventPublisher
	fromAddr   string
	logger     *slog.Logger
}

// NewCaseService creates a new case service.
func NewCaseService(store CaseStore, mailLog MailLogStore, dispatcher Dispatcher, events EventPublisher, fromAddr string, logger *slog.Logger) *CaseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaseService{
		store:      store,
		mailLog:    mailLog,
		dispatcher: dispatcher,
		events:     events,
		fromAddr:   fromAddr,
		logger:     logger,
	}
}

// CreateCase creates a new verification case. A case created with an
// assignee starts assigned; otherwise it starts open.
func (s *CaseService) CreateCase(ctx context.Context, req *model.CreateCaseRequest, actor model.Actor) (*model.Case, error) {
	if req.CandidateName == "" {
		return nil, apperrors.Validation("candidate name is required")
	}
	if req.Type == "" {
		return nil, apperrors.Validation("verification type is required")
	}

	now := time.Now()

	referenceNo := req.ReferenceNo
	if referenceNo == "" {
		referenceNo = generateReferenceNo(now)
	}

	caseObj := &model.Case{
		ID:            uuid.New().String(),
		ReferenceNo:   referenceNo,
		Type:          req.Type,
		Status:        model.StatusOpen,
		CandidateName: req.CandidateName,
		Address:       req.Address,
		ClientName:    req.ClientName,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     actor.Attribution(),
	}

	if req.AssignedTo != "" {
		caseObj.Status = model.StatusAssigned
		caseObj.AssignedTo = req.AssignedTo
		caseObj.AssignedAt = &now
	}

	if err := s.store.Create(ctx, caseObj); err != nil {
		return nil, err
	}

	s.publish(ctx, caseObj, "created", actor)
	return caseObj, nil
}

// GetCase retrieves a case by ID.
func (s *CaseService) GetCase(ctx context.Context, id string) (*model.Case, error) {
	return s.store.Get(ctx, id)
}

// ListCases retrieves cases matching the filter.
func (s *CaseService) ListCases(ctx context.Context, filter *model.CaseFilter) (*model.CaseListResult, error) {
	return s.store.List(ctx, filter)
}

// UpdateCase applies a partial evidence/detail update. Photo updates
// merge per category and clear the category's redo mark.
func (s *CaseService) UpdateCase(ctx context.Context, id string, req *model.UpdateCaseRequest, actor model.Actor) (*model.Case, error) {
	caseObj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if caseObj.Status == model.StatusCompleted {
		return nil, apperrors.Conflict("completed cases are read-only")
	}

	if req.CandidateName != nil {
		caseObj.CandidateName = *req.CandidateName
	}
	if req.Address != nil {
		caseObj.Address = *req.Address
	}
	if len(req.Photos) > 0 {
		if caseObj.Photos == nil {
			caseObj.Photos = make(map[model.PhotoCategory]string)
		}
		for category, assetURL := range req.Photos {
			caseObj.Photos[category] = assetURL
			caseObj.PhotosToRedo = removeCategory(caseObj.PhotosToRedo, category)
		}
	}
	if req.FilledFormRef != nil {
		caseObj.FilledFormRef = *req.FilledFormRef
	}
	if req.FilledFormURL != nil {
		caseObj.FilledFormURL = *req.FilledFormURL
	}
	if req.FormCompleted != nil {
		caseObj.FormCompleted = *req.FormCompleted
		if *req.FormCompleted {
			caseObj.PhotosToRedo = removeCategory(caseObj.PhotosToRedo, model.RedoForm)
		}
	}
	if req.PhotoReportURL != nil {
		caseObj.PhotoReportURL = *req.PhotoReportURL
	}

	caseObj.UpdatedAt = time.Now()
	caseObj.UpdatedBy = actor.Attribution()

	if err := s.store.Update(ctx, caseObj); err != nil {
		return nil, err
	}

	s.publish(ctx, caseObj, "updated", actor)
	return caseObj, nil
}

// AssignCase moves an open case to a field user.
func (s *CaseService) AssignCase(ctx context.Context, id, assignee string, actor model.Actor) (*model.Case, error) {
	if assignee == "" {
		return nil, apperrors.Validation("assignee is required")
	}

	caseObj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if caseObj.Status != model.StatusOpen {
		return nil, apperrors.Conflict(fmt.Sprintf("case cannot be assigned from status %q", caseObj.Status))
	}

	now := time.Now()
	caseObj.Status = model.StatusAssigned
	caseObj.AssignedTo = assignee
	caseObj.AssignedAt = &now
	caseObj.UpdatedAt = now
	caseObj.UpdatedBy = actor.Attribution()

	if err := s.store.Update(ctx, caseObj); err != nil {
		return nil, err
	}

	s.publish(ctx, caseObj, "assigned", actor)
	return caseObj, nil
}

// SubmitCase moves an assigned case into the audit stage. The filled form
// must be complete before submission.
func (s *CaseService) SubmitCase(ctx context.Context, id string, actor model.Actor) (*model.Case, error) {
	caseObj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if caseObj.Status != model.StatusAssigned {
		return nil, apperrors.Conflict(fmt.Sprintf("case cannot be submitted from status %q", caseObj.Status))
	}
	if !caseObj.FormCompleted {
		return nil, apperrors.Validation("verification form must be completed before submission")
	}

	now := time.Now()
	caseObj.Status = model.StatusAudit
	caseObj.SubmittedAt = &now
	caseObj.UpdatedAt = now
	caseObj.UpdatedBy = actor.Attribution()

	if err := s.store.Update(ctx, caseObj); err != nil {
		return nil, err
	}

	s.publish(ctx, caseObj, "submitted", actor)
	return caseObj, nil
}

// RevertCase sends a case back to its assignee with a redo selection.
// With no explicit reason, one is synthesized from the selected category
// labels. Selected photo categories are cleared so the assignee must
// recapture them; selecting the form clears the filled-form reference.
func (s *CaseService) RevertCase(ctx context.Context, id string, req *model.RevertCaseRequest, actor model.Actor) (*model.Case, error) {
	if len(req.SelectedRedoItems) == 0 && strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.Validation("a redo selection or a reason is required")
	}
	for _, category := range req.SelectedRedoItems {
		if !category.Valid() {
			return nil, apperrors.Validation(fmt.Sprintf("unknown redo category %q", category))
		}
	}

	caseObj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if caseObj.Status != model.StatusAudit {
		return nil, apperrors.Conflict(fmt.Sprintf("case cannot be reverted from status %q", caseObj.Status))
	}

	caseObj.AuditFeedback = RevertReason(req.Reason, req.SelectedRedoItems)
	caseObj.Status = model.StatusAssigned
	caseObj.CompletedAt = nil
	caseObj.SubmittedAt = nil

	for _, category := range req.SelectedRedoItems {
		if category == model.RedoForm {
			caseObj.FilledFormRef = ""
			caseObj.FilledFormURL = ""
			caseObj.FormCompleted = false
		} else {
			delete(caseObj.Photos, category)
		}
		caseObj.PhotosToRedo = appendCategory(caseObj.PhotosToRedo, category)
	}

	now := time.Now()
	caseObj.UpdatedAt = now
	caseObj.UpdatedBy = actor.Attribution()

	if err := s.store.Update(ctx, caseObj); err != nil {
		return nil, err
	}

	s.publish(ctx, caseObj, "reverted", actor)
	return caseObj, nil
}

// ApprovalResult reports how an approval attempt concluded.
type ApprovalResult struct {
	Case     *model.Case      `json:"case"`
	Dispatch *dispatch.Result `json:"dispatch"`
}

// ApproveCase runs the approval workflow: build the notification mail
// with case-linked attachments, walk the delivery chain, and on confirmed
// delivery complete the case and append a mail-log entry. A handed-off
// outcome leaves the case in audit awaiting explicit confirmation.
func (s *CaseService) ApproveCase(ctx context.Context, id string, req *model.ApproveCaseRequest, actor model.Actor) (*ApprovalResult, error) {
	if req.To == "" {
		return nil, apperrors.Validation("recipient address is required")
	}

	caseObj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if caseObj.Status != model.StatusAudit {
		return nil, apperrors.Conflict(fmt.Sprintf("case cannot be approved from status %q", caseObj.Status))
	}

	msg := s.buildApprovalMail(caseObj, req)

	result, err := s.dispatcher.Dispatch(ctx, msg)
	if err != nil {
		return nil, err
	}

	if result.Outcome == dispatch.OutcomeDelivered {
		completed, err := s.completeCase(ctx, caseObj, msg, result.Channel, actor)
		if err != nil {
			return nil, err
		}
		return &ApprovalResult{Case: completed, Dispatch: result}, nil
	}

	// Handed off: no delivery confirmation, the case stays in audit.
	return &ApprovalResult{Case: caseObj, Dispatch: result}, nil
}

// ConfirmDispatch records a user's confirmation that a handed-off
// approval mail was actually sent, and completes the case.
func (s *CaseService) ConfirmDispatch(ctx context.Context, id string, req *model.ApproveCaseRequest, actor model.Actor) (*model.Case, error) {
	if req.To == "" {
		return nil, apperrors.Validation("recipient address is required")
	}

	caseObj, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if caseObj.Status != model.StatusAudit {
		return nil, apperrors.Conflict(fmt.Sprintf("case cannot be confirmed from status %q", caseObj.Status))
	}

	msg := s.buildApprovalMail(caseObj, req)
	return s.completeCase(ctx, caseObj, msg, "compose", actor)
}

// completeCase performs the completion side effect: conditional status
// transition, then a best-effort mail-log append that never blocks or
// undoes the transition.
func (s *CaseService) completeCase(ctx context.Context, caseObj *model.Case, msg *dispatch.Message, channel string, actor model.Actor) (*model.Case, error) {
	now := time.Now()

	if err := s.store.Complete(ctx, caseObj.ID, actor.Attribution(), now); err != nil {
		return nil, err
	}

	entry := &model.MailLogEntry{
		ID:          uuid.New().String(),
		CaseID:      caseObj.ID,
		ReferenceNo: caseObj.ReferenceNo,
		Subject:     msg.Subject,
		Recipient:   msg.To,
		CC:          strings.Join(msg.CC, ", "),
		Channel:     channel,
		SentAt:      now,
		SentBy:      actor.Attribution(),
	}
	if err := s.mailLog.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append mail log entry",
			"case_id", caseObj.ID,
			"error", err,
		)
	}

	caseObj.Status = model.StatusCompleted
	caseObj.CompletedAt = &now
	caseObj.FinalizedAt = &now
	caseObj.FinalizedBy = actor.Attribution()
	caseObj.UpdatedAt = now
	caseObj.UpdatedBy = actor.Attribution()

	s.publish(ctx, caseObj, "completed", actor)
	return caseObj, nil
}

func (s *CaseService) buildApprovalMail(caseObj *model.Case, req *model.ApproveCaseRequest) *dispatch.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear Sir/Madam,\n\n")
	fmt.Fprintf(&b, "Please find the verification report for the following case.\n\n")
	fmt.Fprintf(&b, "Reference No: %s\n", caseObj.ReferenceNo)
	fmt.Fprintf(&b, "Candidate: %s\n", caseObj.CandidateName)
	fmt.Fprintf(&b, "Verification Type: %s\n", caseObj.Type)
	if caseObj.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", caseObj.Address)
	}
	fmt.Fprintf(&b, "\nRegards,\nField Verification Team\n")

	msg := &dispatch.Message{
		From:    s.fromAddr,
		To:      req.To,
		CC:      req.CC,
		Subject: fmt.Sprintf("Verification Report - %s - %s", caseObj.ReferenceNo, caseObj.CandidateName),
		Body:    b.String(),
	}

	if caseObj.PhotoReportURL != "" {
		msg.Attachments = append(msg.Attachments, dispatch.Attachment{
			Filename: fmt.Sprintf("%s-photo-report.pdf", caseObj.ReferenceNo),
			URL:      caseObj.PhotoReportURL,
		})
	}
	if caseObj.FilledFormURL != "" {
		msg.Attachments = append(msg.Attachments, dispatch.Attachment{
			Filename: fmt.Sprintf("%s-verification-form.pdf", caseObj.ReferenceNo),
			URL:      caseObj.FilledFormURL,
		})
	}

	return msg
}

func (s *CaseService) publish(ctx context.Context, caseObj *model.Case, action string, actor model.Actor) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, &watch.CaseEvent{
		CaseID:     caseObj.ID,
		AssignedTo: caseObj.AssignedTo,
		Status:     caseObj.Status,
		Action:     action,
		Actor:      actor.Attribution(),
		OccurredAt: time.Now(),
	})
}

// RevertReason returns the audit feedback for a revert: the literal
// reason when one is given, otherwise a synthesized line joining the
// capitalized labels of the selected redo categories.
func RevertReason(reason string, selected []model.PhotoCategory) string {
	reason = strings.TrimSpace(reason)
	if reason != "" {
		return reason
	}
	if len(selected) == 0 {
		return ""
	}

	labels := make([]string, len(selected))
	for i, category := range selected {
		labels[i] = category.Label()
	}
	return "Redo required: " + strings.Join(labels, ", ")
}

func generateReferenceNo(now time.Time) string {
	return fmt.Sprintf("FV-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.New().String()[:8]))
}

func removeCategory(categories []model.PhotoCategory, target model.PhotoCategory) []model.PhotoCategory {
	out := categories[:0]
	for _, c := range categories {
		if c != target {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func appendCategory(categories []model.PhotoCategory, target model.PhotoCategory) []model.PhotoCategory {
	for _, c := range categories {
		if c == target {
			return categories
		}
	}
	return append(categories, target)
}
