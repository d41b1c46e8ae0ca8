package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/mehdiakbarifar/chavosh/internal/attach"
	"github.com/mehdiakbarifar/chavosh/internal/chat"
	"github.com/mehdiakbarifar/chavosh/internal/email"
	"github.com/mehdiakbarifar/chavosh/internal/identity"
	"github.com/mehdiakbarifar/chavosh/internal/registry"
)

// Service ties the identity registry, the message log, and attachment
// storage together behind the approval gate. Every caller-facing method
// takes the caller's claimed email and enforces the gate before acting.
type Service struct {
	registry     *registry.Registry
	log          *chat.Log
	attachments  attach.Store
	verifier     identity.Verifier
	notifier     *email.Service
	adminPageURL string
}

func NewService(reg *registry.Registry, msgLog *chat.Log, attachments attach.Store, verifier identity.Verifier, notifier *email.Service, adminPageURL string) *Service {
	return &Service{
		registry:     reg,
		log:          msgLog,
		attachments:  attachments,
		verifier:     verifier,
		notifier:     notifier,
		adminPageURL: adminPageURL,
	}
}

// VerifyResult is the outcome of an identity verification.
type VerifyResult struct {
	Email    identity.Identity
	Name     string
	State    registry.State
	Approved bool
}

// VerifyIdentity checks the provider assertion, records the identity in
// the registry, and tells the caller whether they are through the gate.
// The first time an unapproved identity shows up, the admin gets a
// notification email.
func (s *Service) VerifyIdentity(ctx context.Context, assertion string) (VerifyResult, error) {
	claims, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		return VerifyResult{}, domainError(http.StatusUnauthorized, "INVALID_ASSERTION", "Identity assertion rejected", nil)
	}

	id, err := identity.Canonicalize(claims.Email)
	if err != nil {
		return VerifyResult{}, domainError(http.StatusUnauthorized, "INVALID_ASSERTION", "Identity assertion rejected", nil)
	}

	state, firstSeen, err := s.registry.RequestAccess(ctx, id)
	if err != nil {
		return VerifyResult{}, err
	}

	if firstSeen && state == registry.StatePending {
		s.notifyAdmin(id)
	}

	return VerifyResult{
		Email:    id,
		Name:     claims.Name,
		State:    state,
		Approved: state == registry.StateApproved,
	}, nil
}

func (s *Service) notifyAdmin(requestEmail identity.Identity) {
	if s.notifier == nil || !s.notifier.IsConfigured() || s.registry.Admin() == "" {
		return
	}
	admin := string(s.registry.Admin())
	go func() {
		if err := s.notifier.SendApprovalRequest(admin, string(requestEmail), s.adminPageURL); err != nil {
			log.Printf("email: approval request notification failed: %v", err)
		}
	}()
}

// Messages returns the full ordered log for an approved caller.
func (s *Service) Messages(caller string) ([]chat.Message, error) {
	if err := s.requireApproved(caller); err != nil {
		return nil, err
	}
	messages := s.log.List()
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}

// PostText appends a text message authored by the caller.
func (s *Service) PostText(ctx context.Context, caller, html, plain string) (chat.Message, error) {
	author, err := s.approvedIdentity(caller)
	if err != nil {
		return chat.Message{}, err
	}
	msg, err := s.log.PostText(string(author), html, plain)
	if err != nil {
		return chat.Message{}, mapChatError(err)
	}
	return msg, nil
}

// PostLegacy accepts a raw body in one of the older producer shapes and
// appends the normalized text message.
func (s *Service) PostLegacy(ctx context.Context, caller string, raw []byte) (chat.Message, error) {
	if err := s.requireApproved(caller); err != nil {
		return chat.Message{}, err
	}
	msg, err := chat.DecodeLegacy(raw)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return chat.Message{}, mapChatError(err)
		}
		return chat.Message{}, domainError(http.StatusBadRequest, "INVALID_BODY", "Unrecognized message body", nil)
	}
	s.log.Append(msg)
	return msg, nil
}

// Upload stores the attachment and appends the file message in one step.
func (s *Service) Upload(ctx context.Context, caller string, r io.Reader, originalName, mimeType string) (chat.Message, error) {
	author, err := s.approvedIdentity(caller)
	if err != nil {
		return chat.Message{}, err
	}
	if r == nil || originalName == "" {
		return chat.Message{}, domainError(http.StatusBadRequest, "NO_FILE", "No file uploaded", nil)
	}

	ref, size, err := s.attachments.Save(ctx, r, originalName)
	if err != nil {
		return chat.Message{}, err
	}

	msg, err := s.log.PostFile(string(author), chat.FileInfo{
		Ref:      ref,
		URL:      s.attachments.URL(ref),
		Name:     originalName,
		Size:     size,
		MimeType: mimeType,
	})
	if err != nil {
		// The attachment is orphaned if the append fails; reclaim it.
		if rmErr := s.attachments.Remove(ctx, ref); rmErr != nil {
			log.Printf("attach: orphan cleanup failed for %s: %v", ref, rmErr)
		}
		return chat.Message{}, mapChatError(err)
	}
	return msg, nil
}

// OpenAttachment streams a stored attachment to an approved caller.
func (s *Service) OpenAttachment(ctx context.Context, caller, ref string) (io.ReadCloser, error) {
	if err := s.requireApproved(caller); err != nil {
		return nil, err
	}
	rc, err := s.attachments.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, attach.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Attachment not found", nil)
		}
		return nil, err
	}
	return rc, nil
}

// DeleteMessage removes one message and its attachment.
func (s *Service) DeleteMessage(ctx context.Context, caller, id string) error {
	if err := s.requireApproved(caller); err != nil {
		return err
	}
	if err := s.log.DeleteOne(ctx, id); err != nil {
		return mapChatError(err)
	}
	return nil
}

// DeleteAllMessages clears the log and every attachment.
func (s *Service) DeleteAllMessages(ctx context.Context, caller string) error {
	if err := s.requireApproved(caller); err != nil {
		return err
	}
	s.log.DeleteAll(ctx)
	return nil
}

// PendingIdentities lists identities waiting for approval. Admin only.
func (s *Service) PendingIdentities(caller string) ([]string, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	pending := s.registry.Pending()
	if pending == nil {
		pending = []string{}
	}
	return pending, nil
}

// ApprovedIdentities lists identities through the gate. Admin only.
func (s *Service) ApprovedIdentities(caller string) ([]string, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	approved := s.registry.Approved()
	if approved == nil {
		approved = []string{}
	}
	return approved, nil
}

// ApproveIdentity moves an identity into the approved set. Admin only.
func (s *Service) ApproveIdentity(ctx context.Context, caller, target string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.registry.Approve(ctx, target); err != nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required", nil)
	}
	return nil
}

// DenyIdentity removes a pending identity. Admin only.
func (s *Service) DenyIdentity(ctx context.Context, caller, target string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.registry.Deny(ctx, target); err != nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email is required", nil)
	}
	return nil
}

func (s *Service) approvedIdentity(caller string) (identity.Identity, error) {
	id, err := identity.Canonicalize(caller)
	if err != nil {
		return "", errNotApproved()
	}
	if !s.registry.IsApproved(id) && !s.registry.IsAdmin(id) {
		return "", errNotApproved()
	}
	return id, nil
}

func (s *Service) requireApproved(caller string) error {
	_, err := s.approvedIdentity(caller)
	return err
}

func (s *Service) requireAdmin(caller string) error {
	id, err := identity.Canonicalize(caller)
	if err != nil || !s.registry.IsAdmin(id) {
		return domainError(http.StatusForbidden, "UNAUTHORIZED", "Admin access required", nil)
	}
	return nil
}

func errNotApproved() *DomainError {
	return domainError(http.StatusForbidden, "UNAUTHORIZED", "Identity not approved", nil)
}

func mapChatError(err error) error {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return domainError(http.StatusUnprocessableEntity, "EMPTY_MESSAGE", "Message is empty", nil)
	case errors.Is(err, chat.ErrNoFile):
		return domainError(http.StatusBadRequest, "NO_FILE", "No file uploaded", nil)
	case errors.Is(err, chat.ErrNotFound):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Message not found", nil)
	}
	return err
}
