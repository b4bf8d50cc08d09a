package usecase

import (
	"context"
	"log"
	"time"

	"intentd/internal/domain"

	"github.com/google/uuid"
)

// AuditEmitter appends audit events best-effort: an audit write failure
// is logged but never fails the operation that produced the event.
type AuditEmitter struct {
	Repo  AuditEventRepository
	Now   func() time.Time
	NewID func() string
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) {
	if e == nil || e.Repo == nil {
		return
	}
	if event.ID == "" {
		event.ID = e.newID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now()
	}
	if _, err := e.Repo.Append(ctx, event); err != nil {
		log.Printf("audit append failed: event=%s token=%s err=%v", event.EventType, event.TokenID, err)
	}
}

func (e *AuditEmitter) TokenIssued(ctx context.Context, token domain.IntentToken) {
	e.Emit(ctx, domain.AuditEvent{
		EventType: domain.AuditTokenIssued,
		TokenID:   token.TokenID,
		PlanHash:  token.PlanHash,
		SubjectID: token.Subject.CompositeID(),
		Result:    domain.AuditResultOK,
	})
}

func (e *AuditEmitter) DelegationCreated(ctx context.Context, token domain.DelegationToken) {
	e.Emit(ctx, domain.AuditEvent{
		EventType: domain.AuditDelegationCreated,
		TokenID:   token.ParentTokenID,
		PlanHash:  token.PlanHash,
		Result:    domain.AuditResultOK,
		Payload: map[string]any{
			"delegation_id": token.DelegationID,
			"depth":         token.Depth,
		},
	})
}

func (e *AuditEmitter) InvocationDecided(ctx context.Context, tokenID, planHash, action string, decision domain.Decision) {
	result := domain.AuditResultOK
	if !decision.Allowed {
		result = domain.AuditResultDenied
	}
	e.Emit(ctx, domain.AuditEvent{
		EventType: domain.AuditInvocationDecided,
		TokenID:   tokenID,
		PlanHash:  planHash,
		Action:    action,
		Result:    result,
		Reason:    string(decision.Reason),
	})
}

func (e *AuditEmitter) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *AuditEmitter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}
