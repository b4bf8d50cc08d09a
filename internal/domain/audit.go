package domain

import "time"

type AuditEventType string

const (
	AuditTokenIssued       AuditEventType = "token.issued"
	AuditDelegationCreated AuditEventType = "delegation.created"
	AuditInvocationDecided AuditEventType = "invocation.decided"
)

type AuditResult string

const (
	AuditResultOK     AuditResult = "ok"
	AuditResultDenied AuditResult = "denied"
	AuditResultError  AuditResult = "error"
)

// AuditEvent records one issuance, delegation or authorization outcome.
type AuditEvent struct {
	ID        string
	EventType AuditEventType
	TokenID   string
	PlanHash  string
	SubjectID string
	Action    string
	Result    AuditResult
	Reason    string
	Payload   map[string]any
	CreatedAt time.Time
}
