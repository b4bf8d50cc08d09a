package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"intentd/internal/domain"
	"intentd/internal/usecase"

	"github.com/gin-gonic/gin"
)

type issueRequest struct {
	Plan            planPayload    `json:"plan"`
	Subject         subjectPayload `json:"subject"`
	Actions         []string       `json:"actions"`
	ValiditySeconds int            `json:"validity_seconds"`
	NoCache         bool           `json:"no_cache,omitempty"`
}

type issueResponse struct {
	Token  tokenPayload `json:"token"`
	Cached bool         `json:"cached"`
}

func (s *Server) handleIssue(c *gin.Context) {
	if !s.requireAPIKey(c) {
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	ucReq := usecase.IssueTokenRequest{
		Plan:     planFromPayload(req.Plan),
		Subject:  subjectFromPayload(req.Subject),
		Actions:  req.Actions,
		Validity: time.Duration(req.ValiditySeconds) * time.Second,
	}

	var (
		token  *domain.IntentToken
		cached bool
		err    error
	)
	if s.cache != nil && !req.NoCache {
		token, cached, err = s.cache.GetOrIssue(c.Request.Context(), ucReq)
	} else {
		token, err = s.authority.Issue(c.Request.Context(), ucReq)
	}
	if err != nil {
		writeIssueError(c, err)
		return
	}
	c.JSON(http.StatusOK, issueResponse{Token: tokenToPayload(*token), Cached: cached})
}

type delegateRequest struct {
	ParentToken       tokenPayload `json:"parent_token"`
	DelegatePublicKey string       `json:"delegate_public_key"`
	Actions           []string     `json:"actions"`
	ValiditySeconds   int          `json:"validity_seconds"`
}

func (s *Server) handleDelegate(c *gin.Context) {
	if !s.requireAPIKey(c) {
		return
	}
	var req delegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	parent, err := tokenFromPayload(req.ParentToken)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TOKEN_ENCODING", err.Error())
		return
	}
	delegateKey, err := base64.StdEncoding.DecodeString(req.DelegatePublicKey)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_KEY_ENCODING", "delegate_public_key must be base64")
		return
	}

	token, err := s.delegations.Delegate(c.Request.Context(), usecase.DelegateRequest{
		Parent:            parent,
		DelegatePublicKey: delegateKey,
		Actions:           req.Actions,
		Validity:          time.Duration(req.ValiditySeconds) * time.Second,
	})
	if err != nil {
		writeDelegationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delegation": delegationToPayload(*token)})
}

type redelegateRequest struct {
	ParentDelegation  delegationPayload `json:"parent_delegation"`
	DelegatePublicKey string            `json:"delegate_public_key"`
	Actions           []string          `json:"actions"`
	ValiditySeconds   int               `json:"validity_seconds"`
}

func (s *Server) handleRedelegate(c *gin.Context) {
	if !s.requireAPIKey(c) {
		return
	}
	var req redelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	parent, err := delegationFromPayload(req.ParentDelegation)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_TOKEN_ENCODING", err.Error())
		return
	}
	delegateKey, err := base64.StdEncoding.DecodeString(req.DelegatePublicKey)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_KEY_ENCODING", "delegate_public_key must be base64")
		return
	}

	token, err := s.delegations.Redelegate(c.Request.Context(), usecase.RedelegateRequest{
		Parent:            parent,
		DelegatePublicKey: delegateKey,
		Actions:           req.Actions,
		Validity:          time.Duration(req.ValiditySeconds) * time.Second,
	})
	if err != nil {
		writeDelegationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delegation": delegationToPayload(*token)})
}

type authorizeRequest struct {
	Token     tokenPayload `json:"token"`
	Action    string       `json:"action"`
	StepIndex int          `json:"step_index"`
	Step      stepPayload  `json:"step"`
}

type authorizeResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (s *Server) handleAuthorize(c *gin.Context) {
	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	token, err := tokenFromPayload(req.Token)
	if err != nil {
		// a token that cannot be decoded is indistinguishable from a forged one
		c.JSON(http.StatusOK, authorizeResponse{Allowed: false, Reason: string(domain.DenyInvalidToken)})
		return
	}
	decision := s.authorizeUC.Authorize(c.Request.Context(), usecase.AuthorizeRequest{
		Token:     token,
		Action:    req.Action,
		StepIndex: req.StepIndex,
		Step:      domain.Step{Action: req.Step.Action, MCP: req.Step.MCP, Params: req.Step.Params},
	})
	c.JSON(http.StatusOK, authorizeResponse{Allowed: decision.Allowed, Reason: string(decision.Reason)})
}

type authorizeDelegatedRequest struct {
	Delegation delegationPayload `json:"delegation"`
	Action     string            `json:"action"`
	StepIndex  int               `json:"step_index"`
	Step       stepPayload       `json:"step"`
}

func (s *Server) handleAuthorizeDelegated(c *gin.Context) {
	var req authorizeDelegatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	token, err := delegationFromPayload(req.Delegation)
	if err != nil {
		c.JSON(http.StatusOK, authorizeResponse{Allowed: false, Reason: string(domain.DenyInvalidToken)})
		return
	}
	decision := s.authorizeUC.AuthorizeDelegated(c.Request.Context(), usecase.AuthorizeDelegatedRequest{
		Token:     token,
		Action:    req.Action,
		StepIndex: req.StepIndex,
		Step:      domain.Step{Action: req.Step.Action, MCP: req.Step.MCP, Params: req.Step.Params},
	})
	c.JSON(http.StatusOK, authorizeResponse{Allowed: decision.Allowed, Reason: string(decision.Reason)})
}

type auditEventPayload struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	TokenID   string         `json:"token_id"`
	PlanHash  string         `json:"plan_hash,omitempty"`
	SubjectID string         `json:"subject_id,omitempty"`
	Action    string         `json:"action,omitempty"`
	Result    string         `json:"result"`
	Reason    string         `json:"reason,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func (s *Server) handleTokenAudit(c *gin.Context) {
	if !s.requireAPIKey(c) {
		return
	}
	if s.audit == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_AUDIT_STORE", "audit store not configured")
		return
	}
	events, err := s.audit.ListByToken(c.Request.Context(), c.Param("token_id"))
	if err != nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "failed to list audit events")
		return
	}
	out := make([]auditEventPayload, 0, len(events))
	for _, event := range events {
		out = append(out, auditEventPayload{
			ID:        event.ID,
			EventType: string(event.EventType),
			TokenID:   event.TokenID,
			PlanHash:  event.PlanHash,
			SubjectID: event.SubjectID,
			Action:    event.Action,
			Result:    string(event.Result),
			Reason:    event.Reason,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeIssueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCanonicalize):
		writeErrorCode(c, http.StatusBadRequest, "NOT_CANONICALIZABLE", err.Error())
	case errors.Is(err, domain.ErrPolicyRejected):
		writeErrorCode(c, http.StatusForbidden, "POLICY_REJECTED", err.Error())
	case errors.Is(err, domain.ErrCacheIssuance):
		writeErrorCode(c, http.StatusInternalServerError, "ISSUANCE_FAILED", err.Error())
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeDelegationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDelegationScope):
		writeErrorCode(c, http.StatusBadRequest, "DELEGATION_SCOPE_VIOLATION", err.Error())
	case errors.Is(err, domain.ErrDelegationDepth):
		writeErrorCode(c, http.StatusBadRequest, "DELEGATION_DEPTH_EXCEEDED", err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_EXPIRED", err.Error())
	case errors.Is(err, domain.ErrTokenSignatureInvalid), errors.Is(err, domain.ErrTokenMalformed):
		writeErrorCode(c, http.StatusUnauthorized, "INVALID_TOKEN", err.Error())
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
