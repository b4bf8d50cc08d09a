package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"intentd/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)

	var payloadJSON []byte
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return domain.AuditEvent{}, err
		}
		payloadJSON = raw
	}

	model := AuditEventModel{
		ID:          event.ID,
		EventType:   string(event.EventType),
		TokenID:     event.TokenID,
		PlanHash:    event.PlanHash,
		SubjectID:   event.SubjectID,
		Action:      event.Action,
		Result:      string(event.Result),
		Reason:      event.Reason,
		PayloadJSON: payloadJSON,
		CreatedAt:   event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEvent{}, err
	}
	return event, nil
}

func (r *AuditEventRepository) ListByToken(ctx context.Context, tokenID string) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		event, err := auditEventFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func auditEventFromModel(model AuditEventModel) (domain.AuditEvent, error) {
	var payload map[string]any
	if len(model.PayloadJSON) > 0 {
		if err := json.Unmarshal(model.PayloadJSON, &payload); err != nil {
			return domain.AuditEvent{}, err
		}
	}
	return domain.AuditEvent{
		ID:        model.ID,
		EventType: domain.AuditEventType(model.EventType),
		TokenID:   model.TokenID,
		PlanHash:  model.PlanHash,
		SubjectID: model.SubjectID,
		Action:    model.Action,
		Result:    domain.AuditResult(model.Result),
		Reason:    model.Reason,
		Payload:   payload,
		CreatedAt: model.CreatedAt.UTC(),
	}, nil
}
