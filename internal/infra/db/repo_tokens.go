package db

import (
	"context"
	"errors"
	"time"

	"intentd/internal/domain"

	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token domain.IntentToken) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := tokenModelFromDomain(token)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TokenRepository) GetByID(ctx context.Context, tokenID string) (*domain.IntentToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model IntentTokenModel
	err := r.db.WithContext(ctx).Where("id = ?", tokenID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	token, err := tokenFromModel(model)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteExpired removes tokens whose validity window ended before the
// cutoff. Expiry is what actually invalidates a token; this is
// retention housekeeping.
func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&IntentTokenModel{})
	return res.RowsAffected, res.Error
}

func tokenModelFromDomain(token domain.IntentToken) (IntentTokenModel, error) {
	actions, err := actionsToJSON(token.Policy.AllowedActions)
	if err != nil {
		return IntentTokenModel{}, err
	}
	proofs, err := proofsToJSON(token.StepProofs)
	if err != nil {
		return IntentTokenModel{}, err
	}
	return IntentTokenModel{
		ID:               token.TokenID,
		PlanHash:         token.PlanHash,
		MerkleRoot:       copyBytes(token.MerkleRoot),
		SubjectUserID:    token.Subject.UserID,
		SubjectAgentID:   token.Subject.AgentID,
		SubjectContextID: token.Subject.ContextID,
		SubjectID:        token.Subject.CompositeID(),
		AllowedActions:   actions,
		IssuedAt:         token.IssuedAt.UTC(),
		ExpiresAt:        token.ExpiresAt.UTC(),
		Signature:        token.Signature,
		StepProofs:       proofs,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

func tokenFromModel(model IntentTokenModel) (domain.IntentToken, error) {
	actions, err := actionsFromJSON(model.AllowedActions)
	if err != nil {
		return domain.IntentToken{}, err
	}
	proofs, err := proofsFromJSON(model.StepProofs)
	if err != nil {
		return domain.IntentToken{}, err
	}
	return domain.IntentToken{
		TokenID:    model.ID,
		PlanHash:   model.PlanHash,
		MerkleRoot: copyBytes(model.MerkleRoot),
		Subject: domain.Subject{
			UserID:    model.SubjectUserID,
			AgentID:   model.SubjectAgentID,
			ContextID: model.SubjectContextID,
		},
		Policy:     domain.Policy{AllowedActions: actions},
		IssuedAt:   model.IssuedAt.UTC(),
		ExpiresAt:  model.ExpiresAt.UTC(),
		Signature:  model.Signature,
		StepProofs: proofs,
	}, nil
}
