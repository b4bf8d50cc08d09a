package db

import (
	"context"
	"errors"
	"time"

	"intentd/internal/domain"

	"gorm.io/gorm"
)

type DelegationRepository struct {
	db *gorm.DB
}

func NewDelegationRepository(db *gorm.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

func (r *DelegationRepository) Create(ctx context.Context, token domain.DelegationToken) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := delegationModelFromDomain(token)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *DelegationRepository) GetByID(ctx context.Context, delegationID string) (*domain.DelegationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DelegationModel
	err := r.db.WithContext(ctx).Where("id = ?", delegationID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	token, err := delegationFromModel(model)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *DelegationRepository) ListByParent(ctx context.Context, parentTokenID string) ([]domain.DelegationToken, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DelegationModel
	if err := r.db.WithContext(ctx).
		Where("parent_token_id = ?", parentTokenID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DelegationToken, 0, len(models))
	for _, model := range models {
		token, err := delegationFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, token)
	}
	return out, nil
}

func delegationModelFromDomain(token domain.DelegationToken) (DelegationModel, error) {
	actions, err := actionsToJSON(token.AllowedActions)
	if err != nil {
		return DelegationModel{}, err
	}
	proofs, err := proofsToJSON(token.StepProofs)
	if err != nil {
		return DelegationModel{}, err
	}
	return DelegationModel{
		ID:                token.DelegationID,
		ParentTokenID:     token.ParentTokenID,
		DelegatePublicKey: copyBytes(token.DelegatePublicKey),
		AllowedActions:    actions,
		PlanHash:          token.PlanHash,
		MerkleRoot:        copyBytes(token.MerkleRoot),
		IssuedAt:          token.IssuedAt.UTC(),
		ExpiresAt:         token.ExpiresAt.UTC(),
		Depth:             token.Depth,
		Signature:         token.Signature,
		StepProofs:        proofs,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

func delegationFromModel(model DelegationModel) (domain.DelegationToken, error) {
	actions, err := actionsFromJSON(model.AllowedActions)
	if err != nil {
		return domain.DelegationToken{}, err
	}
	proofs, err := proofsFromJSON(model.StepProofs)
	if err != nil {
		return domain.DelegationToken{}, err
	}
	return domain.DelegationToken{
		DelegationID:      model.ID,
		ParentTokenID:     model.ParentTokenID,
		DelegatePublicKey: copyBytes(model.DelegatePublicKey),
		AllowedActions:    actions,
		PlanHash:          model.PlanHash,
		MerkleRoot:        copyBytes(model.MerkleRoot),
		IssuedAt:          model.IssuedAt.UTC(),
		ExpiresAt:         model.ExpiresAt.UTC(),
		Depth:             model.Depth,
		Signature:         model.Signature,
		StepProofs:        proofs,
	}, nil
}
