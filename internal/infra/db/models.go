package db

import "time"

type IntentTokenModel struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	PlanHash         string    `gorm:"index;not null"`
	MerkleRoot       []byte    `gorm:"type:bytea;not null"`
	SubjectUserID    string    `gorm:"not null"`
	SubjectAgentID   string    `gorm:"not null"`
	SubjectContextID string    `gorm:"not null"`
	SubjectID        string    `gorm:"index;not null"`
	AllowedActions   []byte    `gorm:"type:jsonb;not null"`
	IssuedAt         time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"index;not null"`
	Signature        string    `gorm:"not null"`
	StepProofs       []byte    `gorm:"type:jsonb;not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

func (IntentTokenModel) TableName() string { return "intent_tokens" }

type DelegationModel struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	ParentTokenID     string    `gorm:"index;not null"`
	DelegatePublicKey []byte    `gorm:"type:bytea;not null"`
	AllowedActions    []byte    `gorm:"type:jsonb;not null"`
	PlanHash          string    `gorm:"index;not null"`
	MerkleRoot        []byte    `gorm:"type:bytea;not null"`
	IssuedAt          time.Time `gorm:"not null"`
	ExpiresAt         time.Time `gorm:"index;not null"`
	Depth             int       `gorm:"not null"`
	Signature         string    `gorm:"not null"`
	StepProofs        []byte    `gorm:"type:jsonb;not null"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (DelegationModel) TableName() string { return "delegations" }

type AuditEventModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	EventType   string    `gorm:"index;not null"`
	TokenID     string    `gorm:"index"`
	PlanHash    string    `gorm:"index"`
	SubjectID   string    `gorm:"index"`
	Action      string
	Result      string `gorm:"not null"`
	Reason      string
	PayloadJSON []byte    `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }
