package db

import (
	"fmt"
	"log"

	"intentd/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres when a DSN is configured. Without one
// the service runs in no-db mode: issuance and authorization still
// work, persistence and audit listing are unavailable.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; starting in no-db mode.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Migrate() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.AutoMigrate(
		&IntentTokenModel{},
		&DelegationModel{},
		&AuditEventModel{},
	)
}
