package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"contact-relay-go/internal/models"
)

// Store provides persistence for submissions and the single stored
// credential set.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// CreateSubmission persists one contact-form submission.
func (s *Store) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// ReplaceCredential clears any stored credential set and inserts the given
// one, in a single transaction. A prior credential is permanently discarded.
func (s *Store) ReplaceCredential(ctx context.Context, cred *models.OAuthCredential) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.OAuthCredential{}).Error; err != nil {
			return err
		}
		cred.ID = 0
		return tx.Create(cred).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace credential: %w", err)
	}
	return nil
}

// GetCredential returns the stored credential set, or (nil, nil) when no
// authorization has ever been completed.
func (s *Store) GetCredential(ctx context.Context) (*models.OAuthCredential, error) {
	var cred models.OAuthCredential
	result := s.db.WithContext(ctx).First(&cred)
	if result.Error == nil {
		return &cred, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to load credential: %w", result.Error)
}
