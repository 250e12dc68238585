// Package repository provides the data access layer for accounts and
// registration profiles. Repositories return gorm errors unmapped; callers
// translate gorm.ErrRecordNotFound and constraint violations into workflow
// errors.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle. Repositories
// obtained from the store passed to InTransaction share that transaction.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("repository: database handle is required")
	}
	return &Store{db: db}, nil
}

// Accounts returns the account repository.
func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{db: s.db}
}

// Profiles returns the registration profile repository.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// InTransaction runs fn inside a database transaction. The store handed to
// fn is scoped to the transaction; any returned error rolls everything back.
func (s *Store) InTransaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
