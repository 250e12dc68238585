package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/repository"
	"github.com/gatehouse-dev/gatehouse/pkg/crypto"
)

// InspectorInput describes the inspector account provisioned at startup.
type InspectorInput struct {
	Username string
	Email    string
	Password string
}

// EnsureInspector creates the configured inspector account when it does not
// exist yet, reporting whether it was created. An existing account is left
// untouched so password changes in configuration never clobber a live one.
func EnsureInspector(ctx context.Context, store *repository.Store, input InspectorInput) (*models.Account, bool, error) {
	if store == nil {
		return nil, false, errors.New("bootstrap: store is required")
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, false, errors.New("bootstrap: inspector username is required")
	}
	if input.Password == "" {
		return nil, false, errors.New("bootstrap: inspector password is required")
	}

	account, err := store.Accounts().GetByUsername(ctx, username)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("bootstrap: look up inspector: %w", err)
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap: hash inspector password: %w", err)
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		email = username + "@localhost"
	}

	account = &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		JoinedAt:     time.Now().UTC(),
	}
	if err := store.Accounts().Create(ctx, account); err != nil {
		return nil, false, fmt.Errorf("bootstrap: create inspector: %w", err)
	}

	return account, true, nil
}
