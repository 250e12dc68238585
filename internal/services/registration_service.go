package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/models"
	"github.com/gatehouse-dev/gatehouse/internal/notify"
	"github.com/gatehouse-dev/gatehouse/internal/registration"
	"github.com/gatehouse-dev/gatehouse/internal/repository"
	"github.com/gatehouse-dev/gatehouse/pkg/crypto"
	"github.com/gatehouse-dev/gatehouse/pkg/mail"
	"github.com/gatehouse-dev/gatehouse/pkg/metrics"
)

const (
	defaultActivationWindow = 7 * 24 * time.Hour
	defaultPasswordLength   = 10
)

var (
	// ErrProfileNotFound indicates no registration profile matches the lookup.
	ErrProfileNotFound = errors.New("registration: profile not found")
	// ErrAlreadyAccepted signals an acceptance of an already accepted profile.
	ErrAlreadyAccepted = errors.New("registration: already accepted")
	// ErrAlreadyInspected signals a rejection of a profile that is no longer
	// untreated.
	ErrAlreadyInspected = errors.New("registration: already inspected")
	// ErrActivationKeyExpired signals activation after the window elapsed.
	ErrActivationKeyExpired = errors.New("registration: activation key expired")
	// ErrRegistrationClosed signals that self-registration is switched off.
	ErrRegistrationClosed = errors.New("registration: registration closed")
	// ErrAccountExists signals a registration with a taken username or email.
	ErrAccountExists = errors.New("registration: account already exists")
)

// RegistrationOption customises the RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithActivationWindow sets how long accepted registrants may activate.
func WithActivationWindow(d time.Duration) RegistrationOption {
	return func(s *RegistrationService) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithGeneratedPasswordLength sets the length of generated passwords.
func WithGeneratedPasswordLength(length int) RegistrationOption {
	return func(s *RegistrationService) {
		if length > 0 {
			s.passwordLength = length
		}
	}
}

// WithRegistrationOpen toggles whether new registrations are admitted.
func WithRegistrationOpen(open bool) RegistrationOption {
	return func(s *RegistrationService) {
		s.open = open
	}
}

// WithRegistrationClock injects a custom time source.
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// RegistrationService drives the inspected registration workflow: register,
// accept or reject, activate, and the maintenance sweeps. All state changes
// of one operation share a transaction; notification failures roll the
// operation back, except delivery being disabled, which is tolerated.
type RegistrationService struct {
	store          *repository.Store
	notifier       notify.Notifier
	window         time.Duration
	passwordLength int
	open           bool
	now            func() time.Time
}

// NewRegistrationService constructs the workflow service. A nil notifier
// disables notifications.
func NewRegistrationService(store *repository.Store, notifier notify.Notifier, opts ...RegistrationOption) (*RegistrationService, error) {
	if store == nil {
		return nil, errors.New("registration service: store is required")
	}

	if notifier == nil {
		notifier = notify.Nop()
	}

	service := &RegistrationService{
		store:          store,
		notifier:       notifier,
		window:         defaultActivationWindow,
		passwordLength: defaultPasswordLength,
		open:           true,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Username   string
	Email      string
	Supplement datatypes.JSON
	SendEmail  bool
}

// Register creates an inactive account with unusable credentials and an
// untreated profile, and optionally emails the registrant a receipt.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*models.RegistrationProfile, error) {
	if !s.open {
		return nil, ErrRegistrationClosed
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" {
		return nil, errors.New("registration: username is required")
	}
	if email == "" {
		return nil, errors.New("registration: email is required")
	}

	var profile *models.RegistrationProfile
	err := s.store.InTransaction(ctx, func(tx *repository.Store) error {
		account := &models.Account{
			Username: username,
			Email:    email,
			IsActive: false,
			JoinedAt: s.now().UTC(),
		}
		if err := tx.Accounts().Create(ctx, account); err != nil {
			if isUniqueConstraintError(err) {
				return ErrAccountExists
			}
			return fmt.Errorf("registration: create account: %w", err)
		}

		profile = &models.RegistrationProfile{
			AccountID:  account.ID,
			Status:     registration.StatusUntreated,
			Supplement: input.Supplement,
		}
		if err := tx.Profiles().Create(ctx, profile); err != nil {
			return fmt.Errorf("registration: create profile: %w", err)
		}
		profile.Account = account

		if input.SendEmail {
			data := notify.Data{Account: account}
			if err := s.deliver(ctx, s.notifier.RegistrationReceived, data); err != nil {
				return fmt.Errorf("registration: send registration email: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// AcceptInput carries an inspector's acceptance decision.
type AcceptInput struct {
	Message   string
	SendEmail bool

	// Force accepts regardless of the current status and discards any held
	// activation key so a fresh one is issued.
	Force bool
}

// Accept marks a profile accepted. Untreated and rejected profiles are
// eligible; accepting an already accepted profile without force returns
// ErrAlreadyAccepted. Acceptance issues an activation key when none is held
// and restarts the activation window at the same moment.
func (s *RegistrationService) Accept(ctx context.Context, profileID string, input AcceptInput) (*models.RegistrationProfile, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errors.New("registration: profile id is required")
	}

	var accepted *models.RegistrationProfile
	err := s.store.InTransaction(ctx, func(tx *repository.Store) error {
		profile, err := s.loadProfile(ctx, tx, profileID)
		if err != nil {
			return err
		}

		next, effects, terr := registration.Transition(profile.State(), registration.StatusAccepted, input.Force)
		if terr != nil {
			if errors.Is(terr, registration.ErrStatusUnchanged) {
				return ErrAlreadyAccepted
			}
			return terr
		}

		if err := s.applyTransition(ctx, tx, profile, next, effects); err != nil {
			return err
		}

		if input.SendEmail {
			data := notify.Data{
				Account:        profile.Account,
				ActivationKey:  profile.Key(),
				ExpirationDays: s.expirationDays(),
				Message:        input.Message,
			}
			if err := s.deliver(ctx, s.notifier.RegistrationAccepted, data); err != nil {
				return fmt.Errorf("registration: send acceptance email: %w", err)
			}
		}

		accepted = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// RejectInput carries an inspector's rejection decision.
type RejectInput struct {
	Message   string
	SendEmail bool
}

// Reject marks an untreated profile rejected and drops any activation key.
// Profiles already accepted or rejected return ErrAlreadyInspected.
func (s *RegistrationService) Reject(ctx context.Context, profileID string, input RejectInput) (*models.RegistrationProfile, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errors.New("registration: profile id is required")
	}

	var rejected *models.RegistrationProfile
	err := s.store.InTransaction(ctx, func(tx *repository.Store) error {
		profile, err := s.loadProfile(ctx, tx, profileID)
		if err != nil {
			return err
		}

		next, effects, terr := registration.Transition(profile.State(), registration.StatusRejected, false)
		if terr != nil {
			if errors.Is(terr, registration.ErrStatusUnchanged) || errors.Is(terr, registration.ErrInvalidTransition) {
				return ErrAlreadyInspected
			}
			return terr
		}

		if err := s.applyTransition(ctx, tx, profile, next, effects); err != nil {
			return err
		}

		if input.SendEmail {
			data := notify.Data{
				Account: profile.Account,
				Message: input.Message,
			}
			if err := s.deliver(ctx, s.notifier.RegistrationRejected, data); err != nil {
				return fmt.Errorf("registration: send rejection email: %w", err)
			}
		}

		rejected = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// ActivateInput carries a registrant's activation request.
type ActivateInput struct {
	// Password is the credential the registrant chose. Empty means one is
	// generated for them.
	Password  string
	SendEmail bool

	// KeepProfile leaves the registration profile in place after
	// activation instead of deleting it.
	KeepProfile bool
}

// Activation reports the outcome of a successful activation. Password is the
// plaintext credential now set on the account; Generated tells whether it was
// drawn for the registrant.
type Activation struct {
	Account   *models.Account
	Password  string
	Generated bool
}

// Activate turns the accepted profile holding key into an active account.
// Keys held by unaccepted profiles never match, expired keys return
// ErrActivationKeyExpired, and the profile is deleted on success unless
// KeepProfile is set.
func (s *RegistrationService) Activate(ctx context.Context, key string, input ActivateInput) (*Activation, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("registration: activation key is required")
	}

	var result *Activation
	err := s.store.InTransaction(ctx, func(tx *repository.Store) error {
		profile, err := tx.Profiles().GetAcceptedByKey(ctx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("registration: find profile by key: %w", err)
		}
		if profile.Account == nil {
			return ErrProfileNotFound
		}

		if registration.KeyExpired(profile.Status, profile.Account.JoinedAt, s.window, s.now()) {
			return ErrActivationKeyExpired
		}

		password := input.Password
		generated := false
		if password == "" {
			password, err = crypto.GeneratePassword(s.passwordLength)
			if err != nil {
				return fmt.Errorf("registration: generate password: %w", err)
			}
			generated = true
		}

		hash, err := crypto.HashPassword(password)
		if err != nil {
			return fmt.Errorf("registration: hash password: %w", err)
		}

		account := profile.Account
		account.PasswordHash = hash
		account.IsActive = true
		if err := tx.Accounts().Save(ctx, account); err != nil {
			return fmt.Errorf("registration: save account: %w", err)
		}

		if input.SendEmail {
			// Only generated passwords travel in the notification; a
			// password the registrant chose is never echoed back.
			data := notify.Data{Account: account, Generated: generated}
			if generated {
				data.Password = password
			}
			if err := s.deliver(ctx, s.notifier.AccountActivated, data); err != nil {
				return fmt.Errorf("registration: send activation email: %w", err)
			}
		}

		if !input.KeepProfile {
			if err := tx.Profiles().Delete(ctx, profile); err != nil {
				return fmt.Errorf("registration: delete profile: %w", err)
			}
		}

		result = &Activation{Account: account, Password: password, Generated: generated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SweepResult reports what a maintenance sweep removed.
type SweepResult struct {
	AccountsDeleted int `json:"accounts_deleted"`
	ProfilesDeleted int `json:"profiles_deleted"`
}

// DeleteExpired removes accounts whose acceptance lapsed unused, along with
// their profiles. Activated accounts are never touched. Profiles whose
// account vanished are removed on their own.
func (s *RegistrationService) DeleteExpired(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	err := s.store.InTransaction(ctx, func(tx *repository.Store) error {
		profiles, err := tx.Profiles().ListByStatus(ctx, registration.StatusAccepted)
		if err != nil {
			return fmt.Errorf("registration: list accepted profiles: %w", err)
		}

		now := s.now()
		for i := range profiles {
			profile := &profiles[i]

			if profile.Account == nil {
				if err := s.sweepProfile(ctx, tx, profile, "expired", &result); err != nil {
					return err
				}
				continue
			}

			if !registration.KeyExpired(profile.Status, profile.Account.JoinedAt, s.window, now) {
				continue
			}
			if profile.Account.IsActive {
				continue
			}

			if err := s.sweepPair(ctx, tx, profile, "expired", &result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	return result, nil
}

// DeleteRejected removes accounts whose registration was rejected, along
// with their profiles. Activated accounts are never touched. Profiles whose
// account vanished are removed on their own.
func (s *RegistrationService) DeleteRejected(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	err := s.store.InTransaction(ctx, func(tx *repository.Store) error {
		profiles, err := tx.Profiles().ListByStatus(ctx, registration.StatusRejected)
		if err != nil {
			return fmt.Errorf("registration: list rejected profiles: %w", err)
		}

		for i := range profiles {
			profile := &profiles[i]

			if profile.Account == nil {
				if err := s.sweepProfile(ctx, tx, profile, "rejected", &result); err != nil {
					return err
				}
				continue
			}
			if profile.Account.IsActive {
				continue
			}

			if err := s.sweepPair(ctx, tx, profile, "rejected", &result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	return result, nil
}

// ListProfiles returns profiles matching the status filter, oldest first.
// An empty filter returns everything. The accepted and expired filters are
// resolved against the activation window, since both are stored as accepted.
func (s *RegistrationService) ListProfiles(ctx context.Context, filter registration.Status) ([]models.RegistrationProfile, error) {
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("registration: unknown status filter %q", filter)
	}

	switch filter {
	case "":
		return s.store.Profiles().List(ctx)
	case registration.StatusUntreated, registration.StatusRejected:
		return s.store.Profiles().ListByStatus(ctx, filter)
	default:
		profiles, err := s.store.Profiles().ListByStatus(ctx, registration.StatusAccepted)
		if err != nil {
			return nil, err
		}

		now := s.now()
		filtered := make([]models.RegistrationProfile, 0, len(profiles))
		for _, profile := range profiles {
			expired := profile.Account != nil &&
				registration.KeyExpired(profile.Status, profile.Account.JoinedAt, s.window, now)
			if (filter == registration.StatusExpired) == expired {
				filtered = append(filtered, profile)
			}
		}
		return filtered, nil
	}
}

// GetProfile fetches one profile with its account.
func (s *RegistrationService) GetProfile(ctx context.Context, profileID string) (*models.RegistrationProfile, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errors.New("registration: profile id is required")
	}

	profile, err := s.store.Profiles().GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("registration: load profile: %w", err)
	}
	return profile, nil
}

// EffectiveStatus resolves the status of a profile against the activation
// window, reading accepted profiles past the window as expired.
func (s *RegistrationService) EffectiveStatus(profile *models.RegistrationProfile) registration.Status {
	if profile == nil {
		return ""
	}
	if profile.Account == nil {
		return profile.Status
	}
	return registration.EffectiveStatus(profile.Status, profile.Account.JoinedAt, s.window, s.now())
}

// ExpiresAt reports when the activation key lapses, or nil for profiles that
// hold none.
func (s *RegistrationService) ExpiresAt(profile *models.RegistrationProfile) *time.Time {
	if profile == nil || profile.Account == nil || profile.Status != registration.StatusAccepted {
		return nil
	}
	t := profile.Account.JoinedAt.Add(s.window)
	return &t
}

func (s *RegistrationService) loadProfile(ctx context.Context, tx *repository.Store, profileID string) (*models.RegistrationProfile, error) {
	profile, err := tx.Profiles().GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("registration: load profile: %w", err)
	}
	if profile.Account == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// applyTransition materialises a computed transition: status, key effects
// and the join time stamp, persisting profile and account as needed.
func (s *RegistrationService) applyTransition(ctx context.Context, tx *repository.Store, profile *models.RegistrationProfile, next registration.State, effects []registration.Effect) error {
	profile.Status = next.Status
	profile.SetKey(next.ActivationKey)

	accountDirty := false
	for _, effect := range effects {
		switch effect {
		case registration.EffectClearKey:
			profile.SetKey("")
		case registration.EffectGenerateKey:
			key, err := crypto.GenerateActivationKey(profile.Account.Username)
			if err != nil {
				return fmt.Errorf("registration: generate activation key: %w", err)
			}
			profile.SetKey(key)
		case registration.EffectStampJoinTime:
			profile.Account.JoinedAt = s.now().UTC()
			accountDirty = true
		}
	}

	if err := tx.Profiles().Save(ctx, profile); err != nil {
		return fmt.Errorf("registration: save profile: %w", err)
	}
	if accountDirty {
		if err := tx.Accounts().Save(ctx, profile.Account); err != nil {
			return fmt.Errorf("registration: save account: %w", err)
		}
	}
	return nil
}

// sweepPair removes a profile and its account, profile first so the account
// is never referenced by a row that outlives it.
func (s *RegistrationService) sweepPair(ctx context.Context, tx *repository.Store, profile *models.RegistrationProfile, sweep string, result *SweepResult) error {
	if err := s.sweepProfile(ctx, tx, profile, sweep, result); err != nil {
		return err
	}

	if err := tx.Accounts().Delete(ctx, profile.Account); err != nil {
		return fmt.Errorf("registration: delete account: %w", err)
	}
	result.AccountsDeleted++
	metrics.SweepDeletions.WithLabelValues(sweep, "account").Inc()
	return nil
}

func (s *RegistrationService) sweepProfile(ctx context.Context, tx *repository.Store, profile *models.RegistrationProfile, sweep string, result *SweepResult) error {
	if err := tx.Profiles().Delete(ctx, profile); err != nil {
		return fmt.Errorf("registration: delete profile: %w", err)
	}
	result.ProfilesDeleted++
	metrics.SweepDeletions.WithLabelValues(sweep, "profile").Inc()
	return nil
}

// deliver sends a notification, tolerating disabled delivery.
func (s *RegistrationService) deliver(ctx context.Context, send func(context.Context, notify.Data) error, data notify.Data) error {
	if err := send(ctx, data); err != nil && !errors.Is(err, mail.ErrDisabled) {
		return err
	}
	return nil
}

func (s *RegistrationService) expirationDays() int {
	days := int(s.window / (24 * time.Hour))
	if s.window%(24*time.Hour) != 0 {
		days++
	}
	return days
}
