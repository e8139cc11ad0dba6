package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vicraft/backend/internal/models"
	"github.com/vicraft/backend/internal/repository"
)

// UserService owns user onboarding, balance reads and the entitlement
// mutations reachable from the admin surface.
type UserService struct {
	users        *repository.UserRepository
	welcomeCoins int
	log          *slog.Logger
}

func NewUserService(users *repository.UserRepository, welcomeCoins int, log *slog.Logger) *UserService {
	return &UserService{
		users:        users,
		welcomeCoins: welcomeCoins,
		log:          log,
	}
}

// Ensure returns the user for the authenticated identity, creating the row
// with the welcome balance on first sight. The frontend's session id is the
// primary key; the email is a secondary lookup for sessions that predate it.
func (s *UserService) Ensure(ctx context.Context, id, email, name, image string) (*models.User, error) {
	if id != "" {
		user, err := s.users.FindByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if email != "" {
		user, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if email == "" {
		return nil, fmt.Errorf("cannot create user without an email")
	}
	if id == "" {
		id = uuid.NewString()
	}

	user := &models.User{
		ID:    id,
		Email: email,
		Name:  name,
		Image: image,
		Coins: s.welcomeCoins,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user created", "user_id", user.ID, "welcome_coins", s.welcomeCoins)
	return user, nil
}

// Get returns the user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// SetSubscription force-installs an entitlement, bypassing payment. Admin
// only. A year cycle expires one calendar year out, anything else in a week.
func (s *UserService) SetSubscription(ctx context.Context, userID, tier, cycle string, coins int) error {
	if tier != models.TierLite && tier != models.TierPro && tier != models.TierMax {
		return fmt.Errorf("unknown tier %q", tier)
	}
	if cycle != models.CycleWeek && cycle != models.CycleYear {
		return fmt.Errorf("unknown billing cycle %q", cycle)
	}
	if coins < 0 {
		return fmt.Errorf("coin allowance must not be negative")
	}

	expiresAt := time.Now().AddDate(0, 0, 7)
	if cycle == models.CycleYear {
		expiresAt = time.Now().AddDate(1, 0, 0)
	}

	if err := s.users.ApplySubscription(ctx, userID, tier, cycle, coins, expiresAt); err != nil {
		return err
	}
	s.log.Info("subscription set by admin", "user_id", userID, "tier", tier, "cycle", cycle, "coins", coins)
	return nil
}

// GrantDailyCoins tops up every active subscriber's allowance pool. Invoked
// by the admin surface, typically from a daily cron.
func (s *UserService) GrantDailyCoins(ctx context.Context, coins int) (int64, error) {
	if coins <= 0 {
		return 0, fmt.Errorf("grant amount must be positive")
	}
	granted, err := s.users.GrantDailySubCoins(ctx, coins)
	if err != nil {
		return 0, err
	}
	s.log.Info("daily coins granted", "coins", coins, "users", granted)
	return granted, nil
}
