package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vicraft/backend/internal/models"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientCoins is returned when the pools cannot cover a deduction.
var ErrInsufficientCoins = errors.New("insufficient coins")

// deductRetries bounds the optimistic-update loop on contended balances.
const deductRetries = 5

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, COALESCE(name, ''), COALESCE(image, ''),
		coins, inapp_coins, sub_coins,
		COALESCE(rights_type, ''), COALESCE(subscription_type, ''), subscription_expires_at,
		created_at, updated_at`

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var expires sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Image,
		&user.Coins, &user.InAppCoins, &user.SubCoins,
		&user.RightsType, &user.SubscriptionType, &expires,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if expires.Valid {
		t := expires.Time
		user.SubscriptionExpiresAt = &t
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

// Create inserts a new user row. The caller assigns the id and the welcome
// balance before calling.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, image, coins, inapp_coins, sub_coins)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.Image,
		user.Coins, user.InAppCoins, user.SubCoins,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// DeductCoins removes amount from the user's pools, draining sub_coins first,
// then coins, then inapp_coins. The write only lands if no other writer moved
// the balance between read and update; on a lost race the read-drain-update
// cycle is retried. On ErrInsufficientCoins the returned user carries the
// balance snapshot that was short.
func (r *UserRepository) DeductCoins(ctx context.Context, userID string, amount int) (*models.User, error) {
	for attempt := 0; attempt < deductRetries; attempt++ {
		user, err := r.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		pools := models.Pools{Sub: user.SubCoins, Free: user.Coins, InApp: user.InAppCoins}
		next, ok := pools.Drain(amount)
		if !ok {
			return user, ErrInsufficientCoins
		}

		res, err := r.db.ExecContext(ctx, `
			UPDATE users
			SET sub_coins = ?, coins = ?, inapp_coins = ?
			WHERE id = ? AND sub_coins = ? AND coins = ? AND inapp_coins = ?`,
			next.Sub, next.Free, next.InApp,
			userID, pools.Sub, pools.Free, pools.InApp,
		)
		if err != nil {
			return nil, fmt.Errorf("deduct coins: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("deduct coins: %w", err)
		}
		if affected == 1 {
			user.SubCoins = next.Sub
			user.Coins = next.Free
			user.InAppCoins = next.InApp
			return user, nil
		}
	}
	return nil, fmt.Errorf("deduct coins for user %s: balance kept changing", userID)
}

// AddInAppCoins credits a purchased top-up. Purchased coins accumulate, they
// are never overwritten.
func (r *UserRepository) AddInAppCoins(ctx context.Context, userID string, coins int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET inapp_coins = inapp_coins + ? WHERE id = ?`, coins, userID)
	if err != nil {
		return fmt.Errorf("add inapp coins: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add inapp coins: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplySubscription installs a subscription grant: the sub_coins pool is
// overwritten with the plan allowance and the entitlement fields are replaced
// in the same statement.
func (r *UserRepository) ApplySubscription(ctx context.Context, userID, tier, cycle string, coins int, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET sub_coins = ?, rights_type = ?, subscription_type = ?, subscription_expires_at = ?
		WHERE id = ?`,
		coins, tier, cycle, expiresAt, userID,
	)
	if err != nil {
		return fmt.Errorf("apply subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply subscription: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantDailySubCoins tops up the sub_coins pool of every user whose
// subscription is still active. Returns the number of users credited.
func (r *UserRepository) GrantDailySubCoins(ctx context.Context, coins int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET sub_coins = sub_coins + ?
		WHERE rights_type IS NOT NULL AND rights_type <> ''
		  AND subscription_expires_at IS NOT NULL AND subscription_expires_at > NOW()`,
		coins,
	)
	if err != nil {
		return 0, fmt.Errorf("grant daily coins: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("grant daily coins: %w", err)
	}
	return affected, nil
}
