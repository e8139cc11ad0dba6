package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var userColumnNames = []string{
	"id", "email", "name", "image",
	"coins", "inapp_coins", "sub_coins",
	"rights_type", "subscription_type", "subscription_expires_at",
	"created_at", "updated_at",
}

func userRow(coins, inapp, sub int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColumnNames).
		AddRow("user-1", "u@example.com", "", "", coins, inapp, sub, "", "", nil, now, now)
}

func newMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func TestDeductCoinsDrainsAndCommits(t *testing.T) {
	repo, mock := newMock(t)

	// Pools sub=10, free=5, inapp=20; deducting 12 empties sub and takes 2
	// from free, and the update is guarded by the values that were read.
	mock.ExpectQuery(`FROM users WHERE id = \?`).
		WithArgs("user-1").
		WillReturnRows(userRow(5, 20, 10))
	mock.ExpectExec(`UPDATE users`).
		WithArgs(0, 3, 20, "user-1", 10, 5, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.DeductCoins(context.Background(), "user-1", 12)
	if err != nil {
		t.Fatalf("DeductCoins error = %v", err)
	}
	if user.SubCoins != 0 || user.Coins != 3 || user.InAppCoins != 20 {
		t.Fatalf("pools after deduct = %d/%d/%d, want 0/3/20", user.SubCoins, user.Coins, user.InAppCoins)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeductCoinsRetriesOnConcurrentUpdate(t *testing.T) {
	repo, mock := newMock(t)

	// First attempt loses the race (0 rows matched), second sees the fresh
	// balance and lands.
	mock.ExpectQuery(`FROM users WHERE id = \?`).
		WithArgs("user-1").
		WillReturnRows(userRow(100, 0, 0))
	mock.ExpectExec(`UPDATE users`).
		WithArgs(0, 90, 0, "user-1", 0, 100, 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM users WHERE id = \?`).
		WithArgs("user-1").
		WillReturnRows(userRow(80, 0, 0))
	mock.ExpectExec(`UPDATE users`).
		WithArgs(0, 70, 0, "user-1", 0, 80, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.DeductCoins(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("DeductCoins error = %v", err)
	}
	if user.Coins != 70 {
		t.Fatalf("coins = %d, want 70", user.Coins)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeductCoinsInsufficientWritesNothing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \?`).
		WithArgs("user-1").
		WillReturnRows(userRow(5, 0, 5))

	user, err := repo.DeductCoins(context.Background(), "user-1", 11)
	if !errors.Is(err, ErrInsufficientCoins) {
		t.Fatalf("err = %v, want ErrInsufficientCoins", err)
	}
	if user == nil || user.TotalCoins() != 10 {
		t.Fatalf("snapshot = %+v, want balance 10", user)
	}
	// No UPDATE was expected; a write here fails the expectation check.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddInAppCoinsAccumulates(t *testing.T) {
	repo, mock := newMock(t)

	// Purchased coins are credited additively: 50 on hand + 80 bought = 130,
	// so the statement must add, never assign.
	mock.ExpectExec(`SET inapp_coins = inapp_coins \+ \?`).
		WithArgs(80, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AddInAppCoins(context.Background(), "user-1", 80); err != nil {
		t.Fatalf("AddInAppCoins error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplySubscriptionOverwritesAllowance(t *testing.T) {
	repo, mock := newMock(t)

	// A new grant replaces the allowance pool outright: 50 unused sub coins
	// plus an 80-coin grant leaves 80, not 130. The bound value is the plan
	// allowance itself.
	expiresAt := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`SET sub_coins = \?, rights_type = \?, subscription_type = \?, subscription_expires_at = \?`).
		WithArgs(80, "pro", "week", expiresAt, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ApplySubscription(context.Background(), "user-1", "pro", "week", 80, expiresAt); err != nil {
		t.Fatalf("ApplySubscription error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddInAppCoinsUnknownUser(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`SET inapp_coins = inapp_coins \+ \?`).
		WithArgs(80, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.AddInAppCoins(context.Background(), "ghost", 80); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
