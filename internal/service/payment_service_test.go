package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/vicraft/backend/internal/config"
	"github.com/vicraft/backend/internal/paypal"
	"github.com/vicraft/backend/internal/repository"
)

func paypalStub(t *testing.T, customID, amount string) *paypal.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "PP-1",
			"status": "COMPLETED",
			"purchase_units": []map[string]any{{
				"custom_id": customID,
				"payments": map[string]any{
					"captures": []map[string]any{{
						"amount": map[string]string{"value": amount},
					}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return paypal.NewClient(config.Config{PayPalAPIBase: srv.URL}, nil)
}

func TestCaptureOrderGrantFailureIsReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Now()
	mock.ExpectQuery(`FROM orders WHERE paypal_order_id = \?`).
		WithArgs("PP-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "type", "amount", "coins",
			"subscription_tier", "paypal_order_id", "status",
			"created_at", "updated_at",
		}).AddRow(7, "user-1", "inapp", 4.99, 500, "", "PP-1", "pending", now, now))
	mock.ExpectQuery(`FROM coin_packages WHERE active = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "package_id", "coins", "bonus_coins", "price", "active", "sort_order"}))
	mock.ExpectQuery(`FROM subscription_packages WHERE active = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "billing_cycle", "coins", "price", "active", "sort_order"}))
	mock.ExpectExec(`UPDATE orders SET status = \?`).
		WithArgs("completed", "PP-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET inapp_coins = inapp_coins \+ \?`).
		WithArgs(500, "user-1").
		WillReturnError(errors.New("connection reset"))

	var logBuf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logBuf, nil))

	svc := NewPaymentService(
		repository.NewOrderRepository(db),
		repository.NewUserRepository(db),
		repository.NewCatalogRepository(db),
		paypalStub(t, "coins:starter:500", "4.99"),
		config.Config{AppBaseURL: "http://app.test"},
		log,
	)

	_, err = svc.CaptureOrder(context.Background(), "user-1", "PP-1")
	if err == nil {
		t.Fatal("CaptureOrder succeeded despite the grant failing")
	}
	if !strings.Contains(err.Error(), "order 7") {
		t.Errorf("err = %v, want order id in message", err)
	}

	logged := logBuf.String()
	for _, want := range []string{"order completed but grant failed", "PP-1", "user-1", "coins", "500"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log output missing %q:\n%s", want, logged)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
