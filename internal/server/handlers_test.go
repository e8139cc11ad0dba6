package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vicraft/backend/internal/repository"
	"github.com/vicraft/backend/internal/service"
)

func testServer() *Server {
	return &Server{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestServiceErrorMapping(t *testing.T) {
	s := testServer()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"insufficient coins", &service.InsufficientCoinsError{Required: 300, Balance: 120}, http.StatusPaymentRequired},
		{"unknown model", service.ErrUnknownModel, http.StatusNotFound},
		{"invalid params", service.ErrInvalidParams, http.StatusBadRequest},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"unresolvable payment", service.ErrUnresolvablePayment, http.StatusUnprocessableEntity},
		{"anything else", errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.serviceError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServiceErrorInsufficientCoinsDetail(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.serviceError(rec, &service.InsufficientCoinsError{Required: 300, Balance: 120})

	var body struct {
		Required int `json:"required"`
		Balance  int `json:"balance"`
		Missing  int `json:"missing"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Required != 300 || body.Balance != 120 || body.Missing != 180 {
		t.Fatalf("body = %+v, want required=300 balance=120 missing=180", body)
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"limit=10", 10},
		{"limit=0", 50},
		{"limit=-3", 50},
		{"limit=abc", 50},
		{"", 50},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := queryInt(r, "limit", 50); got != tt.want {
			t.Errorf("queryInt(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.serviceError(rec, errors.New("dsn=root:hunter2@tcp(db)/prod"))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "operation failed, try again" {
		t.Fatalf("error = %q, internal detail must not leak", body["error"])
	}
}
