package server

import (
	"encoding/json"
	"net/http"

	"github.com/vicraft/backend/internal/models"
)

func (s *Server) handlePollHistory(w http.ResponseWriter, r *http.Request) {
	settled, err := s.maintenance.SweepPending(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"settled": settled})
}

func (s *Server) handleCleanupHistory(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.maintenance.CleanupHistory(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type setSubscriptionRequest struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
	Cycle  string `json:"cycle"`
	Coins  int    `json:"coins"`
}

func (s *Server) handleSetSubscription(w http.ResponseWriter, r *http.Request) {
	var req setSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := s.users.SetSubscription(r.Context(), req.UserID, req.Tier, req.Cycle, req.Coins); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type grantCoinsRequest struct {
	Coins int `json:"coins"`
}

func (s *Server) handleGrantDailyCoins(w http.ResponseWriter, r *http.Request) {
	var req grantCoinsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	coins := req.Coins
	if coins <= 0 {
		coins = s.cfg.DailyGrantCoins
	}

	granted, err := s.users.GrantDailyCoins(r.Context(), coins)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"coins": coins, "users": granted})
}

type upsertModelRequest struct {
	Title       string                  `json:"title"`
	Type        models.TaskType         `json:"type"`
	Model       string                  `json:"model"`
	Description string                  `json:"description"`
	Parameters  []models.ModelParameter `json:"parameters"`
	Active      *bool                   `json:"active"`
	SortOrder   int                     `json:"sort_order"`
}

func (s *Server) handleUpsertModel(w http.ResponseWriter, r *http.Request) {
	var req upsertModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Title == "" || req.Model == "" || !req.Type.Valid() {
		s.writeError(w, http.StatusBadRequest, "title, model and a valid type are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	m := &models.Model{
		Title:       req.Title,
		Type:        req.Type,
		ShortAPI:    req.Model,
		Description: req.Description,
		Parameters:  req.Parameters,
		Active:      active,
		SortOrder:   req.SortOrder,
	}
	if err := s.catalog.UpsertModel(r.Context(), m); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type upsertCoinPackageRequest struct {
	PackageID  string  `json:"package_id"`
	Coins      int     `json:"coins"`
	BonusCoins int     `json:"bonus_coins"`
	Price      float64 `json:"price"`
	Active     *bool   `json:"active"`
	SortOrder  int     `json:"sort_order"`
}

func (s *Server) handleUpsertCoinPackage(w http.ResponseWriter, r *http.Request) {
	var req upsertCoinPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PackageID == "" || req.Coins <= 0 || req.Price <= 0 {
		s.writeError(w, http.StatusBadRequest, "package_id, coins and price are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p := &models.CoinPackage{
		PackageID:  req.PackageID,
		Coins:      req.Coins,
		BonusCoins: req.BonusCoins,
		Price:      req.Price,
		Active:     active,
		SortOrder:  req.SortOrder,
	}
	if err := s.catalog.UpsertCoinPackage(r.Context(), p); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type upsertSubscriptionPackageRequest struct {
	PlanID       string  `json:"plan_id"`
	BillingCycle string  `json:"billing_cycle"`
	Coins        int     `json:"coins"`
	Price        float64 `json:"price"`
	Active       *bool   `json:"active"`
	SortOrder    int     `json:"sort_order"`
}

func (s *Server) handleUpsertSubscriptionPackage(w http.ResponseWriter, r *http.Request) {
	var req upsertSubscriptionPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PlanID != models.TierLite && req.PlanID != models.TierPro && req.PlanID != models.TierMax {
		s.writeError(w, http.StatusBadRequest, "plan_id must be lite, pro or max")
		return
	}
	if req.BillingCycle != models.CycleWeek && req.BillingCycle != models.CycleYear {
		s.writeError(w, http.StatusBadRequest, "billing_cycle must be week or year")
		return
	}
	if req.Coins <= 0 || req.Price <= 0 {
		s.writeError(w, http.StatusBadRequest, "coins and price are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	p := &models.SubscriptionPackage{
		PlanID:       req.PlanID,
		BillingCycle: req.BillingCycle,
		Coins:        req.Coins,
		Price:        req.Price,
		Active:       active,
		SortOrder:    req.SortOrder,
	}
	if err := s.catalog.UpsertSubscriptionPackage(r.Context(), p); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
