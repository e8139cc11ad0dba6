package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vicraft/backend/internal/auth"
	"github.com/vicraft/backend/internal/models"
	"github.com/vicraft/backend/internal/pricing"
	"github.com/vicraft/backend/internal/repository"
	"github.com/vicraft/backend/internal/service"
	"github.com/vicraft/backend/internal/shortapi"
)

// maxUploadBytes caps reference media uploads.
const maxUploadBytes = 32 << 20

type userResponse struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name,omitempty"`
	Image                 string     `json:"image,omitempty"`
	Coins                 int        `json:"coins"`
	InAppCoins            int        `json:"inapp_coins"`
	SubCoins              int        `json:"sub_coins"`
	TotalCoins            int        `json:"total_coins"`
	RightsType            string     `json:"rights_type,omitempty"`
	SubscriptionType      string     `json:"subscription_type,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	SubscriptionActive    bool       `json:"subscription_active"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Image:                 u.Image,
		Coins:                 u.Coins,
		InAppCoins:            u.InAppCoins,
		SubCoins:              u.SubCoins,
		TotalCoins:            u.TotalCoins(),
		RightsType:            u.RightsType,
		SubscriptionType:      u.SubscriptionType,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		SubscriptionActive:    u.SubscriptionActive(time.Now()),
	}
}

type generationResponse struct {
	ID           int64           `json:"id"`
	JobID        string          `json:"job_id"`
	TaskType     models.TaskType `json:"task_type"`
	Model        string          `json:"model"`
	Prompt       string          `json:"prompt,omitempty"`
	Price        int             `json:"price"`
	Status       int             `json:"status"`
	URLs         []string        `json:"urls,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toGenerationResponse(rec *models.GenerationRecord) generationResponse {
	return generationResponse{
		ID:           rec.ID,
		JobID:        rec.JobID,
		TaskType:     rec.TaskType,
		Model:        rec.Model,
		Prompt:       rec.Prompt,
		Price:        rec.Price,
		Status:       rec.Status,
		URLs:         shortapi.ExtractResultURLs(rec.Result),
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt,
	}
}

type orderResponse struct {
	ID               int64     `json:"id"`
	Type             string    `json:"type"`
	Amount           float64   `json:"amount"`
	Coins            int       `json:"coins"`
	SubscriptionTier string    `json:"subscription_tier,omitempty"`
	PayPalOrderID    string    `json:"paypal_order_id,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func toOrderResponse(o *models.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		Type:             o.Type,
		Amount:           o.Amount,
		Coins:            o.Coins,
		SubscriptionTier: o.SubscriptionTier,
		PayPalOrderID:    o.PayPalOrderID,
		Status:           o.Status,
		CreatedAt:        o.CreatedAt,
	}
}

// currentUser resolves the authenticated identity to a user row, creating it
// on first sight.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	user, err := s.users.Ensure(r.Context(), claims.Subject, claims.Email, claims.Name, claims.Image)
	if err != nil {
		s.serviceError(w, err)
		return nil, false
	}
	return user, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{
		"coins":       user.Coins,
		"inapp_coins": user.InAppCoins,
		"sub_coins":   user.SubCoins,
		"total_coins": user.TotalCoins(),
	})
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"rights_type":       user.RightsType,
		"subscription_type": user.SubscriptionType,
		"expires_at":        user.SubscriptionExpiresAt,
		"active":            user.SubscriptionActive(time.Now()),
		"sub_coins":         user.SubCoins,
	})
}

func (s *Server) handleDiscount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	tier := ""
	if user.SubscriptionActive(time.Now()) {
		tier = user.RightsType
	}
	imagePct, videoPct := 0, 0
	if tier != "" {
		if img, vid, known := pricing.DiscountRates(tier); known {
			// A 0 in the table means free, so show it as the full 100% off.
			if img == 0 {
				img = 100
			}
			if vid == 0 {
				vid = 100
			}
			imagePct, videoPct = img, vid
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"rights_type":    tier,
		"image_discount": imagePct,
		"video_discount": videoPct,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	records, err := s.generation.History(r.Context(), user.ID, queryInt(r, "limit", 50))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	out := make([]generationResponse, 0, len(records))
	for i := range records {
		out = append(out, toGenerationResponse(&records[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	orders, err := s.payments.Orders(r.Context(), user.ID, queryInt(r, "limit", 50))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type generateRequest struct {
	Model  string         `json:"model"`
	Prompt string         `json:"prompt"`
	Params map[string]any `json:"params"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	taskType := models.TaskType(chi.URLParam(r, "task"))
	if !taskType.Valid() {
		s.writeError(w, http.StatusNotFound, "unknown task type")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Model == "" {
		s.writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	rec, err := s.generation.Submit(r.Context(), service.SubmitInput{
		UserID:   user.ID,
		TaskType: taskType,
		Model:    req.Model,
		Prompt:   req.Prompt,
		Params:   req.Params,
	})
	if err != nil {
		s.serviceError(w, err)
		return
	}

	remaining := user.TotalCoins() - rec.Price
	if fresh, err := s.users.Get(r.Context(), user.ID); err == nil {
		remaining = fresh.TotalCoins()
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"record":          toGenerationResponse(rec),
		"job_id":          rec.JobID,
		"price":           rec.Price,
		"remaining_coins": remaining,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		jobID = r.URL.Query().Get("jobId")
	}
	if jobID == "" {
		s.writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	var rec *models.GenerationRecord
	var err error
	if r.URL.Query().Get("wait") == "true" {
		rec, err = s.generation.Wait(r.Context(), user.ID, jobID, s.cfg.PollMaxAttempts, s.cfg.PollInterval)
	} else {
		rec, err = s.generation.Result(r.Context(), user.ID, jobID)
	}
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGenerationResponse(rec))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	url, err := s.uploader.Upload(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

type createOrderRequest struct {
	Type         string `json:"type"`
	PackageID    string `json:"package_id,omitempty"`
	PlanID       string `json:"plan_id,omitempty"`
	BillingCycle string `json:"billing_cycle,omitempty"`
}

func (s *Server) handleCreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var result *service.CheckoutResult
	var err error
	switch req.Type {
	case models.OrderTypeInApp:
		if req.PackageID == "" {
			s.writeError(w, http.StatusBadRequest, "package_id is required")
			return
		}
		result, err = s.payments.CreateTopUpOrder(r.Context(), user.ID, req.PackageID)
	case models.OrderTypeSubscription:
		if req.PlanID == "" || req.BillingCycle == "" {
			s.writeError(w, http.StatusBadRequest, "plan_id and billing_cycle are required")
			return
		}
		result, err = s.payments.CreateSubscriptionOrder(r.Context(), user.ID, req.PlanID, req.BillingCycle)
	default:
		s.writeError(w, http.StatusBadRequest, "type must be inapp or subscription")
		return
	}
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":        result.OrderID,
		"paypal_order_id": result.PayPalOrderID,
		"approve_url":     result.ApproveURL,
	})
}

type captureRequest struct {
	PayPalOrderID string `json:"paypal_order_id"`
}

func (s *Server) handleCapturePayment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PayPalOrderID == "" {
		s.writeError(w, http.StatusBadRequest, "paypal_order_id is required")
		return
	}

	order, err := s.payments.CaptureOrder(r.Context(), user.ID, req.PayPalOrderID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	taskType := models.TaskType(r.URL.Query().Get("type"))
	if taskType != "" && !taskType.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown task type")
		return
	}
	list, err := s.catalog.Models(r.Context(), taskType)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	type modelResponse struct {
		Title       string                  `json:"title"`
		Type        models.TaskType         `json:"type"`
		Model       string                  `json:"model"`
		Description string                  `json:"description,omitempty"`
		Parameters  []models.ModelParameter `json:"parameters,omitempty"`
	}
	out := make([]modelResponse, 0, len(list))
	for _, m := range list {
		out = append(out, modelResponse{
			Title:       m.Title,
			Type:        m.Type,
			Model:       m.ShortAPI,
			Description: m.Description,
			Parameters:  m.Parameters,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type coinPackageResponse struct {
	PackageID  string  `json:"package_id"`
	Coins      int     `json:"coins"`
	BonusCoins int     `json:"bonus_coins,omitempty"`
	TotalCoins int     `json:"total_coins"`
	Price      float64 `json:"price"`
}

type subscriptionPlanResponse struct {
	PlanID       string  `json:"plan_id"`
	BillingCycle string  `json:"billing_cycle"`
	Coins        int     `json:"coins"`
	Price        float64 `json:"price"`
}

func toCoinPackageResponses(list []models.CoinPackage) []coinPackageResponse {
	out := make([]coinPackageResponse, 0, len(list))
	for i := range list {
		p := &list[i]
		out = append(out, coinPackageResponse{
			PackageID:  p.PackageID,
			Coins:      p.Coins,
			BonusCoins: p.BonusCoins,
			TotalCoins: p.TotalCoins(),
			Price:      p.Price,
		})
	}
	return out
}

func toSubscriptionPlanResponses(list []models.SubscriptionPackage) []subscriptionPlanResponse {
	out := make([]subscriptionPlanResponse, 0, len(list))
	for _, p := range list {
		out = append(out, subscriptionPlanResponse{
			PlanID:       p.PlanID,
			BillingCycle: p.BillingCycle,
			Coins:        p.Coins,
			Price:        p.Price,
		})
	}
	return out
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	coins, err := s.catalog.CoinPackages(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	subscriptions, err := s.catalog.SubscriptionPackages(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"coins":         toCoinPackageResponses(coins),
		"subscriptions": toSubscriptionPlanResponses(subscriptions),
	})
}

func (s *Server) handleListCoinPackages(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.CoinPackages(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toCoinPackageResponses(list))
}

func (s *Server) handleListSubscriptionPackages(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.SubscriptionPackages(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSubscriptionPlanResponses(list))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// serviceError maps service and repository errors onto HTTP responses. The
// two actionable conditions carry detail; everything else is opaque.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientCoinsError
	switch {
	case errors.As(err, &insufficient):
		s.writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":    "insufficient coins",
			"required": insufficient.Required,
			"balance":  insufficient.Balance,
			"missing":  insufficient.Required - insufficient.Balance,
		})
	case errors.Is(err, service.ErrUnknownModel):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidParams):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrUnresolvablePayment):
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  "payment could not be resolved",
			"detail": "nothing was credited; contact support with your order id",
		})
	default:
		s.log.Error("handler error", "err", err)
		s.writeError(w, http.StatusInternalServerError, "operation failed, try again")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
