// Package api contains the REST handlers: leaderboard and reward queries,
// boost activation and the service health surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberlink/ember/internal/domain/model"
	"github.com/emberlink/ember/pkg/logger"
	"github.com/emberlink/ember/pkg/metrics"
)

// Dependencies bundles everything the handlers need from the service.
type Dependencies interface {
	GetStats(ctx context.Context) model.ServiceStats

	// Leaderboard returns archived standings for a settled month.
	Leaderboard(ctx context.Context, year, month, limit int) ([]model.LeaderboardEntry, error)

	// LiveLeaderboard returns unsettled current-month standings.
	LiveLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	// LatestLeaderboard returns the most recent settled month's standings.
	LatestLeaderboard(ctx context.Context, limit int) (year, month int, entries []model.LeaderboardEntry, err error)

	// Rank returns a user's entry in the most recent settled month.
	Rank(ctx context.Context, userID string) (model.LeaderboardEntry, error)

	// ActivateBoost verifies the purchase and applies the boost.
	ActivateBoost(ctx context.Context, userID, token string) (model.BoostState, error)

	// RewardEligibility derives the user's claim status.
	RewardEligibility(ctx context.Context, userID string) (model.RewardEligibility, error)

	// ClaimReward creates or returns the user's reward claim.
	ClaimReward(ctx context.Context, userID, contactInfo string) (model.RewardClaim, error)
}

// Handler serves the REST surface.
type Handler struct {
	deps     Dependencies
	log      logger.Logger
	maxLimit int
}

// NewHandler creates a Handler with configuration options.
func NewHandler(deps Dependencies, opts ...HandlerOption) *Handler {
	h := &Handler{
		deps:     deps,
		log:      logger.Named("api"),
		maxLimit: 100,
	}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts all routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.Handle("/healthz", promhttp.HandlerFor(
		metrics.GetRegistry(), promhttp.HandlerOpts{},
	)).Methods(http.MethodGet)

	r.HandleFunc("/stats", h.stats).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/rank/{userId}", h.rank).Methods(http.MethodGet)
	r.HandleFunc("/boost", h.boost).Methods(http.MethodPost)
	r.HandleFunc("/rewards/claim", h.claim).Methods(http.MethodPost)
	r.HandleFunc("/rewards/{userId}", h.rewards).Methods(http.MethodGet)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deps.GetStats(r.Context()))
}

type leaderboardResponse struct {
	Year    int                      `json:"year"`
	Month   int                      `json:"month"`
	Entries []model.LeaderboardEntry `json:"entries"`
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	if q.Get("live") == "1" || q.Get("live") == "true" {
		entries, err := h.deps.LiveLeaderboard(r.Context(), limit)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		now := time.Now().UTC()
		h.writeJSON(w, http.StatusOK, leaderboardResponse{
			Year: now.Year(), Month: int(now.Month()), Entries: entries,
		})
		return
	}

	if q.Get("year") == "" && q.Get("month") == "" {
		year, month, entries, err := h.deps.LatestLeaderboard(r.Context(), limit)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, leaderboardResponse{Year: year, Month: month, Entries: entries})
		return
	}

	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		h.writeError(w, r, NewKind(ErrBadRequest, "year and month must be numeric"))
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), year, month, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, leaderboardResponse{Year: year, Month: month, Entries: entries})
}

func (h *Handler) rank(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	entry, err := h.deps.Rank(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

type boostRequest struct {
	UserID        string `json:"userId"`
	PurchaseToken string `json:"purchaseToken"`
}

type boostResponse struct {
	ExpiresAt        time.Time `json:"expiresAt"`
	RemainingSeconds int64     `json:"remainingSeconds"`
	TotalUsed        int       `json:"totalBoostsUsed"`
}

func (h *Handler) boost(w http.ResponseWriter, r *http.Request) {
	var req boostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.PurchaseToken == "" {
		h.writeError(w, r, NewKind(ErrBadRequest, "userId and purchaseToken required"))
		return
	}

	state, err := h.deps.ActivateBoost(r.Context(), req.UserID, req.PurchaseToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, boostResponse{
		ExpiresAt:        state.ExpiresAt,
		RemainingSeconds: state.RemainingSeconds(time.Now()),
		TotalUsed:        state.TotalUsed,
	})
}

func (h *Handler) rewards(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	elig, err := h.deps.RewardEligibility(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, elig)
}

type claimRequest struct {
	UserID      string `json:"userId"`
	ContactInfo string `json:"contactInfo"`
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.writeError(w, r, NewKind(ErrBadRequest, "userId required"))
		return
	}

	claim, err := h.deps.ClaimReward(r.Context(), req.UserID, req.ContactInfo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, claim)
}

func (h *Handler) limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.maxLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, NewKind(ErrBadRequest, "limit must be a positive integer")
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error(context.Background(), "response encoding failed", logger.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path), logger.Error(err))
		metrics.RecordErrorByComponent("api", "internal")
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
