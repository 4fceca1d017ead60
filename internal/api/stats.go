// ABOUTME: Read-only stats endpoints: per-user totals, top-5 leaderboards, public config
// ABOUTME: Monthly numbers are derived from the catches table at query time

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/anglerworks/angler-gateway/internal/store"
)

type statsResponse struct {
	Success     bool   `json:"success"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	TotalFish   int64  `json:"total_fish"`
	MonthFish   int64  `json:"month_fish"`
	RankMonthly int64  `json:"rank_monthly"`
	RankAlltime int64  `json:"rank_alltime"`
	MemberSince string `json:"member_since"`
}

type rankingRow struct {
	Rank     int64  `json:"rank"`
	Username string `json:"username"`
	Fish     int64  `json:"fish"`
}

// handleUserStats returns one user's totals and leaderboard positions,
// looked up by license key.
func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	licenseKey := r.PathValue("license_key")
	if licenseKey == "" {
		h.sendFailure(w, http.StatusBadRequest, "license key is required")
		return
	}

	stats, err := h.store.GetUserStats(r.Context(), licenseKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendFailure(w, http.StatusNotFound, "user not found")
			return
		}
		h.serverError(w, "user stats", err)
		return
	}

	h.sendJSON(w, http.StatusOK, statsResponse{
		Success:     true,
		Username:    stats.Username,
		Email:       stats.Email,
		TotalFish:   stats.TotalCatches,
		MonthFish:   stats.MonthCatches,
		RankMonthly: stats.RankMonthly,
		RankAlltime: stats.RankAlltime,
		MemberSince: stats.MemberSince.Format(time.RFC3339),
	})
}

// handleMonthlyRanking returns the current month's top 5 along with the
// month boundaries the client renders in the overlay.
func (h *Handler) handleMonthlyRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.store.MonthlyRanking(r.Context(), rankingSize)
	if err != nil {
		h.serverError(w, "monthly ranking", err)
		return
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	h.sendJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"month_year":  now.Format("2006-01"),
		"month_start": monthStart.Format("2006-01-02"),
		"month_end":   monthEnd.Format("2006-01-02"),
		"ranking":     toRankingRows(ranking),
	})
}

func (h *Handler) handleAlltimeRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.store.AlltimeRanking(r.Context(), rankingSize)
	if err != nil {
		h.serverError(w, "alltime ranking", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ranking": toRankingRows(ranking),
	})
}

// handlePublicConfig exposes the whitelisted settings; everything else in
// the settings table stays private.
func (h *Handler) handlePublicConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetPublicSettings(r.Context())
	if err != nil {
		h.serverError(w, "public config", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  settings,
	})
}

func toRankingRows(entries []store.RankingEntry) []rankingRow {
	rows := make([]rankingRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, rankingRow{
			Rank:     e.Rank,
			Username: e.Username,
			Fish:     e.Catches,
		})
	}
	return rows
}
