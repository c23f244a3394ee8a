package handlers

import (
	"net/http"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	var zone *models.Zone
	if zoneStr := queryString(r, "zone"); zoneStr != nil {
		z, ok := models.ParseZone(*zoneStr)
		if !ok {
			failedValidationResponse(w, r, services.ErrInvalidZone.Error())
			return
		}
		zone = &z
	}

	entries, err := h.leaderboardService.Leaderboard(r.Context(), zone)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
