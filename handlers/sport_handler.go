package handlers

import (
	"net/http"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/sports"
)

type SportHandler struct {
	catalogue *sports.Catalogue
}

func NewSportHandler(catalogue *sports.Catalogue) *SportHandler {
	return &SportHandler{catalogue: catalogue}
}

// List returns the sport catalogue together with the zones universities compete in.
func (h *SportHandler) List(w http.ResponseWriter, r *http.Request) {
	response := jsonResponse{
		"sports": h.catalogue.List(),
		"zones":  models.Zones(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
