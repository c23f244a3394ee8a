package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/services"
)

// maxLogoBytes ограничивает размер загружаемого логотипа.
const maxLogoBytes = 5 << 20

type UniversityHandler struct {
	universityService services.UniversityService
}

func NewUniversityHandler(universityService services.UniversityService) *UniversityHandler {
	return &UniversityHandler{universityService: universityService}
}

func (h *UniversityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.UniversityInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	university, err := h.universityService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"university": university}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID обрабатывает публичный GET /universities/{universityID}. Игроки не включаются.
func (h *UniversityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	h.getUniversity(w, r, false)
}

// GetWithPlayers обрабатывает GET /universities/{universityID}/players (только админ).
func (h *UniversityHandler) GetWithPlayers(w http.ResponseWriter, r *http.Request) {
	h.getUniversity(w, r, true)
}

func (h *UniversityHandler) getUniversity(w http.ResponseWriter, r *http.Request, withPlayers bool) {
	id, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	university, err := h.universityService.GetByID(r.Context(), id, withPlayers)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"university": university}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UniversityHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter models.UniversityFilter

	if zoneStr := queryString(r, "zone"); zoneStr != nil {
		zone, ok := models.ParseZone(*zoneStr)
		if !ok {
			failedValidationResponse(w, r, services.ErrInvalidZone.Error())
			return
		}
		filter.Zone = &zone
	}
	competing, err := queryBool(r, "competing")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter.Competing = competing
	filter.Sport = queryString(r, "sport")
	if search := queryString(r, "search"); search != nil {
		filter.Search = *search
	}

	universities, err := h.universityService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"universities": universities}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UniversityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UniversityInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	university, err := h.universityService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"university": university}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UniversityHandler) SetCompeting(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Competing *bool `json:"competing"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Competing == nil {
		failedValidationResponse(w, r, "competing is required")
		return
	}

	university, err := h.universityService.SetCompeting(r.Context(), id, *input.Competing)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"university": university}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdatePoints принимает либо {"delta": n}, либо {"points": n}.
func (h *UniversityHandler) UpdatePoints(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Delta  *int `json:"delta"`
		Points *int `json:"points"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var university *models.University
	switch {
	case input.Delta != nil && input.Points != nil:
		failedValidationResponse(w, r, "send either delta or points, not both")
		return
	case input.Delta != nil:
		university, err = h.universityService.AdjustPoints(r.Context(), id, *input.Delta)
	case input.Points != nil:
		university, err = h.universityService.SetPoints(r.Context(), id, *input.Points)
	default:
		failedValidationResponse(w, r, "delta or points is required")
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"university": university}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UniversityHandler) BulkUpdatePoints(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Updates []models.PointsUpdate `json:"updates"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.universityService.BulkSetPoints(r.Context(), input.Updates); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"updated": len(input.Updates)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UniversityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.universityService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo ожидает multipart/form-data с файлом в поле "logo".
func (h *UniversityHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes+1024)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		badRequestResponse(w, r, errors.New("logo must be sent as multipart/form-data and be at most 5MB"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required in the 'logo' field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	university, err := h.universityService.UploadLogo(r.Context(), id, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"university": university}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
