package handlers

import (
	"net/http"

	"github.com/nhsf/dharmic-games/middleware"
	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/services"
)

type RequestHandler struct {
	requestService services.RequestService
}

func NewRequestHandler(requestService services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

type rejectInput struct {
	Reason *string `json:"reason"`
}

// statusFilter разбирает ?status=; пустое значение означает "все заявки".
func statusFilter(w http.ResponseWriter, r *http.Request) (*models.RequestStatus, bool) {
	statusStr := queryString(r, "status")
	if statusStr == nil {
		return nil, true
	}
	status := models.RequestStatus(*statusStr)
	if !status.Valid() {
		failedValidationResponse(w, r, services.ErrInvalidRequestStatus.Error())
		return nil, false
	}
	return &status, true
}

// reviewTarget достаёт id заявки из URL и id проверяющего из токена.
func reviewTarget(w http.ResponseWriter, r *http.Request) (id int, reviewerID int, ok bool) {
	id, err := getIDFromURL(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	reviewerID, err = middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid or missing user identity")
		return 0, 0, false
	}
	return id, reviewerID, true
}

// readRejectInput допускает пустое тело: причина отказа необязательна.
func readRejectInput(w http.ResponseWriter, r *http.Request) (rejectInput, bool) {
	var input rejectInput
	if r.ContentLength == 0 {
		return input, true
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return input, false
	}
	return input, true
}

func (h *RequestHandler) CreateAdminRequest(w http.ResponseWriter, r *http.Request) {
	var input services.AdminRequestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.requestService.CreateAdminRequest(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) ListAdminRequests(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	reqs, err := h.requestService.ListAdminRequests(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"requests": reqs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) ApproveAdminRequest(w http.ResponseWriter, r *http.Request) {
	id, reviewerID, ok := reviewTarget(w, r)
	if !ok {
		return
	}

	req, err := h.requestService.ApproveAdminRequest(r.Context(), id, reviewerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) RejectAdminRequest(w http.ResponseWriter, r *http.Request) {
	id, reviewerID, ok := reviewTarget(w, r)
	if !ok {
		return
	}
	input, ok := readRejectInput(w, r)
	if !ok {
		return
	}

	req, err := h.requestService.RejectAdminRequest(r.Context(), id, reviewerID, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) CreateUniversityRequest(w http.ResponseWriter, r *http.Request) {
	var input services.UniversityRequestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.requestService.CreateUniversityRequest(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) ListUniversityRequests(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	reqs, err := h.requestService.ListUniversityRequests(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"requests": reqs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) ApproveUniversityRequest(w http.ResponseWriter, r *http.Request) {
	id, reviewerID, ok := reviewTarget(w, r)
	if !ok {
		return
	}

	req, err := h.requestService.ApproveUniversityRequest(r.Context(), id, reviewerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RequestHandler) RejectUniversityRequest(w http.ResponseWriter, r *http.Request) {
	id, reviewerID, ok := reviewTarget(w, r)
	if !ok {
		return
	}
	input, ok := readRejectInput(w, r)
	if !ok {
		return
	}

	req, err := h.requestService.RejectUniversityRequest(r.Context(), id, reviewerID, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
