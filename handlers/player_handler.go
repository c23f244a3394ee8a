package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/services"
)

const maxImportBytes = 5 << 20

type PlayerHandler struct {
	playerService services.PlayerService
}

func NewPlayerHandler(playerService services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	universityID, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.PlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.Register(r.Context(), universityID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Import принимает JSON (массив или объект игроков), text/csv или multipart с CSV в поле "file".
func (h *PlayerHandler) Import(w http.ResponseWriter, r *http.Request) {
	universityID, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var result *services.ImportResult
	switch mediaType {
	case "text/csv", "application/csv":
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		result, err = h.importCSV(r, universityID, r.Body)
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			badRequestResponse(w, r, errors.New("csv file must be at most 5MB"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			badRequestResponse(w, r, errors.New("csv file is required in the 'file' field"))
			return
		}
		defer file.Close()
		result, err = h.importCSV(r, universityID, file)
	default:
		var players models.PlayerList
		if err := readJSON(w, r, &players); err != nil {
			badRequestResponse(w, r, err)
			return
		}
		result, err = h.playerService.Import(r.Context(), universityID, players)
	}
	if err != nil {
		var parseErr *csvParseError
		if errors.As(err, &parseErr) {
			badRequestResponse(w, r, parseErr.err)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusCreated
	if len(result.Imported) == 0 {
		status = http.StatusUnprocessableEntity
	}
	if err := writeJSON(w, status, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type csvParseError struct{ err error }

func (e *csvParseError) Error() string { return e.err.Error() }

func (h *PlayerHandler) importCSV(r *http.Request, universityID int, body io.Reader) (*services.ImportResult, error) {
	rows, err := services.ParsePlayersCSV(body)
	if err != nil {
		return nil, &csvParseError{err: err}
	}
	return h.playerService.ImportRows(r.Context(), universityID, rows)
}

func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter models.PlayerFilter

	universityID, err := queryInt(r, "university_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	checkedIn, err := queryBool(r, "checked_in")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter.UniversityID = universityID
	filter.CheckedIn = checkedIn
	filter.Sport = queryString(r, "sport")
	if search := queryString(r, "search"); search != nil {
		filter.Search = *search
	}

	players, err := h.playerService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.PlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.playerService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlayerHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.CheckIn(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) UndoCheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.UndoCheckIn(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// BulkCheckIn отмечает всех игроков университета, либо только перечисленных в player_ids.
// Тело запроса необязательно.
func (h *PlayerHandler) BulkCheckIn(w http.ResponseWriter, r *http.Request) {
	universityID, err := getIDFromURL(r, "universityID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		PlayerIDs []int `json:"player_ids"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	ids, err := h.playerService.BulkCheckIn(r.Context(), universityID, input.PlayerIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if ids == nil {
		ids = []int{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"checked_in": ids, "count": len(ids)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) CheckInSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.playerService.CheckInSummary(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
