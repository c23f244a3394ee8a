package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nhsf/dharmic-games/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"score":"2-1"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"malformed", `{"score":`, "badly-formed JSON"},
		{"wrong type", `{"score":2}`, `incorrect JSON type for field "score"`},
		{"unknown field", `{"scor":"2-1"}`, `unknown key "scor"`},
		{"two values", `{"score":"1-0"}{"score":"2-0"}`, "single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			var dst struct {
				Score string `json:"score"`
			}

			err := readJSON(rec, req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "2-1", dst.Score)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrMatchNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrUniversityNotFound), http.StatusNotFound},
		{services.ErrUniversityNameConflict, http.StatusConflict},
		{services.ErrInvalidStatusTransition, http.StatusConflict},
		{services.ErrRequestNotPending, http.StatusConflict},
		{services.ErrMatchCompleted, http.StatusConflict},
		{services.ErrInvalidScore, http.StatusUnprocessableEntity},
		{services.ErrUnknownSport, http.StatusUnprocessableEntity},
		{services.ErrUnsupportedFileType, http.StatusUnsupportedMediaType},
		{services.ErrLogoUploadDisabled, http.StatusServiceUnavailable},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbiddenOperation, http.StatusForbidden},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			mapServiceErrorToHTTP(rec, req, tt.err)

			requireErrorBody(t, rec, tt.status)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "boom")
			}
		})
	}
}

func TestGetIDFromURL(t *testing.T) {
	var got int
	var gotErr error
	h := func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = getIDFromURL(r, "matchID")
	}

	serve(t, http.MethodGet, "/matches/{matchID}", "/matches/42", h, nil, nil)
	require.NoError(t, gotErr)
	assert.Equal(t, 42, got)

	serve(t, http.MethodGet, "/matches/{matchID}", "/matches/abc", h, nil, nil)
	assert.Error(t, gotErr)

	serve(t, http.MethodGet, "/matches/{matchID}", "/matches/0", h, nil, nil)
	assert.Error(t, gotErr)
}
