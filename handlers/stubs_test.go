package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/nhsf/dharmic-games/middleware"
	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/services"
	"github.com/stretchr/testify/require"
)

// Stubs embed the service interface; calling a method that is not overridden panics.

type stubMatchService struct {
	services.MatchService
	list         func(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
	updateStatus func(ctx context.Context, id int, input services.StatusInput) (*models.Match, error)
	updateScore  func(ctx context.Context, id int, score string) (*models.Match, error)
	bulk         func(ctx context.Context, ids []int, status models.MatchStatus) ([]models.Match, error)
}

func (s *stubMatchService) List(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	return s.list(ctx, filter)
}

func (s *stubMatchService) UpdateStatus(ctx context.Context, id int, input services.StatusInput) (*models.Match, error) {
	return s.updateStatus(ctx, id, input)
}

func (s *stubMatchService) UpdateScore(ctx context.Context, id int, score string) (*models.Match, error) {
	return s.updateScore(ctx, id, score)
}

func (s *stubMatchService) BulkUpdateStatus(ctx context.Context, ids []int, status models.MatchStatus) ([]models.Match, error) {
	return s.bulk(ctx, ids, status)
}

type stubPlayerService struct {
	services.PlayerService
	importPlayers func(ctx context.Context, universityID int, players models.PlayerList) (*services.ImportResult, error)
	importRows    func(ctx context.Context, universityID int, rows []services.ImportRow) (*services.ImportResult, error)
	bulkCheckIn   func(ctx context.Context, universityID int, ids []int) ([]int, error)
	list          func(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error)
}

func (s *stubPlayerService) Import(ctx context.Context, universityID int, players models.PlayerList) (*services.ImportResult, error) {
	return s.importPlayers(ctx, universityID, players)
}

func (s *stubPlayerService) ImportRows(ctx context.Context, universityID int, rows []services.ImportRow) (*services.ImportResult, error) {
	return s.importRows(ctx, universityID, rows)
}

func (s *stubPlayerService) BulkCheckIn(ctx context.Context, universityID int, ids []int) ([]int, error) {
	return s.bulkCheckIn(ctx, universityID, ids)
}

func (s *stubPlayerService) List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error) {
	return s.list(ctx, filter)
}

type stubUniversityService struct {
	services.UniversityService
	adjust     func(ctx context.Context, id, delta int) (*models.University, error)
	set        func(ctx context.Context, id, points int) (*models.University, error)
	uploadLogo func(ctx context.Context, id int, contentType string, r io.Reader) (*models.University, error)
	list       func(ctx context.Context, filter models.UniversityFilter) ([]models.University, error)
}

func (s *stubUniversityService) AdjustPoints(ctx context.Context, id, delta int) (*models.University, error) {
	return s.adjust(ctx, id, delta)
}

func (s *stubUniversityService) SetPoints(ctx context.Context, id, points int) (*models.University, error) {
	return s.set(ctx, id, points)
}

func (s *stubUniversityService) UploadLogo(ctx context.Context, id int, contentType string, r io.Reader) (*models.University, error) {
	return s.uploadLogo(ctx, id, contentType, r)
}

func (s *stubUniversityService) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, error) {
	return s.list(ctx, filter)
}

type stubRequestService struct {
	services.RequestService
	approveAdmin     func(ctx context.Context, id, reviewerID int) (*models.AdminRequest, error)
	rejectUniversity func(ctx context.Context, id, reviewerID int, reason *string) (*models.UniversityRequest, error)
}

func (s *stubRequestService) ApproveAdminRequest(ctx context.Context, id, reviewerID int) (*models.AdminRequest, error) {
	return s.approveAdmin(ctx, id, reviewerID)
}

func (s *stubRequestService) RejectUniversityRequest(ctx context.Context, id, reviewerID int, reason *string) (*models.UniversityRequest, error) {
	return s.rejectUniversity(ctx, id, reviewerID, reason)
}

type stubAuthService struct {
	services.AuthService
	login func(ctx context.Context, input services.LoginInput) (*models.User, error)
}

func (s *stubAuthService) Login(ctx context.Context, input services.LoginInput) (*models.User, error) {
	return s.login(ctx, input)
}

// serve routes one request through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

// asUser wraps h so the request carries claims as if Authenticate had run.
func asUser(id int, role models.UserRole, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithClaims(r.Context(), jwt.MapClaims{
			middleware.ClaimUserID: float64(id),
			middleware.ClaimRole:   string(role),
		})
		h(w, r.WithContext(ctx))
	}
}

func requireErrorBody(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"error"`)
}
