package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/realtime"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/nhsf/dharmic-games/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestFixture struct {
	svc                *requestService
	adminRequests      *fakeAdminRequestRepo
	universityRequests *fakeUniversityRequestRepo
	users              *fakeUserRepo
	universities       *fakeUniversityRepo
	notifier           *recordingNotifier
	publisher          *recordingPublisher
}

func newRequestFixture() *requestFixture {
	f := &requestFixture{
		adminRequests:      newFakeAdminRequestRepo(),
		universityRequests: newFakeUniversityRequestRepo(),
		users:              newFakeUserRepo(),
		universities:       newFakeUniversityRepo(),
		notifier:           &recordingNotifier{},
		publisher:          &recordingPublisher{},
	}
	logger := discardLogger()
	leaderboard := NewLeaderboardService(f.universities, f.publisher, logger)
	svc := NewRequestService(f.adminRequests, f.universityRequests, f.users, f.universities,
		&fakeTx{}, sports.Default(), f.notifier, leaderboard, logger).(*requestService)
	svc.now = fixedClock
	f.svc = svc
	return f
}

func TestRequestService_AdminRequestApproval(t *testing.T) {
	f := newRequestFixture()
	ctx := context.Background()

	req, err := f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: " Meera@NHSF.org.uk ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "meera@nhsf.org.uk", req.Email)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.True(t, utils.CheckPasswordHash("s3cret-pass", req.PasswordHash))

	approved, err := f.svc.ApproveAdminRequest(ctx, req.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, 1, *approved.ReviewedBy)

	user, err := f.users.GetByEmail(ctx, "meera@nhsf.org.uk")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, req.PasswordHash, user.PasswordHash)
	require.Len(t, f.notifier.admin, 1)

	_, err = f.svc.ApproveAdminRequest(ctx, req.ID, 1)
	assert.ErrorIs(t, err, ErrRequestNotPending)

	_, err = f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: "meera@nhsf.org.uk", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrUserEmailConflict)
}

func TestRequestService_AdminRequestValidation(t *testing.T) {
	f := newRequestFixture()
	ctx := context.Background()

	_, err := f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: "meera@nhsf.org.uk", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: "nope", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: "meera@nhsf.org.uk", Password: "long-enough"})
	require.NoError(t, err)
	_, err = f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: "MEERA@nhsf.org.uk", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrRequestDuplicate)

	bogus := models.RequestStatus("archived")
	_, err = f.svc.ListAdminRequests(ctx, &bogus)
	assert.ErrorIs(t, err, ErrInvalidRequestStatus)
}

func TestRequestService_AdminRequestSurfacesLookupFailure(t *testing.T) {
	f := newRequestFixture()
	f.users.err = errors.New("connection reset")

	_, err := f.svc.CreateAdminRequest(context.Background(), AdminRequestInput{Name: "Meera", Email: "meera@nhsf.org.uk", Password: "long-enough"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	pending, err := f.adminRequests.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, pending, "no request is stored when the lookup fails")
}

func TestRequestService_RejectKeepsReasonAndIgnoresMailFailure(t *testing.T) {
	f := newRequestFixture()
	f.notifier.err = errors.New("smtp down")
	ctx := context.Background()

	req, err := f.svc.CreateAdminRequest(ctx, AdminRequestInput{Name: "Meera", Email: "meera@nhsf.org.uk", Password: "long-enough"})
	require.NoError(t, err)

	reason := "  not a committee member "
	rejected, err := f.svc.RejectAdminRequest(ctx, req.ID, 2, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "not a committee member", *rejected.Reason)

	_, err = f.users.GetByEmail(ctx, "meera@nhsf.org.uk")
	assert.Error(t, err, "rejected requests create no account")
}

func TestRequestService_UniversityRequestApproval(t *testing.T) {
	f := newRequestFixture()
	ctx := context.Background()

	req, err := f.svc.CreateUniversityRequest(ctx, UniversityRequestInput{
		UniversityName: "University of Leicester",
		Zone:           "north & central",
		ContactName:    "Kiran",
		ContactEmail:   "kiran@le.ac.uk",
		Sports:         []string{"Kabaddi", "kabaddi", "Netball"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ZoneNorthCentral, req.Zone)
	assert.Equal(t, []string{"kabaddi", "netball"}, req.Sports)

	approved, err := f.svc.ApproveUniversityRequest(ctx, req.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, approved.UniversityID)

	u, err := f.universities.GetByID(ctx, *approved.UniversityID)
	require.NoError(t, err)
	assert.Equal(t, "University of Leicester", u.Name)
	assert.True(t, u.Competing)
	assert.Equal(t, []string{"kabaddi", "netball"}, u.Sports)

	assert.Len(t, f.publisher.ofType(realtime.TypeLeaderboardUpdated), 1)
	require.Len(t, f.notifier.university, 1)

	_, err = f.svc.RejectUniversityRequest(ctx, req.ID, 1, nil)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	_, err = f.svc.ApproveUniversityRequest(ctx, 42, 1)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequestService_UniversityRequestValidation(t *testing.T) {
	f := newRequestFixture()
	ctx := context.Background()
	valid := UniversityRequestInput{UniversityName: "Leicester", Zone: "London & South", ContactName: "Kiran", ContactEmail: "kiran@le.ac.uk"}

	in := valid
	in.Zone = "Scotland"
	_, err := f.svc.CreateUniversityRequest(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidZone)

	in = valid
	in.Sports = []string{"quidditch"}
	_, err = f.svc.CreateUniversityRequest(ctx, in)
	assert.ErrorIs(t, err, ErrUnknownSport)

	in = valid
	phone := "call me"
	in.ContactPhone = &phone
	_, err = f.svc.CreateUniversityRequest(ctx, in)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
