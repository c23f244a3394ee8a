package services

import (
	"context"
	"testing"
	"time"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/realtime"
	"github.com/nhsf/dharmic-games/sports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchFixture struct {
	svc         *matchService
	matches     *fakeMatchRepo
	tournaments *fakeTournamentRepo
	publisher   *recordingPublisher
	tx          *fakeTx
}

func newMatchFixture() *matchFixture {
	f := &matchFixture{
		matches:     newFakeMatchRepo(),
		tournaments: newFakeTournamentRepo(),
		publisher:   &recordingPublisher{},
		tx:          &fakeTx{},
	}
	svc := NewMatchService(f.matches, f.tournaments, f.tx, sports.Default(), f.publisher, nil, discardLogger()).(*matchService)
	svc.now = fixedClock
	f.svc = svc
	return f
}

func (f *matchFixture) friendly(t *testing.T, sport, team1, team2 string) *models.Match {
	t.Helper()
	m, err := f.svc.Create(context.Background(), MatchInput{Sport: sport, Team1: &team1, Team2: &team2})
	require.NoError(t, err)
	return m
}

func TestIsValidMatchTransition(t *testing.T) {
	tests := []struct {
		from, to models.MatchStatus
		want     bool
	}{
		{models.MatchStatusScheduled, models.MatchStatusLive, true},
		{models.MatchStatusScheduled, models.MatchStatusCompleted, true},
		{models.MatchStatusLive, models.MatchStatusCompleted, true},
		{models.MatchStatusCompleted, models.MatchStatusLive, true},
		{models.MatchStatusLive, models.MatchStatusScheduled, false},
		{models.MatchStatusCompleted, models.MatchStatusScheduled, false},
		{models.MatchStatusLive, models.MatchStatusLive, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, isValidMatchTransition(tt.from, tt.to))
		})
	}
}

func TestMatchService_CreateDefaultsTitleAndPublishes(t *testing.T) {
	f := newMatchFixture()
	m := f.friendly(t, "Football", "Leeds", "Manchester")

	assert.Equal(t, "Leeds vs Manchester", m.Title)
	assert.Equal(t, "football", m.Sport)
	assert.Equal(t, models.MatchStatusScheduled, m.Status)

	events := f.publisher.ofType(realtime.TypeMatchCreated)
	require.Len(t, events, 1)
	assert.Equal(t, []string{realtime.RoomMatches}, events[0].Rooms)
}

func TestMatchService_CreateValidation(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	leeds := "Leeds"
	sameLeeds := " leeds "

	_, err := f.svc.Create(ctx, MatchInput{Sport: "cricket", Team1: &leeds, Team2: &sameLeeds})
	assert.ErrorIs(t, err, ErrUnknownSport)

	_, err = f.svc.Create(ctx, MatchInput{Sport: "football", Team1: &leeds, Team2: &sameLeeds})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.Create(ctx, MatchInput{Sport: "football", Team1: &leeds})
	assert.ErrorIs(t, err, ErrValidationFailed, "a title is needed when a team is missing")
}

func TestMatchService_UpdateScore(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	m := f.friendly(t, "football", "Leeds", "Manchester")

	updated, err := f.svc.UpdateScore(ctx, m.ID, " 2-1 ")
	require.NoError(t, err)
	require.NotNil(t, updated.Score)
	assert.Equal(t, "2-1", *updated.Score)
	assert.Len(t, f.publisher.ofType(realtime.TypeMatchUpdated), 1)

	_, err = f.svc.UpdateScore(ctx, m.ID, "two-one")
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = f.svc.UpdateScore(ctx, 999, "1-0")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchService_UpdateScoreRejectsCompletedMatch(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	m := f.friendly(t, "football", "Leeds", "Manchester")

	_, err := f.svc.UpdateScore(ctx, m.ID, "1-0")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusCompleted})
	require.NoError(t, err)

	_, err = f.svc.UpdateScore(ctx, m.ID, "3-0")
	assert.ErrorIs(t, err, ErrMatchCompleted)
}

func TestMatchService_CompleteDerivesWinner(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	m := f.friendly(t, "football", "Leeds", "Manchester")

	_, err := f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusCompleted})
	assert.ErrorIs(t, err, ErrMatchResultRequired)

	_, err = f.svc.UpdateScore(ctx, m.ID, "0-2")
	require.NoError(t, err)
	done, err := f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, done.Winner)
	assert.Equal(t, "Manchester", *done.Winner)
}

func TestMatchService_CompleteWithOverrideAndDraw(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()

	m := f.friendly(t, "football", "Leeds", "Manchester")
	_, err := f.svc.UpdateScore(ctx, m.ID, "1-1")
	require.NoError(t, err)
	draw, err := f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusCompleted})
	require.NoError(t, err)
	assert.Nil(t, draw.Winner, "friendly draws have no winner")

	other := f.friendly(t, "football", "Bristol", "Exeter")
	stranger := "Oxford"
	_, err = f.svc.UpdateStatus(ctx, other.ID, StatusInput{Status: models.MatchStatusCompleted, Winner: &stranger})
	assert.ErrorIs(t, err, ErrInvalidWinner)

	exeter := "exeter"
	won, err := f.svc.UpdateStatus(ctx, other.ID, StatusInput{Status: models.MatchStatusCompleted, Winner: &exeter})
	require.NoError(t, err)
	assert.Equal(t, "Exeter", *won.Winner)
}

func TestMatchService_InvalidTransition(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	m := f.friendly(t, "football", "Leeds", "Manchester")

	_, err := f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusLive})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusScheduled})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: "paused"})
	assert.ErrorIs(t, err, ErrInvalidMatchStatus)
}

func TestMatchService_BulkUpdateStatus(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	a := f.friendly(t, "kabaddi", "Leeds", "Manchester")
	b := f.friendly(t, "kabaddi", "Bristol", "Exeter")

	updated, err := f.svc.BulkUpdateStatus(ctx, []int{a.ID, b.ID, a.ID}, models.MatchStatusLive)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, models.MatchStatusLive, f.matches.get(a.ID).Status)
	assert.Equal(t, models.MatchStatusLive, f.matches.get(b.ID).Status)
	assert.Equal(t, 1, f.tx.calls)

	_, err = f.svc.BulkUpdateStatus(ctx, nil, models.MatchStatusLive)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.svc.BulkUpdateStatus(ctx, []int{404, a.ID}, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchService_StartDueMatches(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Hour)
	leeds, man := "Leeds", "Manchester"

	due, err := f.svc.Create(ctx, MatchInput{Sport: "netball", Team1: &leeds, Team2: &man, ScheduledAt: &past})
	require.NoError(t, err)
	later, err := f.svc.Create(ctx, MatchInput{Sport: "netball", Team1: &man, Team2: &leeds, ScheduledAt: &future})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, MatchInput{Title: "Final", Sport: "netball", ScheduledAt: &past})
	require.NoError(t, err)

	started, err := f.svc.StartDueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, started, "matches without teams are skipped")
	assert.Equal(t, models.MatchStatusLive, f.matches.get(due.ID).Status)
	assert.Equal(t, models.MatchStatusScheduled, f.matches.get(later.ID).Status)
}

func TestMatchService_BracketMatchesAreLocked(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	tid := 3
	m := &models.Match{TournamentID: &tid, Title: "Final", Sport: "football", Status: models.MatchStatusScheduled}
	require.NoError(t, f.matches.Create(ctx, nil, m))

	assert.ErrorIs(t, f.svc.Delete(ctx, m.ID), ErrBracketMatchLocked)

	team := "Leeds"
	_, err := f.svc.Update(ctx, m.ID, MatchInput{Team1: &team})
	assert.ErrorIs(t, err, ErrBracketMatchLocked)

	renamed, err := f.svc.Update(ctx, m.ID, MatchInput{Title: "Grand Final"})
	require.NoError(t, err)
	assert.Equal(t, "Grand Final", renamed.Title)
	events := f.publisher.ofType(realtime.TypeMatchUpdated)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Rooms, realtime.TournamentRoom(tid))
}

func TestMatchService_UpdateRefusesTeamChangesOnceStarted(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	m := f.friendly(t, "football", "Leeds", "Warwick")
	_, err := f.svc.UpdateScore(ctx, m.ID, "2-1")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, m.ID, StatusInput{Status: models.MatchStatusCompleted})
	require.NoError(t, err)

	cardiff := "Cardiff"
	_, err = f.svc.Update(ctx, m.ID, MatchInput{Team1: &cardiff})
	assert.ErrorIs(t, err, ErrMatchAlreadyStarted)
	_, err = f.svc.Update(ctx, m.ID, MatchInput{Sport: "kabaddi"})
	assert.ErrorIs(t, err, ErrMatchAlreadyStarted)

	stored := f.matches.get(m.ID)
	assert.Equal(t, "Leeds", *stored.Team1)
	assert.Equal(t, "Leeds", *stored.Winner)

	leeds := "Leeds"
	same, err := f.svc.Update(ctx, m.ID, MatchInput{Team1: &leeds, Sport: "Football", Title: "Varsity"})
	require.NoError(t, err, "resending unchanged teams is allowed")
	assert.Equal(t, "Varsity", same.Title)
}

func TestMatchService_UpdateKeepsOmittedStartTime(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	kickoff := fixedNow.Add(3 * time.Hour)
	team1, team2 := "Leeds", "Warwick"
	m, err := f.svc.Create(ctx, MatchInput{Sport: "football", Team1: &team1, Team2: &team2, ScheduledAt: &kickoff})
	require.NoError(t, err)

	renamed, err := f.svc.Update(ctx, m.ID, MatchInput{Title: "Roses"})
	require.NoError(t, err)
	require.NotNil(t, renamed.ScheduledAt)
	assert.True(t, kickoff.Equal(*renamed.ScheduledAt))

	later := kickoff.Add(time.Hour)
	moved, err := f.svc.Update(ctx, m.ID, MatchInput{ScheduledAt: &later})
	require.NoError(t, err)
	assert.True(t, later.Equal(*moved.ScheduledAt))
	assert.Equal(t, "Roses", moved.Title)

	bristol := "Bristol"
	swapped, err := f.svc.Update(ctx, m.ID, MatchInput{Team2: &bristol})
	require.NoError(t, err, "scheduled matches can still change teams")
	assert.Equal(t, "Bristol", *swapped.Team2)
}
