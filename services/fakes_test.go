package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeTx runs fn without a database. Rollback is not simulated.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.calls++
	return fn(nil)
}

type published struct {
	Type    string
	Payload interface{}
	Rooms   []string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(msgType string, payload interface{}, rooms ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Type: msgType, Payload: payload, Rooms: rooms})
}

func (p *recordingPublisher) ofType(msgType string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Type == msgType {
			out = append(out, e)
		}
	}
	return out
}

// --- universities ---

type fakeUniversityRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.University
}

func newFakeUniversityRepo(seed ...models.University) *fakeUniversityRepo {
	r := &fakeUniversityRepo{rows: map[int]models.University{}}
	for _, u := range seed {
		u := u
		_ = r.Create(context.Background(), nil, &u)
	}
	return r
}

func (r *fakeUniversityRepo) Create(ctx context.Context, exec repositories.SQLExecutor, u *models.University) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if strings.EqualFold(existing.Name, u.Name) {
			return repositories.ErrUniversityNameConflict
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = fixedNow
	r.rows[u.ID] = *u
	return nil
}

func (r *fakeUniversityRepo) GetByID(ctx context.Context, id int) (*models.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrUniversityNotFound
	}
	return &u, nil
}

func (r *fakeUniversityRepo) List(ctx context.Context, filter models.UniversityFilter) ([]models.University, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.University, 0, len(r.rows))
	for _, u := range r.rows {
		if filter.Zone != nil && u.Zone != *filter.Zone {
			continue
		}
		if filter.Competing != nil && u.Competing != *filter.Competing {
			continue
		}
		if filter.Sport != nil && !u.CompetesIn(*filter.Sport) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (r *fakeUniversityRepo) Update(ctx context.Context, u *models.University) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[u.ID]; !ok {
		return repositories.ErrUniversityNotFound
	}
	r.rows[u.ID] = *u
	return nil
}

func (r *fakeUniversityRepo) mutate(id int, fn func(u *models.University)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return repositories.ErrUniversityNotFound
	}
	fn(&u)
	r.rows[id] = u
	return nil
}

func (r *fakeUniversityRepo) SetCompeting(ctx context.Context, id int, competing bool) error {
	return r.mutate(id, func(u *models.University) { u.Competing = competing })
}

func (r *fakeUniversityRepo) AdjustPoints(ctx context.Context, id int, delta int) (int, error) {
	var points int
	err := r.mutate(id, func(u *models.University) {
		u.Points += delta
		points = u.Points
	})
	return points, err
}

func (r *fakeUniversityRepo) SetPoints(ctx context.Context, exec repositories.SQLExecutor, id int, points int) error {
	return r.mutate(id, func(u *models.University) { u.Points = points })
}

func (r *fakeUniversityRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	return r.mutate(id, func(u *models.University) { u.LogoKey = logoKey })
}

func (r *fakeUniversityRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrUniversityNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeUniversityRepo) Count(ctx context.Context) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	competing := 0
	for _, u := range r.rows {
		if u.Competing {
			competing++
		}
	}
	return len(r.rows), competing, nil
}

// --- players ---

type fakePlayerRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.Player
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{rows: map[int]models.Player{}}
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = fixedNow
	r.rows[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &p, nil
}

func (r *fakePlayerRepo) List(ctx context.Context, filter models.PlayerFilter) ([]models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Player, 0)
	for _, p := range r.rows {
		if filter.UniversityID != nil && p.UniversityID != *filter.UniversityID {
			continue
		}
		if filter.Sport != nil && p.Sport != *filter.Sport {
			continue
		}
		if filter.CheckedIn != nil && p.CheckedIn != *filter.CheckedIn {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePlayerRepo) Update(ctx context.Context, p *models.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; !ok {
		return repositories.ErrPlayerNotFound
	}
	r.rows[p.ID] = *p
	return nil
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrPlayerNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakePlayerRepo) SetCheckIn(ctx context.Context, id int, checkedIn bool, at *time.Time) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	p.CheckedIn = checkedIn
	p.CheckedInAt = at
	r.rows[id] = p
	return &p, nil
}

func (r *fakePlayerRepo) BulkCheckIn(ctx context.Context, universityID int, playerIDs []int, at time.Time) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[int]bool{}
	for _, id := range playerIDs {
		wanted[id] = true
	}
	var ids []int
	for id, p := range r.rows {
		if p.UniversityID != universityID || p.CheckedIn {
			continue
		}
		if len(wanted) > 0 && !wanted[id] {
			continue
		}
		p.CheckedIn = true
		ts := at
		p.CheckedInAt = &ts
		r.rows[id] = p
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakePlayerRepo) CheckInSummary(ctx context.Context) ([]models.CheckInSummary, error) {
	return nil, nil
}

func (r *fakePlayerRepo) Count(ctx context.Context) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	checked := 0
	for _, p := range r.rows {
		if p.CheckedIn {
			checked++
		}
	}
	return len(r.rows), checked, nil
}

// --- matches ---

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{rows: map[int]models.Match{}}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = fixedNow
	m.UpdatedAt = fixedNow
	r.rows[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *fakeMatchRepo) List(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range r.rows {
		if filter.Sport != nil && m.Sport != *filter.Sport {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.TournamentID != nil && (m.TournamentID == nil || *m.TournamentID != *filter.TournamentID) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Match, error) {
	return r.List(ctx, models.MatchFilter{TournamentID: &tournamentID})
}

func (r *fakeMatchRepo) put(m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[m.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.rows[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) Update(ctx context.Context, m *models.Match) error {
	return r.put(m)
}

func (r *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	return r.put(m)
}

func (r *fakeMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec repositories.SQLExecutor, matchID int, nextMatchID *int, winnerToSlot *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID, m.WinnerToSlot = nextMatchID, winnerToSlot
	r.rows[matchID] = m
	return nil
}

func (r *fakeMatchRepo) SetSlotTeam(ctx context.Context, exec repositories.SQLExecutor, matchID int, slot int, team *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if slot == 1 {
		m.Team1 = team
	} else {
		m.Team2 = team
	}
	r.rows[matchID] = m
	return nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.rows {
		if m.TournamentID != nil && *m.TournamentID == tournamentID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *fakeMatchRepo) LockByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Match, error) {
	return r.ListByTournament(ctx, exec, tournamentID)
}

func (r *fakeMatchRepo) CountByStatus(ctx context.Context) (map[models.MatchStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[models.MatchStatus]int{}
	for _, m := range r.rows {
		out[m.Status]++
	}
	return out, nil
}

func (r *fakeMatchRepo) ListDueToStart(ctx context.Context, now time.Time) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Match
	for _, m := range r.rows {
		if m.Status == models.MatchStatusScheduled && m.ScheduledAt != nil && !m.ScheduledAt.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) get(id int) models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

// --- tournaments ---

type fakeTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{rows: map[int]models.Tournament{}}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = fixedNow
	stored := *t
	stored.Matches = nil
	r.rows[t.ID] = stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0, len(r.rows))
	for _, t := range r.rows {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) UpdateBracketInfo(ctx context.Context, exec repositories.SQLExecutor, id int, participants []string, rounds int, legs int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Participants, t.Rounds, t.Legs = participants, rounds, legs
	r.rows[id] = t
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeTournamentRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

// --- users and requests ---

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.User
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: map[int]models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range r.rows {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = fixedNow
	r.rows[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.rows {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeAdminRequestRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.AdminRequest
}

func newFakeAdminRequestRepo() *fakeAdminRequestRepo {
	return &fakeAdminRequestRepo{rows: map[int]models.AdminRequest{}}
}

func (r *fakeAdminRequestRepo) Create(ctx context.Context, req *models.AdminRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Status == models.RequestStatusPending && strings.EqualFold(existing.Email, req.Email) {
			return repositories.ErrAdminRequestDuplicate
		}
	}
	r.nextID++
	req.ID = r.nextID
	req.CreatedAt = fixedNow
	r.rows[req.ID] = *req
	return nil
}

func (r *fakeAdminRequestRepo) GetByID(ctx context.Context, id int) (*models.AdminRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrAdminRequestNotFound
	}
	return &req, nil
}

func (r *fakeAdminRequestRepo) List(ctx context.Context, status *models.RequestStatus) ([]models.AdminRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AdminRequest, 0)
	for _, req := range r.rows {
		if status == nil || req.Status == *status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAdminRequestRepo) Review(ctx context.Context, exec repositories.SQLExecutor, id int, review models.Review) (*models.AdminRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrAdminRequestNotFound
	}
	if req.Status != models.RequestStatusPending {
		return nil, repositories.ErrRequestNotPending
	}
	at := review.At
	req.Status, req.Reason, req.ReviewedBy, req.ReviewedAt = review.Status, review.Reason, &review.ReviewerID, &at
	r.rows[id] = req
	return &req, nil
}

func (r *fakeAdminRequestRepo) CountPending(ctx context.Context) (int, error) {
	pending := models.RequestStatusPending
	list, _ := r.List(ctx, &pending)
	return len(list), nil
}

type fakeUniversityRequestRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.UniversityRequest
}

func newFakeUniversityRequestRepo() *fakeUniversityRequestRepo {
	return &fakeUniversityRequestRepo{rows: map[int]models.UniversityRequest{}}
}

func (r *fakeUniversityRequestRepo) Create(ctx context.Context, req *models.UniversityRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	req.CreatedAt = fixedNow
	r.rows[req.ID] = *req
	return nil
}

func (r *fakeUniversityRequestRepo) GetByID(ctx context.Context, id int) (*models.UniversityRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrUniversityRequestNotFound
	}
	return &req, nil
}

func (r *fakeUniversityRequestRepo) List(ctx context.Context, status *models.RequestStatus) ([]models.UniversityRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.UniversityRequest, 0)
	for _, req := range r.rows {
		if status == nil || req.Status == *status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUniversityRequestRepo) Review(ctx context.Context, exec repositories.SQLExecutor, id int, review models.Review, universityID *int) (*models.UniversityRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrUniversityRequestNotFound
	}
	if req.Status != models.RequestStatusPending {
		return nil, repositories.ErrRequestNotPending
	}
	at := review.At
	req.Status, req.Reason, req.ReviewedBy, req.ReviewedAt = review.Status, review.Reason, &review.ReviewerID, &at
	req.UniversityID = universityID
	r.rows[id] = req
	return &req, nil
}

func (r *fakeUniversityRequestRepo) CountPending(ctx context.Context) (int, error) {
	pending := models.RequestStatusPending
	list, _ := r.List(ctx, &pending)
	return len(list), nil
}

// --- notifier and uploader ---

type recordingNotifier struct {
	admin      []*models.AdminRequest
	university []*models.UniversityRequest
	err        error
}

func (n *recordingNotifier) AdminRequestReviewed(ctx context.Context, req *models.AdminRequest) error {
	n.admin = append(n.admin, req)
	return n.err
}

func (n *recordingNotifier) UniversityRequestReviewed(ctx context.Context, req *models.UniversityRequest) error {
	n.university = append(n.university, req)
	return n.err
}

type memoryUploader struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: map[string][]byte{}}
}

func (u *memoryUploader) Upload(ctx context.Context, key string, contentType string, file io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(ctx context.Context, key string) error {
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "https://cdn.example.org/" + key
}
