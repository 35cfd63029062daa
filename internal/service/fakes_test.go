package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/trivia-wave/internal/boost"
	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory Repository
type fakeRepo struct {
	mu           sync.Mutex
	nextID       int64
	waves        map[int64]*domain.Wave
	lobbies      map[string]*domain.Lobby
	participants map[string]domain.Participation
	actions      []domain.PlayerAction
	inventory    map[string]int
	users        map[string]*domain.User
	txs          []domain.TrophyTx
	loots        []domain.LootGrant
	batches      []domain.RewardBatch
	failStars    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		waves:        make(map[int64]*domain.Wave),
		lobbies:      make(map[string]*domain.Lobby),
		participants: make(map[string]domain.Participation),
		inventory:    make(map[string]int),
		users:        make(map[string]*domain.User),
	}
}

func participantKey(waveID int64, userID string) string {
	return fmt.Sprintf("%d:%s", waveID, userID)
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) CreateWave(ctx context.Context, w *domain.Wave, canCreate func(latest *domain.Wave) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.Wave
	for _, existing := range r.waves {
		if existing.ChannelID == w.ChannelID && (latest == nil || existing.ID > latest.ID) {
			latest = existing
		}
	}
	if err := canCreate(latest); err != nil {
		return err
	}

	w.ID = r.id()
	cp := *w
	r.waves[w.ID] = &cp
	r.lobbies[w.ZeroLobbyID] = &domain.Lobby{ID: w.ZeroLobbyID, WaveID: w.ID, ChannelID: w.ChannelID, ZeroLobby: true}
	return nil
}

func (r *fakeRepo) copyWave(w *domain.Wave) *domain.Wave {
	cp := *w
	cp.Questions = append([]domain.WaveQuestion(nil), w.Questions...)
	return &cp
}

func (r *fakeRepo) GetWave(ctx context.Context, waveID int64) (*domain.Wave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waves[waveID]
	if !ok {
		return nil, domain.ErrWaveNotFound
	}
	return r.copyWave(w), nil
}

func (r *fakeRepo) LatestWave(ctx context.Context, channelID string) (*domain.Wave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Wave
	for _, w := range r.waves {
		if w.ChannelID == channelID && (latest == nil || w.ID > latest.ID) {
			latest = w
		}
	}
	if latest == nil {
		return nil, domain.ErrWaveNotFound
	}
	return r.copyWave(latest), nil
}

func (r *fakeRepo) WavesInStatus(ctx context.Context, statuses []domain.WaveStatus, limit int) ([]domain.Wave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Wave
	for _, w := range r.waves {
		for _, s := range statuses {
			if w.Status == s {
				out = append(out, *r.copyWave(w))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) AddQuestion(ctx context.Context, q *domain.WaveQuestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waves[q.WaveID]
	if !ok {
		return domain.ErrWaveNotFound
	}
	q.ID = r.id()
	w.Questions = append(w.Questions, *q)
	w.SortQuestions()
	return nil
}

func (r *fakeRepo) TransitionWave(ctx context.Context, waveID int64, from, to domain.WaveStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waves[waveID]
	if !ok {
		return domain.ErrWaveNotFound
	}
	if w.Status != from {
		return domain.ErrInvalidTransition
	}
	w.Status = to
	return nil
}

func (r *fakeRepo) FinishResolution(ctx context.Context, waveID int64, resolveAt, showResolveAt, finishAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waves[waveID]
	if !ok {
		return domain.ErrWaveNotFound
	}
	w.ResolveAt, w.ShowResolveAt, w.FinishAt = &resolveAt, &showResolveAt, &finishAt
	w.Status = domain.StatusWaveResults
	return nil
}

func (r *fakeRepo) EmptyChannelHistory(ctx context.Context, channelID string, till *time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lobbyIDs []string
	for id, w := range r.waves {
		if w.ChannelID != channelID || (till != nil && w.CreatedAt.After(*till)) {
			continue
		}
		for lid, l := range r.lobbies {
			if l.WaveID == id {
				lobbyIDs = append(lobbyIDs, lid)
				delete(r.lobbies, lid)
			}
		}
		delete(r.waves, id)
	}
	sort.Strings(lobbyIDs)
	return lobbyIDs, nil
}

func (r *fakeRepo) CreateLobby(ctx context.Context, l *domain.Lobby, participants []domain.Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[l.ID]; ok {
		return domain.ErrLobbyExists
	}
	cp := *l
	r.lobbies[l.ID] = &cp
	for _, p := range participants {
		r.participants[participantKey(p.WaveID, p.UserID)] = p
	}
	return nil
}

func (r *fakeRepo) GetLobby(ctx context.Context, lobbyID string) (*domain.Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lobbies[lobbyID]
	if !ok {
		return nil, domain.ErrLobbyNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeRepo) WaveLobbies(ctx context.Context, waveID int64) ([]domain.Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Lobby
	for _, l := range r.lobbies {
		if l.WaveID == waveID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetParticipation(ctx context.Context, waveID int64, userID string) (*domain.Participation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantKey(waveID, userID)]
	if !ok {
		return nil, domain.ErrParticipationNotFound
	}
	return &p, nil
}

func (r *fakeRepo) JoinLobby(ctx context.Context, p domain.Participation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := participantKey(p.WaveID, p.UserID)
	if _, ok := r.participants[key]; ok {
		return false, nil
	}
	r.participants[key] = p
	return true, nil
}

func (r *fakeRepo) Usernames(ctx context.Context, userIDs []string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make(map[string]string)
	for _, id := range userIDs {
		if u, ok := r.users[id]; ok {
			names[id] = u.Username
		}
	}
	return names, nil
}

func (r *fakeRepo) findAnswer(userID, lobbyID string, waveQuestionID int64) *domain.PlayerAction {
	for i := range r.actions {
		a := &r.actions[i]
		if a.ActionType == domain.ActionAnswer && a.UserID == userID && a.LobbyID == lobbyID && a.WaveQuestionID == waveQuestionID {
			return a
		}
	}
	return nil
}

func (r *fakeRepo) FindAnswer(ctx context.Context, userID, lobbyID string, waveQuestionID int64) (*domain.PlayerAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.findAnswer(userID, lobbyID, waveQuestionID)
	if a == nil {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) InsertAnswer(ctx context.Context, a *domain.PlayerAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findAnswer(a.UserID, a.LobbyID, a.WaveQuestionID) != nil {
		return domain.ErrAlreadyAnswered
	}
	a.ID = r.id()
	a.ActionType = domain.ActionAnswer
	r.actions = append(r.actions, *a)
	return nil
}

func (r *fakeRepo) InsertBoostAction(ctx context.Context, a *domain.PlayerAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id()
	a.ActionType = domain.ActionBoost
	r.actions = append(r.actions, *a)
	return nil
}

func (r *fakeRepo) UpdateAnswerStars(ctx context.Context, actionID int64, stars int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStars != nil {
		return r.failStars
	}
	for i := range r.actions {
		if r.actions[i].ID == actionID {
			r.actions[i].StarsDistributed = &stars
			return nil
		}
	}
	return errors.New("action not found")
}

func (r *fakeRepo) LobbyAnswers(ctx context.Context, lobbyID string) ([]domain.PlayerAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PlayerAction
	for _, a := range r.actions {
		if a.ActionType == domain.ActionAnswer && a.LobbyID == lobbyID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) LobbyStandings(ctx context.Context, lobbyID string) ([]domain.LobbyStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type row struct {
		standing domain.LobbyStanding
		firstID  int64
	}
	rows := make(map[string]*row)
	for _, p := range r.participants {
		if p.LobbyID != lobbyID {
			continue
		}
		st := domain.LobbyStanding{UserID: p.UserID, Level: 1}
		if u, ok := r.users[p.UserID]; ok {
			st.Level, st.Trophies = u.Level, u.Trophies
		}
		rows[p.UserID] = &row{standing: st}
	}
	for _, a := range r.actions {
		rw, ok := rows[a.UserID]
		if !ok || a.LobbyID != lobbyID || a.ActionType != domain.ActionAnswer {
			continue
		}
		rw.standing.Score += a.Stars()
		if rw.firstID == 0 || a.ID < rw.firstID {
			rw.firstID = a.ID
		}
	}

	list := make([]*row, 0, len(rows))
	for _, rw := range rows {
		list = append(list, rw)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.standing.Score != b.standing.Score {
			return a.standing.Score > b.standing.Score
		}
		if (a.firstID == 0) != (b.firstID == 0) {
			return b.firstID == 0
		}
		if a.firstID != b.firstID {
			return a.firstID < b.firstID
		}
		return a.standing.UserID < b.standing.UserID
	})
	out := make([]domain.LobbyStanding, len(list))
	for i, rw := range list {
		out[i] = rw.standing
	}
	return out, nil
}

func inventoryKey(userID, boostID string) string {
	return userID + ":" + boostID
}

func (r *fakeRepo) UserBoost(ctx context.Context, userID, boostID string) (*domain.UserBoost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.UserBoost{UserID: userID, BoostID: boostID, Amount: r.inventory[inventoryKey(userID, boostID)]}, nil
}

func (r *fakeRepo) ConsumeBoost(ctx context.Context, userID, boostID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := inventoryKey(userID, boostID)
	if r.inventory[key] <= 0 {
		return 0, domain.ErrInsufficientBoostInventory
	}
	r.inventory[key]--
	return r.inventory[key], nil
}

func (r *fakeRepo) GrantBoosts(ctx context.Context, userID string, amounts map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for boostID, n := range amounts {
		r.inventory[inventoryKey(userID, boostID)] += n
	}
	return nil
}

func (r *fakeRepo) TrophyTx(ctx context.Context, lobbyID, userID string) (*domain.TrophyTx, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.LobbyID == lobbyID && tx.UserID == userID {
			cp := tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) WriteRewards(ctx context.Context, rewards domain.RewardBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range rewards.Users {
		user, ok := r.users[u.UserID]
		if !ok {
			user = &domain.User{ID: u.UserID}
			r.users[u.UserID] = user
		}
		user.Level, user.Trophies = u.Level, u.Trophies
	}
	r.loots = append(r.loots, rewards.Loots...)
	r.txs = append(r.txs, rewards.TxList...)
	r.batches = append(r.batches, rewards)
	return nil
}

func (r *fakeRepo) answers() []domain.PlayerAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PlayerAction
	for _, a := range r.actions {
		if a.ActionType == domain.ActionAnswer {
			out = append(out, a)
		}
	}
	return out
}

// addLobby creates a ranked lobby with the given participants
func (r *fakeRepo) addLobby(w *domain.Wave, lobbyID string, userIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies[lobbyID] = &domain.Lobby{ID: lobbyID, WaveID: w.ID, ChannelID: w.ChannelID}
	for _, u := range userIDs {
		r.participants[participantKey(w.ID, u)] = domain.Participation{LobbyID: lobbyID, WaveID: w.ID, UserID: u, ChannelID: w.ChannelID}
	}
}

func (r *fakeRepo) setStatus(waveID int64, status domain.WaveStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waves[waveID].Status = status
}

// fakeState is an in-memory StateStore
type fakeState struct {
	mu          sync.Mutex
	progress    map[string][]domain.ProgressItem
	partials    map[string][]byte
	claims      map[string]string
	applied     map[string][]domain.AppliedBoost
	scores      map[string]map[string]int64
	leaders     map[string]domain.ChannelLeader
	failPartial error
}

func newFakeState() *fakeState {
	return &fakeState{
		progress: make(map[string][]domain.ProgressItem),
		partials: make(map[string][]byte),
		claims:   make(map[string]string),
		applied:  make(map[string][]domain.AppliedBoost),
		scores:   make(map[string]map[string]int64),
		leaders:  make(map[string]domain.ChannelLeader),
	}
}

func stateKey(userID, lobbyID string) string {
	return userID + ":" + lobbyID
}

func questionKey(userID, lobbyID string, questionIndex int) string {
	return fmt.Sprintf("%s:%s:%d", userID, lobbyID, questionIndex)
}

func (s *fakeState) InitProgress(ctx context.Context, userID, lobbyID string, questionsAmount int, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(userID, lobbyID)
	if _, ok := s.progress[key]; ok {
		return false, nil
	}
	s.progress[key] = domain.EmptyProgress(questionsAmount)
	return true, nil
}

func (s *fakeState) GetProgress(ctx context.Context, userID, lobbyID string) ([]domain.ProgressItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProgressItem(nil), s.progress[stateKey(userID, lobbyID)]...), nil
}

func (s *fakeState) SetProgressItem(ctx context.Context, userID, lobbyID string, questionIndex int, item domain.ProgressItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.progress[stateKey(userID, lobbyID)]
	if questionIndex >= len(items) {
		return errors.New("index out of range")
	}
	items[questionIndex] = item
	return nil
}

func (s *fakeState) ReplaceProgress(ctx context.Context, userID, lobbyID string, items []domain.ProgressItem, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[stateKey(userID, lobbyID)] = append([]domain.ProgressItem(nil), items...)
	return nil
}

func (s *fakeState) GetPartialState(ctx context.Context, userID, lobbyID string, questionIndex int) (*domain.PartialQuestionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.partials[questionKey(userID, lobbyID, questionIndex)]
	if !ok {
		return nil, nil
	}
	var state domain.PartialQuestionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *fakeState) SetPartialState(ctx context.Context, userID, lobbyID string, questionIndex int, state *domain.PartialQuestionState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPartial != nil {
		return s.failPartial
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.partials[questionKey(userID, lobbyID, questionIndex)] = raw
	return nil
}

func (s *fakeState) ClaimQuestionBoost(ctx context.Context, userID, lobbyID string, questionIndex int, boostID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := questionKey(userID, lobbyID, questionIndex)
	if _, ok := s.claims[key]; ok {
		return domain.ErrBoostAlreadyApplied
	}
	s.claims[key] = boostID
	return nil
}

func (s *fakeState) ReleaseQuestionBoost(ctx context.Context, userID, lobbyID string, questionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, questionKey(userID, lobbyID, questionIndex))
	return nil
}

func (s *fakeState) ReserveBoost(ctx context.Context, userID, lobbyID string, applied domain.AppliedBoost, limit int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(userID, lobbyID)
	if len(s.applied[key]) >= limit {
		return domain.ErrBoostLimitExceeded
	}
	s.applied[key] = append(s.applied[key], applied)
	return nil
}

func (s *fakeState) ReleaseBoost(ctx context.Context, userID, lobbyID string, applied domain.AppliedBoost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stateKey(userID, lobbyID)
	list := s.applied[key]
	for i := len(list) - 1; i >= 0; i-- {
		b := list[i]
		if b.BoostID == applied.BoostID && b.QuestionIndex == applied.QuestionIndex && b.AppliedAt.Equal(applied.AppliedAt) {
			s.applied[key] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeState) AppliedBoosts(ctx context.Context, userID, lobbyID string) ([]domain.AppliedBoost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AppliedBoost(nil), s.applied[stateKey(userID, lobbyID)]...), nil
}

func (s *fakeState) IncrementLobbyScore(ctx context.Context, lobbyID, userID string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scores[lobbyID] == nil {
		s.scores[lobbyID] = make(map[string]int64)
	}
	s.scores[lobbyID][userID] += delta
	return s.scores[lobbyID][userID], nil
}

func (s *fakeState) GetTopN(ctx context.Context, lobbyID string, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []domain.LeaderboardEntry
	for userID, score := range s.scores[lobbyID] {
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID > entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries, nil
}

func (s *fakeState) ReplaceLobbyScores(ctx context.Context, lobbyID string, scores map[string]int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]int64, len(scores))
	for k, v := range scores {
		cp[k] = v
	}
	s.scores[lobbyID] = cp
	return nil
}

func (s *fakeState) DeleteLobbies(ctx context.Context, lobbyIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range lobbyIDs {
		delete(s.scores, id)
	}
	return nil
}

func (s *fakeState) SetChannelLeader(ctx context.Context, channelID string, leader domain.ChannelLeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaders[channelID] = leader
	return nil
}

func (s *fakeState) ChannelLeader(ctx context.Context, channelID string) (*domain.ChannelLeader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leaders[channelID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *fakeState) DeleteChannelLeader(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leaders, channelID)
	return nil
}

func (s *fakeState) score(lobbyID, userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[lobbyID][userID]
}

// fakeNotifier records published events
type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *fakeNotifier) Notify(ctx context.Context, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) ofType(t domain.EventType) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

// testEnv wires a WaveService to fakes with a controllable clock
type testEnv struct {
	svc      *WaveService
	repo     *fakeRepo
	state    *fakeState
	notifier *fakeNotifier
	cfg      *config.Config
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     newFakeRepo(),
		state:    newFakeState(),
		notifier: &fakeNotifier{},
		cfg:      config.DefaultConfig(),
		now:      t0,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewWaveService(
		env.repo,
		env.state,
		env.notifier,
		boost.DefaultRegistry(),
		&env.cfg.Wave,
		&env.cfg.Rewards,
		logger,
		WithClock(func() time.Time { return env.now }),
		WithRand(firstRand{}),
	)
	return env
}

// runningWave creates a wave in question_revealed with one 30s question starting at t0:
// options A..D, correct index 1, scores 50..350
func (env *testEnv) runningWave(t *testing.T, channelID string) *domain.Wave {
	t.Helper()
	return env.runningWaveScored(t, channelID, 50, 350)
}

func (env *testEnv) runningWaveScored(t *testing.T, channelID string, minScore, maxScore int) *domain.Wave {
	t.Helper()
	ctx := context.Background()

	w, err := env.svc.CreateWave(ctx, domain.CreateWaveRequest{
		ChannelID:          channelID,
		Reason:             "test",
		QuestionsAmount:    5,
		StartAt:            t0,
		PreviousFinishedAt: t0.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("creating wave: %v", err)
	}
	env.addQuestion(t, w, 0, minScore, maxScore)
	env.repo.setStatus(w.ID, domain.StatusQuestionRevealed)

	return env.reload(t, w.ID)
}

func (env *testEnv) reload(t *testing.T, waveID int64) *domain.Wave {
	t.Helper()
	w, err := env.repo.GetWave(context.Background(), waveID)
	if err != nil {
		t.Fatalf("reloading wave: %v", err)
	}
	return w
}

func (env *testEnv) addQuestion(t *testing.T, w *domain.Wave, index, minScore, maxScore int) {
	t.Helper()
	_, err := env.svc.AddWaveQuestion(context.Background(), domain.AddQuestionRequest{
		WaveID:               w.ID,
		Content:              domain.QuestionContent{Title: "Q", Options: []string{"A", "B", "C", "D"}},
		QuestionIndex:        index,
		ShowAt:               t0.Add(-5 * time.Second),
		StartAt:              t0,
		FinishAt:             t0.Add(30 * time.Second),
		MinScore:             minScore,
		MaxScore:             maxScore,
		CorrectAnswerIndexes: []int{1},
	})
	if err != nil {
		t.Fatalf("adding question: %v", err)
	}
}

// join enrolls a user through the current wave screen
func (env *testEnv) join(t *testing.T, channelID, userID string) {
	t.Helper()
	if _, err := env.svc.CurrentWave(context.Background(), channelID, userID); err != nil {
		t.Fatalf("joining wave: %v", err)
	}
}
