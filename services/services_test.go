package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/arcade-tournaments/brackets"
	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/Dosada05/arcade-tournaments/repositories"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	TournamentID int64
	Type         string
	Payload      interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(tournamentID int64, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	store       *db.Store
	notifier    *recordingNotifier
	tournaments TournamentService
	ranking     RankingService
	matches     MatchService
}

func newTestEnv(t *testing.T, policy MatchPolicy) *testEnv {
	t.Helper()

	store, err := db.Connect(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "arcade.db"), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tournamentRepo := repositories.NewTournamentRepository(store)
	participantRepo := repositories.NewParticipantRepository(store)
	userRepo := repositories.NewUserRepository(store)
	matchRepo := repositories.NewMatchRepository(store)

	notifier := &recordingNotifier{}
	ranking := NewRankingService(tournamentRepo, participantRepo, userRepo, matchRepo, brackets.NewSingleEliminationSeeder())

	return &testEnv{
		store:       store,
		notifier:    notifier,
		tournaments: NewTournamentService(store, tournamentRepo, participantRepo, userRepo, notifier, zerolog.Nop()),
		ranking:     ranking,
		matches:     NewMatchService(store, tournamentRepo, participantRepo, matchRepo, userRepo, ranking, notifier, policy, zerolog.Nop()),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	ctx := context.Background()
	_, err := e.store.Run(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, username, username+"@example.com")
	require.NoError(t, err)

	user, err := repositories.NewUserRepository(e.store).GetByUsername(ctx, username)
	require.NoError(t, err)
	return user
}

func (e *testEnv) recordTournamentMatch(t *testing.T, p1, p2 string, id1, id2 *int64, s1, s2 int) {
	t.Helper()
	m := &models.Match{Player1ID: id1, Player2ID: id2, Player1Name: p1, Player2Name: p2, ScorePlayer1: s1, ScorePlayer2: s2, GameMode: models.GameModeTournament}
	switch {
	case s1 > s2:
		m.WinnerID = id1
	case s2 > s1:
		m.WinnerID = id2
	}
	require.NoError(t, repositories.NewMatchRepository(e.store).Create(context.Background(), nil, m))
}

func names(participants []models.Participant) []string {
	out := make([]string, len(participants))
	for i, p := range participants {
		out[i] = p.Name()
	}
	return out
}
