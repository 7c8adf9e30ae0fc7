package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/arcade-tournaments/brackets"
	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/Dosada05/arcade-tournaments/handlers"
	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/Dosada05/arcade-tournaments/repositories"
	"github.com/Dosada05/arcade-tournaments/routes"
	"github.com/Dosada05/arcade-tournaments/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handlers-test-secret"

type apiEnv struct {
	server *httptest.Server
	store  *db.Store
	hub    *brackets.Hub
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store, err := db.Connect(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "api.db"), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := brackets.NewHub(zerolog.Nop())
	go hub.Run(ctx)

	userRepo := repositories.NewUserRepository(store)
	tournamentRepo := repositories.NewTournamentRepository(store)
	participantRepo := repositories.NewParticipantRepository(store)
	matchRepo := repositories.NewMatchRepository(store)

	tournamentService := services.NewTournamentService(store, tournamentRepo, participantRepo, userRepo, hub, zerolog.Nop())
	rankingService := services.NewRankingService(tournamentRepo, participantRepo, userRepo, matchRepo, nil)
	matchService := services.NewMatchService(store, tournamentRepo, participantRepo, matchRepo, userRepo, rankingService, hub, services.DefaultMatchPolicy(), zerolog.Nop())

	router := chi.NewRouter()
	routes.SetupRoutes(
		router,
		routes.Options{JWTSecret: testSecret, AllowedOrigins: []string{"*"}, Logger: zerolog.Nop()},
		handlers.NewHealthHandler(store),
		handlers.NewTournamentHandler(tournamentService, rankingService, matchService),
		handlers.NewParticipantHandler(tournamentService),
		handlers.NewMatchHandler(matchService),
		handlers.NewWebSocketHandler(hub, tournamentService, []string{"*"}),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiEnv{server: server, store: store, hub: hub}
}

// login inserts the account and returns a bearer token for it.
func (e *apiEnv) login(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()
	_, err := e.store.Run(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, username, username+"@example.com")
	require.NoError(t, err)
	user, err := repositories.NewUserRepository(e.store).GetByUsername(ctx, username)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decode(t *testing.T, raw json.RawMessage, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dst))
}

func result(p1, p2 string, s1, s2 int) models.MatchResult {
	return models.MatchResult{Player1Name: p1, Player2Name: p2, ScorePlayer1: s1, ScorePlayer2: s2}
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	status, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"ok"`, string(body["status"]))
}

func TestAPIRequiresToken(t *testing.T) {
	env := newAPIEnv(t)
	status, body := env.do(t, http.MethodGet, "/api/v1/tournaments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "error")
}

func TestTournamentBracketOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	carol := env.login(t, "carol")

	status, body := env.do(t, http.MethodPost, "/api/v1/tournaments", carol, nil)
	require.Equal(t, http.StatusOK, status)
	var id int64
	decode(t, body["id"], &id)
	base := fmt.Sprintf("/api/v1/tournaments/%d", id)

	status, _ = env.do(t, http.MethodPost, "/api/v1/tournaments", carol, nil)
	assert.Equal(t, http.StatusBadRequest, status, "one tournament per creator")

	for _, alias := range []string{"A2", "A3", "A4"} {
		status, _ = env.do(t, http.MethodPost, base+"/participants/alias", carol, map[string]string{"alias": alias})
		require.Equal(t, http.StatusOK, status)
	}
	status, _ = env.do(t, http.MethodPost, base+"/participants/alias", carol, map[string]string{"alias": "A5"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodGet, base+"/next-match", carol, nil)
	require.Equal(t, http.StatusOK, status)
	var pairing models.Pairing
	decode(t, body["pairing"], &pairing)
	assert.Equal(t, models.RoundSemiFinal1, pairing.Round)
	assert.True(t, pairing.Current.Matches("A2", "carol"))
	require.NotNil(t, pairing.Upcoming)
	assert.True(t, pairing.Upcoming.Matches("A3", "A4"))

	status, _ = env.do(t, http.MethodPost, base+"/matches", carol, result("A3", "carol", 5, 1))
	assert.Equal(t, http.StatusBadRequest, status, "not an announced pair")

	status, _ = env.do(t, http.MethodPost, base+"/matches", carol, result("A2", "carol", 3, 10))
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, base+"/winner", carol, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"none yet"`, string(body["message"]))

	status, _ = env.do(t, http.MethodPost, base+"/participants/alias", carol, map[string]string{"alias": "Late"})
	assert.Equal(t, http.StatusBadRequest, status, "registration closes after the first result")

	status, body = env.do(t, http.MethodGet, base+"/next-match", carol, nil)
	require.Equal(t, http.StatusOK, status)
	decode(t, body["pairing"], &pairing)
	assert.Equal(t, models.RoundSemiFinal2, pairing.Round)
	require.NotNil(t, pairing.Bye)
	assert.Equal(t, "carol", pairing.Bye.Name)

	status, _ = env.do(t, http.MethodPost, base+"/matches", carol, result("A3", "A4", 7, 2))
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodPost, base+"/matches", carol, result("carol", "A3", 4, 7))
	require.Equal(t, http.StatusOK, status)
	var outcome models.MatchOutcome
	decode(t, body["outcome"], &outcome)
	assert.Equal(t, "carol", outcome.Eliminated)
	require.NotNil(t, outcome.Winner)
	assert.Equal(t, "A3", outcome.Winner.Winner.Name())

	status, body = env.do(t, http.MethodGet, base+"/winner", carol, nil)
	require.Equal(t, http.StatusOK, status)
	var winner models.WinnerResult
	decode(t, body["result"], &winner)
	assert.True(t, winner.Decided)
	assert.NotContains(t, body, "message")

	status, body = env.do(t, http.MethodGet, "/api/v1/players/carol/stats", carol, nil)
	require.Equal(t, http.StatusOK, status)
	var stats models.PlayerStats
	decode(t, body["stats"], &stats)
	assert.Equal(t, 2, stats.Played)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
}

func TestTournamentPermissions(t *testing.T) {
	env := newAPIEnv(t)
	carol := env.login(t, "carol")
	dave := env.login(t, "dave")

	status, body := env.do(t, http.MethodPost, "/api/v1/tournaments", carol, nil)
	require.Equal(t, http.StatusOK, status)
	var id int64
	decode(t, body["id"], &id)
	base := fmt.Sprintf("/api/v1/tournaments/%d", id)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"outsider adds alias", http.MethodPost, base + "/participants/alias", map[string]string{"alias": "X"}, http.StatusForbidden},
		{"outsider joins", http.MethodPost, base + "/join", nil, http.StatusForbidden},
		{"outsider deletes", http.MethodDelete, base, nil, http.StatusForbidden},
		{"outsider resets", http.MethodDelete, base + "/participants", nil, http.StatusForbidden},
		{"unknown tournament", http.MethodGet, "/api/v1/tournaments/9999", nil, http.StatusNotFound},
		{"invalid id", http.MethodGet, "/api/v1/tournaments/abc", nil, http.StatusBadRequest},
		{"no tournament of my own", http.MethodGet, "/api/v1/tournaments/mine", nil, http.StatusNotFound},
		{"unsupported status filter", http.MethodGet, "/api/v1/tournaments?status=closed", nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/matches", map[string]string{"nope": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, tt.method, tt.path, dave, tt.body)
			assert.Equal(t, tt.want, status)
			assert.Contains(t, body, "error")
		})
	}

	status, body = env.do(t, http.MethodGet, "/api/v1/tournaments?status=open", dave, nil)
	require.Equal(t, http.StatusOK, status)
	var open []models.OpenTournament
	decode(t, body["tournaments"], &open)
	require.Len(t, open, 1)
	assert.Equal(t, "carol", open[0].CreatorName)
}

func TestCasualMatchesOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	ana := env.login(t, "ana")

	match := map[string]interface{}{
		"player1_name":  "ana",
		"player2_name":  "guest",
		"player1_score": 11,
		"player2_score": 4,
		"game_mode":     "pong",
	}
	status, _ := env.do(t, http.MethodPost, "/api/v1/matches", ana, match)
	require.Equal(t, http.StatusCreated, status)

	match["player1_name"] = "guest"
	match["player2_name"] = "ana"
	status, _ = env.do(t, http.MethodPost, "/api/v1/matches", ana, match)
	assert.Equal(t, http.StatusForbidden, status)

	match["player1_name"] = "ana"
	match["player2_name"] = "guest"
	match["game_mode"] = "tournament"
	status, _ = env.do(t, http.MethodPost, "/api/v1/matches", ana, match)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodGet, "/api/v1/players/ana/matches?limit=5", ana, nil)
	require.Equal(t, http.StatusOK, status)
	var matches []models.Match
	decode(t, body["matches"], &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, models.GameModePong, matches[0].GameMode)

	status, _ = env.do(t, http.MethodGet, "/api/v1/players/ana/matches?limit=-1", ana, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebSocketReceivesParticipantUpdates(t *testing.T) {
	env := newAPIEnv(t)
	carol := env.login(t, "carol")

	status, body := env.do(t, http.MethodPost, "/api/v1/tournaments", carol, nil)
	require.Equal(t, http.StatusOK, status)
	var id int64
	decode(t, body["id"], &id)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + fmt.Sprintf("/ws/tournaments/%d", id)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.hub.ClientCount(brackets.RoomForTournament(id)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tournaments/%d/participants/alias", id), carol, map[string]string{"alias": "Rook"})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg brackets.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, brackets.EventParticipantsUpdated, msg.Type)
	assert.Equal(t, brackets.RoomForTournament(id), msg.RoomID)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.server.URL, "http")+"/ws/tournaments/9999", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
