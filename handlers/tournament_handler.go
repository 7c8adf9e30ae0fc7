package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/arcade-tournaments/middleware"
	"github.com/Dosada05/arcade-tournaments/models"
	"github.com/Dosada05/arcade-tournaments/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	rankingService    services.RankingService
	matchService      services.MatchService
}

func NewTournamentHandler(ts services.TournamentService, rs services.RankingService, ms services.MatchService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		rankingService:    rs,
		matchService:      ms,
	}
}

// CreateHandler handles POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"id": tournament.ID, "tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments?status=open
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" && models.TournamentStatus(status) != models.StatusOpen {
		badRequestResponse(w, r, errors.New("only status=open can be listed"))
		return
	}

	tournaments, err := h.tournamentService.ListOpenTournaments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MineHandler handles GET /tournaments/mine
func (h *TournamentHandler) MineHandler(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournament, err := h.tournamentService.GetTournamentByCreator(r.Context(), user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler handles DELETE /tournaments/{tournamentID}
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndTournament(w, r)
	if !ok {
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), id, user.ID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament deleted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// JoinHandler handles POST /tournaments/{tournamentID}/join
func (h *TournamentHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndTournament(w, r)
	if !ok {
		return
	}

	participant, err := h.tournamentService.JoinTournament(r.Context(), id, user.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// NextMatchHandler handles GET /tournaments/{tournamentID}/next-match
func (h *TournamentHandler) NextMatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pairing, err := h.rankingService.NextPairing(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pairing": pairing}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResultHandler handles POST /tournaments/{tournamentID}/matches
func (h *TournamentHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndTournament(w, r)
	if !ok {
		return
	}

	var input models.MatchResult
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.SubmitTournamentResult(r.Context(), id, user.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EliminateLoserHandler handles DELETE /tournaments/{tournamentID}/loser
func (h *TournamentHandler) EliminateLoserHandler(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndTournament(w, r)
	if !ok {
		return
	}

	var input models.MatchResult
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	loser, err := h.matchService.EliminateLoser(r.Context(), id, user.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"eliminated": loser}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WinnerHandler handles GET /tournaments/{tournamentID}/winner
func (h *TournamentHandler) WinnerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.TournamentWinner(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	env := jsonResponse{"result": result}
	if !result.Decided {
		env["message"] = "none yet"
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// userAndTournament reads the caller and the tournament id, writing the
// error response itself when either is missing.
func (h *TournamentHandler) userAndTournament(w http.ResponseWriter, r *http.Request) (models.AuthUser, int64, bool) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return models.AuthUser{}, 0, false
	}

	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return models.AuthUser{}, 0, false
	}
	return user, id, true
}
