package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/arcade-tournaments/middleware"
	"github.com/Dosada05/arcade-tournaments/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrUserNotFound), http.StatusNotFound},
		{services.ErrForbiddenOperation, http.StatusForbidden},
		{services.ErrNotMatchParticipant, http.StatusForbidden},
		{services.ErrParticipantNameConflict, http.StatusConflict},
		{services.ErrTournamentFull, http.StatusConflict},
		{services.ErrTournamentAlreadyOwned, http.StatusBadRequest},
		{services.ErrUnexpectedPairing, http.StatusBadRequest},
		{services.ErrDrawNotAllowed, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServerErrorIncludesRequestID(t *testing.T) {
	handler := middleware.RequestLogger(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverErrorResponse(w, r, errors.New("boom"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-123", body["request_id"])
	assert.NotContains(t, body["error"], "boom")
}
