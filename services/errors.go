package services

import (
	"errors"

	"github.com/Dosada05/arcade-tournaments/brackets"
)

// Errors shared by the services and mapped to HTTP statuses by the handlers.
var (
	// Not found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant not found in this tournament")
	ErrUserNotFound        = errors.New("user not found")

	// Forbidden
	ErrForbiddenOperation  = errors.New("only the tournament creator can perform this action")
	ErrNotMatchParticipant = errors.New("only player1 can report a casual match")

	// Conflicts
	ErrTournamentAlreadyOwned  = errors.New("user already owns a tournament")
	ErrParticipantNameConflict = errors.New("name is already used by a participant of this tournament")

	// Capacity
	ErrTournamentFull = errors.New("tournament already has the maximum number of participants")

	// Invalid state
	ErrInvalidBracketState = brackets.ErrInvalidBracketState
	ErrUnexpectedPairing   = errors.New("result does not match the current or upcoming pairing")
	ErrRegistrationClosed  = errors.New("tournament is no longer accepting participants")
	ErrDrawNotAllowed      = errors.New("tournament matches cannot end in a draw")

	// Validation
	ErrInvalidAlias       = errors.New("alias must be between 1 and 32 characters")
	ErrInvalidMatchResult = errors.New("invalid match result")
	ErrInvalidGameMode    = errors.New("casual matches must be pong or snake")
)
