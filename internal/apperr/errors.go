package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSessionConflict       = errors.New("rig already has an open session")
	ErrNotOpen               = errors.New("not open")
	ErrDuplicate             = errors.New("duplicate")
	ErrInsufficientWeight    = errors.New("insufficient weight")
	ErrContributionsDisabled = errors.New("contributions disabled")
	ErrContributionLimit     = errors.New("contribution limit reached")
	ErrAlreadyReviewed       = errors.New("already reviewed")
	ErrNotFound              = errors.New("not found")
	ErrInvalid               = errors.New("invalid argument")
)

var kinds = []struct {
	err    error
	kind   string
	status int
}{
	{ErrUnauthorized, "unauthorized", http.StatusForbidden},
	{ErrSessionConflict, "session_conflict", http.StatusConflict},
	{ErrNotOpen, "not_open", http.StatusConflict},
	{ErrDuplicate, "duplicate", http.StatusConflict},
	{ErrInsufficientWeight, "insufficient_weight", http.StatusUnprocessableEntity},
	{ErrContributionsDisabled, "contributions_disabled", http.StatusConflict},
	{ErrContributionLimit, "contribution_limit", http.StatusConflict},
	{ErrAlreadyReviewed, "already_reviewed", http.StatusConflict},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrInvalid, "invalid", http.StatusBadRequest},
}

// Kind returns a stable short label for err, "internal" for unknown errors and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return "internal"
}

func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}

	return http.StatusInternalServerError
}
