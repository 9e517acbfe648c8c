package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "duplicate", Kind(ErrDuplicate))
	assert.Equal(t, "session_conflict", Kind(fmt.Errorf("rig 10: %w", ErrSessionConflict)))
	assert.Equal(t, "internal", Kind(fmt.Errorf("disk on fire")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, Status(nil))
	assert.Equal(t, http.StatusNotFound, Status(fmt.Errorf("proposal 1: %w", ErrNotFound)))
	assert.Equal(t, http.StatusForbidden, Status(ErrUnauthorized))
	assert.Equal(t, http.StatusUnprocessableEntity, Status(ErrInsufficientWeight))
	assert.Equal(t, http.StatusInternalServerError, Status(fmt.Errorf("boom")))
}
