package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewNotFound("ticket", map[string]any{"ticket_id": int64(4)}))

		de := ToDomainError(err)

		require.NotNil(t, de)
		assert.Equal(t, CodeNotFound, de.Code)
		assert.Equal(t, "ticket not found", de.Message)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("maps unique violations to conflict", func(t *testing.T) {
		err := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		de := ToDomainError(err)

		assert.Equal(t, CodeConflict, de.Code)
		assert.Equal(t, http.StatusConflict, de.HTTPStatus)
		assert.Equal(t, "users_username_key", de.Details["constraint"])
		assert.ErrorIs(t, de, ErrConflict)
	})

	t.Run("other postgres errors stay internal", func(t *testing.T) {
		de := ToDomainError(&pgconn.PgError{Code: "23503", ConstraintName: "tickets_reported_by_fkey"})

		assert.Equal(t, CodeInternal, de.Code)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	})

	t.Run("maps pgx no rows to not found", func(t *testing.T) {
		de := ToDomainError(pgx.ErrNoRows)

		assert.Equal(t, CodeNotFound, de.Code)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("hides unknown errors behind internal error", func(t *testing.T) {
		de := ToDomainError(errors.New("connection reset"))

		assert.Equal(t, CodeInternal, de.Code)
		assert.Equal(t, "internal server error", de.Message)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
		assert.NoError(t, MapError(nil))
	})
}

func TestDomainErrorIs(t *testing.T) {
	err := NewInvalidTransition("cannot un-resolve", nil)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestFieldErrors(t *testing.T) {
	fields := FieldErrors{}
	require.NoError(t, fields.Err())

	fields.Add("ip_address", "Invalid IP Address format")
	fields.Add("ip_address", "IP Address is required")
	fields.Add("title", "Issue Title is required")

	err := fields.Err()
	require.ErrorIs(t, err, ErrValidation)

	de := ToDomainError(err)
	assert.Equal(t, "Invalid IP Address format", de.Details["ip_address"])
	assert.Equal(t, "Issue Title is required", de.Details["title"])
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
}
