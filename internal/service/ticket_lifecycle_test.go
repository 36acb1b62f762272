package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labdesk/lab-issue-service/internal/domain"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

func TestCheckTransition(t *testing.T) {
	open, progress, resolved := domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved

	cases := []struct {
		from, to domain.TicketStatus
		notes    string
		want     error
	}{
		{open, open, "", nil},
		{open, progress, "", nil},
		{open, resolved, "Replaced cable", nil},
		{open, resolved, "  ", apperrors.ErrValidation},
		{progress, open, "", nil},
		{progress, progress, "", nil},
		{progress, resolved, "Replaced cable", nil},
		{progress, resolved, "", apperrors.ErrValidation},
		{resolved, open, "reopen", apperrors.ErrInvalidTransition},
		{resolved, progress, "", apperrors.ErrInvalidTransition},
		{resolved, resolved, "Updated notes", nil},
		{resolved, resolved, "", apperrors.ErrValidation},
		{open, "Closed", "", apperrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := CheckTransition(tc.from, tc.to, tc.notes)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAllowedTransitions(t *testing.T) {
	assert.Equal(t, []domain.TicketStatus{domain.TicketStatusResolved}, AllowedTransitions(domain.TicketStatusResolved))
	assert.Len(t, AllowedTransitions(domain.TicketStatusOpen), 3)

	got := AllowedTransitions(domain.TicketStatusInProgress)
	got[0] = domain.TicketStatusResolved
	assert.Equal(t, domain.TicketStatusOpen, AllowedTransitions(domain.TicketStatusInProgress)[0])
}
