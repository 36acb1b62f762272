//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/persistence"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("labissue_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))

	t.Cleanup(func() {
		pool.Close()
		require.NoError(t, container.Terminate(ctx))
	})
	return pool
}

func strPtr(s string) *string { return &s }

func TestRepositories_TicketWorkflow(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	users := NewUserRepository(pool)
	tickets := NewTicketRepository(pool)
	history := NewTicketHistoryRepository(pool)
	computers := NewComputerRepository(pool)

	student := &domain.User{Username: "student1", PasswordHash: "x", Role: domain.RoleStudent, Email: "s1@lab.edu", FullName: strPtr("John Student"), IsActive: true}
	tech := &domain.User{Username: "network1", PasswordHash: "x", Role: domain.RoleNetworkTeam, Email: "n1@lab.edu", IsActive: true}
	require.NoError(t, users.Create(ctx, student))
	require.NoError(t, users.Create(ctx, tech))

	exists, err := users.UsernameExists(ctx, "student1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = users.EmailExists(ctx, "nobody@lab.edu")
	require.NoError(t, err)
	assert.False(t, exists)

	loaded, err := users.GetByUsername(ctx, "network1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNetworkTeam, loaded.Role)
	assert.Nil(t, loaded.FullName)

	_, err = users.GetByID(ctx, 9999)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	pc := &domain.Computer{IPAddress: "192.168.1.101", ComputerName: strPtr("PC-A01"), LabName: strPtr("Lab A"), Location: strPtr("Building 1, Room 101"), IsActive: true}
	require.NoError(t, computers.Create(ctx, pc))
	found, err := computers.GetActiveByIP(ctx, "192.168.1.101")
	require.NoError(t, err)
	assert.Equal(t, "PC-A01", *found.ComputerName)

	reported := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Microsecond)
	ticket := &domain.Ticket{
		ReportedBy:  student.ID,
		IPAddress:   "192.168.1.101",
		Title:       "Monitor flickering",
		Description: "Screen goes dark every few seconds",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityHigh,
		ReportedAt:  reported,
		LabName:     strPtr("Lab A"),
	}
	require.NoError(t, tickets.Create(ctx, ticket))
	require.NotZero(t, ticket.ID)

	detail, err := tickets.GetDetail(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Student", detail.Reporter.DisplayName())
	assert.Nil(t, detail.Assignee)

	ticket.AssignedTo = &tech.ID
	ticket.Status = domain.TicketStatusInProgress
	require.NoError(t, tickets.UpdateWithHistory(ctx, ticket, nil))
	require.NoError(t, history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: &tech.ID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": "Open"},
		NewValue:    map[string]any{"status": "InProgress"},
	}))

	detail, err = tickets.GetDetail(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Assignee)
	assert.Equal(t, "network1", detail.Assignee.DisplayName())

	entries, err := history.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "InProgress", entries[0].NewValue["status"])

	own, err := tickets.ListDetails(ctx, TicketScope{ReporterID: &student.ID})
	require.NoError(t, err)
	assert.Len(t, own, 1)
	other, err := tickets.ListDetails(ctx, TicketScope{ReporterID: &tech.ID})
	require.NoError(t, err)
	assert.Empty(t, other)

	missing := &domain.Ticket{ID: 424242, Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow}
	assert.True(t, errors.Is(tickets.UpdateWithHistory(ctx, missing, nil), pgx.ErrNoRows))

	retired := &domain.User{Username: "network9", PasswordHash: "x", Role: domain.RoleNetworkTeam, Email: "n9@lab.edu", IsActive: false}
	require.NoError(t, users.Create(ctx, retired))

	roster := NewRosterRepository(stdlib.OpenDBFromPool(pool))
	count, err := roster.CountByRole(ctx, domain.RoleNetworkTeam)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	members, err := roster.ListByRole(ctx, domain.RoleNetworkTeam)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestTicketRepository_UpdateWithHistory(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	users := NewUserRepository(pool)
	tickets := NewTicketRepository(pool)
	history := NewTicketHistoryRepository(pool)

	student := &domain.User{Username: "student1", PasswordHash: "x", Role: domain.RoleStudent, Email: "s1@lab.edu", IsActive: true}
	tech := &domain.User{Username: "network1", PasswordHash: "x", Role: domain.RoleNetworkTeam, Email: "n1@lab.edu", IsActive: true}
	require.NoError(t, users.Create(ctx, student))
	require.NoError(t, users.Create(ctx, tech))

	ticket := &domain.Ticket{
		ReportedBy:  student.ID,
		IPAddress:   "192.168.1.102",
		Title:       "No network",
		Description: "Cable unplugged",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		ReportedAt:  time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond),
	}
	require.NoError(t, tickets.Create(ctx, ticket))

	statusEntry := func(actor *int64, from, to domain.TicketStatus) *domain.TicketHistory {
		return &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actor,
			ChangeType:  domain.ChangeTypeStatus,
			OldValue:    map[string]any{"status": from},
			NewValue:    map[string]any{"status": to},
		}
	}

	t.Run("history failure rolls back the ticket", func(t *testing.T) {
		unknownActor := int64(999999)
		update := *ticket
		update.Status = domain.TicketStatusInProgress
		update.AssignedTo = &tech.ID

		err := tickets.UpdateWithHistory(ctx, &update, []*domain.TicketHistory{
			statusEntry(&tech.ID, domain.TicketStatusOpen, domain.TicketStatusInProgress),
			statusEntry(&unknownActor, domain.TicketStatusOpen, domain.TicketStatusInProgress),
		})
		require.Error(t, err)

		stored, err := tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, stored.Status)
		assert.Nil(t, stored.AssignedTo)
		entries, err := history.ListByTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("commits ticket and history together", func(t *testing.T) {
		resolvedAt := time.Now().UTC().Truncate(time.Microsecond)
		update := *ticket
		update.Status = domain.TicketStatusResolved
		update.ResolvedAt = &resolvedAt
		update.ResolutionNotes = strPtr("Plugged cable back in")

		require.NoError(t, tickets.UpdateWithHistory(ctx, &update, []*domain.TicketHistory{
			statusEntry(&tech.ID, domain.TicketStatusOpen, domain.TicketStatusResolved),
		}))

		stored, err := tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, stored.Status)
		entries, err := history.ListByTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("stale write cannot reopen a resolved row", func(t *testing.T) {
		stale := *ticket
		stale.Status = domain.TicketStatusInProgress

		err := tickets.UpdateWithHistory(ctx, &stale, []*domain.TicketHistory{
			statusEntry(&tech.ID, domain.TicketStatusOpen, domain.TicketStatusInProgress),
		})
		assert.True(t, errors.Is(err, ErrTicketResolved))

		stored, err := tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, stored.Status)
		entries, err := history.ListByTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("resolved row accepts a resolved re-save", func(t *testing.T) {
		stored, err := tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		stored.ResolutionNotes = strPtr("Replaced the cable")

		require.NoError(t, tickets.UpdateWithHistory(ctx, stored, nil))
	})
}
