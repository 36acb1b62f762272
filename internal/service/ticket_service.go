package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/events"
	"github.com/labdesk/lab-issue-service/internal/repository"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	computers  repository.ComputerRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	UserRepo     repository.UserRepository
	ComputerRepo repository.ComputerRepository
	HistoryRepo  repository.TicketHistoryRepository
	Dispatcher   events.Dispatcher
	Clock        func() time.Time
}

// ReportIssueInput describes a student's issue report.
type ReportIssueInput struct {
	IPAddress    string
	Title        string
	Description  string
	LabName      string
	ComputerName string
	Priority     domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		computers:  deps.ComputerRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		now:        clock,
	}
}

// ReportIssue opens a new ticket on behalf of reporterID.
func (s *TicketService) ReportIssue(ctx context.Context, reporterID int64, input ReportIssueInput) (*domain.Ticket, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ReportedBy:   reporterID,
		IPAddress:    input.IPAddress,
		Title:        input.Title,
		Description:  input.Description,
		Status:       domain.TicketStatusOpen,
		Priority:     input.Priority,
		ReportedAt:   s.now(),
		LabName:      optionalString(input.LabName),
		ComputerName: optionalString(input.ComputerName),
	}

	if ticket.LabName == nil && ticket.ComputerName == nil {
		if err := s.fillFromInventory(ctx, ticket); err != nil {
			return nil, err
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	lab := ""
	if ticket.LabName != nil {
		lab = *ticket.LabName
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReported,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: reporterID, Role: domain.RoleStudent},
		Payload: events.TicketReportedPayload{
			Priority:  ticket.Priority,
			IPAddress: ticket.IPAddress,
			LabName:   lab,
		},
	})
	return ticket, nil
}

// AssignToSelf makes technicianID the assignee and moves the ticket to InProgress.
func (s *TicketService) AssignToSelf(ctx context.Context, ticketID, technicianID int64) (*domain.Ticket, error) {
	if err := s.requireTechnician(ctx, technicianID); err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(ticket.Status, domain.TicketStatusInProgress, ""); err != nil {
		return nil, err
	}

	oldAssignee := ticket.AssignedTo
	oldStatus := ticket.Status
	ticket.AssignedTo = &technicianID
	ticket.Status = domain.TicketStatusInProgress

	entries := []*domain.TicketHistory{assigneeChange(technicianID, ticket.ID, oldAssignee, ticket.AssignedTo)}
	if oldStatus != ticket.Status {
		entries = append(entries, statusChange(technicianID, ticket.ID, oldStatus, ticket.Status, ""))
	}
	if err := s.saveWithHistory(ctx, ticket, oldStatus, entries); err != nil {
		return nil, err
	}
	if oldStatus != ticket.Status {
		s.publishStatusChange(ctx, technicianID, ticket.ID, oldStatus, ticket.Status)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: technicianID, Role: domain.RoleNetworkTeam},
		Payload: events.TicketAssignedPayload{
			OldAssignee: oldAssignee,
			NewAssignee: technicianID,
		},
	})
	return ticket, nil
}

// UpdateStatus applies a status change requested by a technician.
// A rejected change performs no write.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID, actorID int64, newStatus domain.TicketStatus, notes string) (*domain.Ticket, error) {
	if err := s.requireTechnician(ctx, actorID); err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(ticket.Status, newStatus, notes); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if newStatus == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		now := s.now()
		ticket.ResolvedAt = &now
	}
	ticket.Status = newStatus
	ticket.ResolutionNotes = optionalString(notes)

	entries := []*domain.TicketHistory{statusChange(actorID, ticket.ID, oldStatus, newStatus, notes)}
	if err := s.saveWithHistory(ctx, ticket, oldStatus, entries); err != nil {
		return nil, err
	}
	if oldStatus != newStatus {
		s.publishStatusChange(ctx, actorID, ticket.ID, oldStatus, newStatus)
	}
	return ticket, nil
}

// GetTicketForStudent returns a ticket only when studentID reported it.
func (s *TicketService) GetTicketForStudent(ctx context.Context, studentID, ticketID int64) (*domain.TicketDetail, error) {
	detail, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if detail.ReportedBy != studentID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return detail, nil
}

// GetTicket returns any ticket with its reporter and assignee.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.TicketDetail, error) {
	detail, err := s.tickets.GetDetail(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if history == nil {
		history = []domain.TicketHistory{}
	}
	return history, nil
}

// ListTickets returns the tickets visible to viewer after applying query.
func (s *TicketService) ListTickets(ctx context.Context, viewer *domain.User, query TicketQuery) ([]domain.TicketDetail, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	scope := ScopeFor(viewer)
	snapshot, err := s.tickets.ListDetails(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if scope.ReporterID != nil {
		query.SkipReporterNames = true
	}
	return FilterTickets(snapshot, query), nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) requireTechnician(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	if user.Role != domain.RoleNetworkTeam || !user.IsActive {
		return apperrors.NewForbidden("only active network team members can change tickets")
	}
	return nil
}

func (s *TicketService) fillFromInventory(ctx context.Context, ticket *domain.Ticket) error {
	if s.computers == nil {
		return nil
	}
	computer, err := s.computers.GetActiveByIP(ctx, ticket.IPAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}
	ticket.LabName = computer.LabName
	ticket.ComputerName = computer.ComputerName
	return nil
}

// saveWithHistory persists the ticket together with its audit entries.
func (s *TicketService) saveWithHistory(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus, entries []*domain.TicketHistory) error {
	err := s.tickets.UpdateWithHistory(ctx, ticket, entries)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	case errors.Is(err, repository.ErrTicketResolved):
		return apperrors.NewInvalidTransition("ticket was resolved by another technician", map[string]any{
			"current_status": domain.TicketStatusResolved,
			"new_status":     ticket.Status,
			"loaded_status":  oldStatus,
		})
	default:
		return apperrors.MapError(err)
	}
}

func statusChange(actorID, ticketID int64, oldStatus, newStatus domain.TicketStatus, notes string) *domain.TicketHistory {
	newValue := map[string]any{"status": newStatus}
	if notes != "" {
		newValue["resolution_notes"] = notes
	}
	return &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    newValue,
	}
}

func assigneeChange(actorID, ticketID int64, oldAssignee, newAssignee *int64) *domain.TicketHistory {
	return &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue:    map[string]any{"assigned_to": oldAssignee},
		NewValue:    map[string]any{"assigned_to": newAssignee},
	}
}

func (s *TicketService) publishStatusChange(ctx context.Context, actorID, ticketID int64, oldStatus, newStatus domain.TicketStatus) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    events.Actor{UserID: actorID, Role: domain.RoleNetworkTeam},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
