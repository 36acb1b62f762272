package service

import (
	"context"

	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/repository"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

// Dashboard is the landing summary for one role. Fields a role does not
// see are left nil.
type Dashboard struct {
	Role              domain.Role
	Counts            StatusCounts
	AverageResolution *float64
	OpenPriority      *PriorityCounts
	RecentTickets     []TicketSummary
	TeamPerformance   []TechnicianStat
	TotalStudents     *int
	TotalNetworkTeam  *int
}

// Reports holds the faculty analytics page.
type Reports struct {
	ByLab             []KeyCount
	ByStatus          []KeyCount
	ByPriority        []KeyCount
	ResolutionTimes   []ResolutionTime
	AverageResolution float64
}

// DashboardBuilder produces the dashboard for one role.
type DashboardBuilder interface {
	Build(ctx context.Context, viewer *domain.User) (*Dashboard, error)
}

// DashboardService dispatches to the builder registered for the viewer's role.
type DashboardService struct {
	tickets  repository.TicketRepository
	builders map[domain.Role]DashboardBuilder
}

// NewDashboardService wires the builders for all three roles.
func NewDashboardService(tickets repository.TicketRepository, roster repository.RosterRepository) *DashboardService {
	return &DashboardService{
		tickets: tickets,
		builders: map[domain.Role]DashboardBuilder{
			domain.RoleStudent:     studentDashboard{tickets: tickets},
			domain.RoleNetworkTeam: networkTeamDashboard{tickets: tickets},
			domain.RoleFaculty:     facultyDashboard{tickets: tickets, roster: roster},
		},
	}
}

// Build returns the dashboard for viewer.
func (s *DashboardService) Build(ctx context.Context, viewer *domain.User) (*Dashboard, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	builder, ok := s.builders[viewer.Role]
	if !ok {
		return nil, apperrors.NewForbidden("no dashboard for role")
	}
	return builder.Build(ctx, viewer)
}

// Reports computes the faculty analytics over every ticket.
func (s *DashboardService) Reports(ctx context.Context) (*Reports, error) {
	snapshot, err := s.tickets.ListDetails(ctx, repository.TicketScope{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Reports{
		ByLab:             GroupByLab(snapshot),
		ByStatus:          GroupByStatus(snapshot),
		ByPriority:        GroupByPriority(snapshot),
		ResolutionTimes:   ResolutionTimes(snapshot),
		AverageResolution: AverageResolutionHours(snapshot),
	}, nil
}

type studentDashboard struct {
	tickets repository.TicketRepository
}

func (b studentDashboard) Build(ctx context.Context, viewer *domain.User) (*Dashboard, error) {
	snapshot, err := b.tickets.ListDetails(ctx, ScopeFor(viewer))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Dashboard{
		Role:          domain.RoleStudent,
		Counts:        CountByStatus(snapshot),
		RecentTickets: RecentTickets(snapshot, RecentTicketLimit),
	}, nil
}

type networkTeamDashboard struct {
	tickets repository.TicketRepository
}

func (b networkTeamDashboard) Build(ctx context.Context, _ *domain.User) (*Dashboard, error) {
	snapshot, err := b.tickets.ListDetails(ctx, repository.TicketScope{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staffDashboard(domain.RoleNetworkTeam, snapshot), nil
}

type facultyDashboard struct {
	tickets repository.TicketRepository
	roster  repository.RosterRepository
}

func (b facultyDashboard) Build(ctx context.Context, _ *domain.User) (*Dashboard, error) {
	snapshot, err := b.tickets.ListDetails(ctx, repository.TicketScope{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	technicians, err := b.roster.ListByRole(ctx, domain.RoleNetworkTeam)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	students, err := b.roster.CountByRole(ctx, domain.RoleStudent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	dashboard := staffDashboard(domain.RoleFaculty, snapshot)
	dashboard.TeamPerformance = TechnicianPerformance(technicians, snapshot)
	networkTeam := len(technicians)
	dashboard.TotalStudents = &students
	dashboard.TotalNetworkTeam = &networkTeam
	return dashboard, nil
}

func staffDashboard(role domain.Role, snapshot []domain.TicketDetail) *Dashboard {
	avg := AverageResolutionHours(snapshot)
	open := CountByPriority(snapshot, true)
	return &Dashboard{
		Role:              role,
		Counts:            CountByStatus(snapshot),
		AverageResolution: &avg,
		OpenPriority:      &open,
		RecentTickets:     RecentTickets(snapshot, RecentTicketLimit),
	}
}
