// Package seed loads the demo lab into an empty database.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/repository"
)

//go:embed lab.yaml
var labFixture []byte

// Fixture is the decoded demo data.
type Fixture struct {
	Users     []UserFixture     `yaml:"users"`
	Tickets   []TicketFixture   `yaml:"tickets"`
	Computers []ComputerFixture `yaml:"computers"`
}

// UserFixture is a demo account with its plain password.
type UserFixture struct {
	Username string      `yaml:"username"`
	Password string      `yaml:"password"`
	Role     domain.Role `yaml:"role"`
	Email    string      `yaml:"email"`
	FullName string      `yaml:"full_name"`
}

// TicketFixture references users by username. Times are offsets before now.
type TicketFixture struct {
	IPAddress       string                `yaml:"ip_address"`
	Title           string                `yaml:"title"`
	Description     string                `yaml:"description"`
	Status          domain.TicketStatus   `yaml:"status"`
	Priority        domain.TicketPriority `yaml:"priority"`
	ReportedAgo     time.Duration         `yaml:"reported_ago"`
	ResolvedAgo     *time.Duration        `yaml:"resolved_ago"`
	ReportedBy      string                `yaml:"reported_by"`
	AssignedTo      string                `yaml:"assigned_to"`
	ResolutionNotes string                `yaml:"resolution_notes"`
	LabName         string                `yaml:"lab_name"`
	ComputerName    string                `yaml:"computer_name"`
}

// ComputerFixture is an inventory row.
type ComputerFixture struct {
	IPAddress    string `yaml:"ip_address"`
	ComputerName string `yaml:"computer_name"`
	LabName      string `yaml:"lab_name"`
	Location     string `yaml:"location"`
}

// LoadFixture decodes the embedded demo lab.
func LoadFixture() (*Fixture, error) {
	return ParseFixture(labFixture)
}

// ParseFixture decodes raw YAML and checks that every ticket references a known user.
func ParseFixture(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode seed fixture: %w", err)
	}

	known := make(map[string]domain.Role, len(f.Users))
	for _, u := range f.Users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("seed user %q: unknown role %q", u.Username, u.Role)
		}
		known[u.Username] = u.Role
	}
	for i, t := range f.Tickets {
		if _, ok := known[t.ReportedBy]; !ok {
			return nil, fmt.Errorf("seed ticket %d: unknown reporter %q", i, t.ReportedBy)
		}
		if t.AssignedTo != "" && known[t.AssignedTo] != domain.RoleNetworkTeam {
			return nil, fmt.Errorf("seed ticket %d: assignee %q is not on the network team", i, t.AssignedTo)
		}
		if !t.Status.Valid() || !t.Priority.Valid() {
			return nil, fmt.Errorf("seed ticket %d: bad status or priority", i)
		}
		if (t.Status == domain.TicketStatusResolved) != (t.ResolvedAgo != nil) {
			return nil, fmt.Errorf("seed ticket %d: resolved_ago must be set exactly for resolved tickets", i)
		}
	}
	return &f, nil
}

// PasswordHasher hashes fixture passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Seeder writes a fixture through the repositories.
type Seeder struct {
	users     repository.UserRepository
	tickets   repository.TicketRepository
	computers repository.ComputerRepository
	hasher    PasswordHasher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSeeder constructs a seeder.
func NewSeeder(users repository.UserRepository, tickets repository.TicketRepository, computers repository.ComputerRepository, hasher PasswordHasher, logger *zap.Logger) *Seeder {
	return &Seeder{
		users:     users,
		tickets:   tickets,
		computers: computers,
		hasher:    hasher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run seeds f when there are no users yet. It reports whether anything was written.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		s.logger.Info("seed skipped, users already present", zap.Int("users", count))
		return false, nil
	}

	now := s.now()
	ids := make(map[string]int64, len(f.Users))
	for _, u := range f.Users {
		hash, err := s.hasher.Hash(u.Password)
		if err != nil {
			return false, fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		user := &domain.User{
			Username:     u.Username,
			PasswordHash: hash,
			Role:         u.Role,
			Email:        u.Email,
			FullName:     optional(u.FullName),
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return false, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		ids[u.Username] = user.ID
	}

	for _, t := range f.Tickets {
		ticket := &domain.Ticket{
			ReportedBy:      ids[t.ReportedBy],
			IPAddress:       t.IPAddress,
			Title:           t.Title,
			Description:     t.Description,
			Status:          t.Status,
			Priority:        t.Priority,
			ReportedAt:      now.Add(-t.ReportedAgo),
			ResolutionNotes: optional(t.ResolutionNotes),
			LabName:         optional(t.LabName),
			ComputerName:    optional(t.ComputerName),
		}
		if t.AssignedTo != "" {
			id := ids[t.AssignedTo]
			ticket.AssignedTo = &id
		}
		if t.ResolvedAgo != nil {
			resolved := now.Add(-*t.ResolvedAgo)
			ticket.ResolvedAt = &resolved
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return false, fmt.Errorf("create ticket for %s: %w", t.IPAddress, err)
		}
	}

	for _, c := range f.Computers {
		computer := &domain.Computer{
			IPAddress:    c.IPAddress,
			ComputerName: optional(c.ComputerName),
			LabName:      optional(c.LabName),
			Location:     optional(c.Location),
			IsActive:     true,
		}
		if err := s.computers.Create(ctx, computer); err != nil {
			return false, fmt.Errorf("create computer %s: %w", c.IPAddress, err)
		}
	}

	s.logger.Info("demo lab seeded",
		zap.Int("users", len(f.Users)),
		zap.Int("tickets", len(f.Tickets)),
		zap.Int("computers", len(f.Computers)))
	return true, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
