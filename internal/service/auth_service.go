package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/labdesk/lab-issue-service/internal/auth"
	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/events"
	"github.com/labdesk/lab-issue-service/internal/repository"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

const (
	maxUsernameLength = 50
	maxEmailLength    = 100
	maxFullNameLength = 100
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService coordinates registration, login and logout.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	hasher     *auth.PasswordHasher
	sessions   auth.SessionStore
	dispatcher events.Dispatcher
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenManager
	Hasher     *auth.PasswordHasher
	Sessions   auth.SessionStore
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	FullName        string
	Role            domain.Role
}

// LoginResult is the session issued on login or registration.
type LoginResult struct {
	User     *domain.User
	Session  *domain.Session
	Redirect string
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		hasher:     deps.Hasher,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		now:        clock,
	}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)

	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	exists, err := s.users.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("username already exists", map[string]any{"username": "Username already exists"})
	}
	exists, err = s.users.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": "Email already registered"})
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		PasswordHash: hash,
		Role:         input.Role,
		Email:        input.Email,
		FullName:     optionalString(input.FullName),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, registrationConflict(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRegistered,
			Actor:     events.Actor{UserID: user.ID, Role: user.Role},
			Timestamp: s.now(),
			Payload:   events.UserRegisteredPayload{Username: user.Username, Role: user.Role},
		})
	}

	return s.issue(user, "")
}

// Login verifies credentials of an active user. returnURL is honoured when it is a local path.
func (s *AuthService) Login(ctx context.Context, username, password, returnURL string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	errs := apperrors.FieldErrors{}
	if username == "" {
		errs.Add("username", "Username is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid username or password")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("invalid username or password")
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid username or password")
	}
	return s.issue(user, returnURL)
}

// Logout revokes the session token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.sessions == nil || tokenID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, tokenID, expiresAt.Sub(s.now()))
}

func (s *AuthService) issue(user *domain.User, returnURL string) (*LoginResult, error) {
	session, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	redirect := user.Role.DashboardPath()
	if IsLocalPath(returnURL) {
		redirect = returnURL
	}
	return &LoginResult{User: user, Session: session, Redirect: redirect}, nil
}

// IsLocalPath accepts only same-origin absolute paths.
func IsLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func validateRegistration(input RegisterInput) error {
	errs := apperrors.FieldErrors{}

	if input.Username == "" {
		errs.Add("username", "Username is required")
	} else if len([]rune(input.Username)) > maxUsernameLength {
		errs.Add("username", "Username must be at most 50 characters")
	}

	if input.Password == "" {
		errs.Add("password", "Password is required")
	} else if len([]rune(input.Password)) < auth.MinPasswordLength {
		errs.Add("password", "Password must be at least 6 characters")
	} else if len(input.Password) > maxPasswordBytes {
		errs.Add("password", "Password must be at most 72 bytes")
	}
	if input.ConfirmPassword != input.Password {
		errs.Add("confirm_password", "Passwords do not match")
	}

	switch {
	case input.Email == "":
		errs.Add("email", "Email is required")
	case len([]rune(input.Email)) > maxEmailLength || !emailRegex.MatchString(input.Email):
		errs.Add("email", "Email is not a valid address")
	}

	if len([]rune(input.FullName)) > maxFullNameLength {
		errs.Add("full_name", "Full Name must be at most 100 characters")
	}

	if input.Role == "" {
		errs.Add("role", "Role is required")
	} else if !input.Role.Valid() {
		errs.Add("role", "Role must be Student, NetworkTeam or Faculty")
	}

	return errs.Err()
}

// registrationConflict reports a duplicate key that slipped past the existence
// checks with the same field details those checks produce.
func registrationConflict(err error) error {
	mapped := apperrors.ToDomainError(err)
	if mapped.Code != apperrors.CodeConflict {
		return mapped
	}
	constraint, _ := mapped.Details["constraint"].(string)
	switch {
	case strings.Contains(constraint, "username"):
		return apperrors.NewConflict("username already exists", map[string]any{"username": "Username already exists"})
	case strings.Contains(constraint, "email"):
		return apperrors.NewConflict("email already registered", map[string]any{"email": "Email already registered"})
	default:
		return mapped
	}
}
