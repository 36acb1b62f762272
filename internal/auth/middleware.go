package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/labdesk/lab-issue-service/internal/domain"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User      *domain.User
	TokenID   string
	ExpiresAt time.Time
}

// UserID returns the caller's id.
func (p *Principal) UserID() int64 {
	return p.User.ID
}

// Role returns the caller's role.
func (p *Principal) Role() domain.Role {
	return p.User.Role
}

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// AuthMiddleware validates session tokens and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	users      UserLookup
	sessions   SessionStore
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users UserLookup, sessions SessionStore, cookieName string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, sessions: sessions, cookieName: cookieName, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.authenticate(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional loads a principal when a valid token is present and never rejects.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if principal, err := m.authenticate(c); err == nil {
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

// TokenFromRequest reads the session cookie, then a bearer header.
func (m *AuthMiddleware) TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(m.cookieName); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*Principal, error) {
	tokenStr := m.TokenFromRequest(c)
	if tokenStr == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	claims, err := m.tokens.ParseToken(tokenStr)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	if m.sessions != nil {
		revoked, err := m.sessions.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			m.logger.Debug("revocation check skipped", zap.String("token_id", claims.ID), zap.Error(err))
		}
		if revoked {
			return nil, apperrors.NewUnauthorized("session has ended")
		}
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive || user.Role != claims.Role {
		return nil, apperrors.NewUnauthorized("account is not active")
	}

	principal := &Principal{User: user, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
