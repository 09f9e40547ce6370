package orderserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/Apurer/order-engine/internal/shared/errors"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

const actorKey = "orderserver.actor"

var errInvalidToken = errors.New("invalid bearer token")

// Claims is the bearer token payload: the subject is the buyer id.
type Claims struct {
	Role identity.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and issues them for tests and tooling.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret, now: time.Now}
}

// Issue signs a token for subject with the given role.
func (a *Authenticator) Issue(subject string, role identity.Role, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a raw token and returns the actor it names. System tokens are
// never accepted from the outside.
func (a *Authenticator) Parse(raw string) (identity.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return identity.Actor{}, fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return identity.Actor{}, fmt.Errorf("%w: subject missing", errInvalidToken)
	}
	switch claims.Role {
	case identity.RoleBuyer, identity.RoleAdmin:
	case "":
		claims.Role = identity.RoleBuyer
	default:
		return identity.Actor{}, fmt.Errorf("%w: role %q not accepted", errInvalidToken, claims.Role)
	}
	return identity.Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// Authenticate rejects requests without a valid bearer token.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil || len(a.secret) == 0 {
			apierrors.Respond(c, apierrors.ErrUnauthorized.WithDetail("authentication is not configured"))
			return
		}
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.Header("WWW-Authenticate", `Bearer realm="order-engine"`)
			apierrors.Respond(c, apierrors.ErrUnauthorized.WithDetail("bearer token required"))
			return
		}
		actor, err := a.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			apierrors.Respond(c, apierrors.ErrUnauthorized.WithDetail(errInvalidToken.Error()))
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsAdmin() {
			apierrors.Respond(c, apierrors.ErrForbidden.WithDetail("admin role required"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated caller, or the anonymous actor.
func ActorFrom(c *gin.Context) identity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(identity.Actor); ok {
			return actor
		}
	}
	return identity.Actor{}
}
