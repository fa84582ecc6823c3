package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"clinic_queue/internal/response"
)

const identityKey = "identity"

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Role    Role
	// ServerID binds a doctor to the server they operate; empty means Subject.
	ServerID string
}

// Operates reports whether the caller may run server-side actions on serverID.
func (id Identity) Operates(serverID string) bool {
	switch id.Role {
	case RoleStaff, RoleAdmin:
		return true
	case RoleDoctor:
		own := id.ServerID
		if own == "" {
			own = id.Subject
		}
		return own == serverID
	default:
		return false
	}
}

// Middleware validates the access token and stores the caller's Identity.
// The token is read from the Authorization header, or from the access_token
// query parameter for websocket and event-stream clients.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "NO_AUTH_HEADER",
				Message: "authorization required",
			})
			return
		}

		id, err := Parse(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN",
				Message: "invalid or expired token",
				Details: err.Error(),
			})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// Require rejects callers whose role may not perform action.
func Require(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok || !CanPerform(id.Role, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "role is not allowed to perform this action",
				Details: string(action),
			})
			return
		}
		c.Next()
	}
}

func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// Parse validates tokenString and extracts the caller. The subject is taken
// from user_id, falling back to sub.
func Parse(secret []byte, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("unreadable token claims")
	}

	subject := cast.ToString(claims["user_id"])
	if subject == "" {
		subject, _ = claims.GetSubject()
	}
	if subject == "" {
		return Identity{}, errors.New("token has no user_id or sub")
	}
	role := Role(cast.ToString(claims["role"]))
	if !role.Valid() {
		return Identity{}, errors.Errorf("unknown role %q", role)
	}
	return Identity{
		Subject:  subject,
		Role:     role,
		ServerID: cast.ToString(claims["server_id"]),
	}, nil
}

// Sign issues an HS256 access token for id. Used by the seed command to hand
// out demo credentials and by tests.
func Sign(secret []byte, id Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id.Subject,
		"role":    string(id.Role),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	if id.ServerID != "" {
		claims["server_id"] = id.ServerID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
