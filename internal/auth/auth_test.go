package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestCanPerform(t *testing.T) {
	assert.True(t, CanPerform(RolePatient, ActionAdmit))
	assert.False(t, CanPerform(RoleDoctor, ActionAdmit))
	assert.True(t, CanPerform(RoleDoctor, ActionAdvance))
	assert.False(t, CanPerform(RolePatient, ActionAdvance))
	assert.True(t, CanPerform(RolePatient, ActionCancel))
	assert.False(t, CanPerform(RolePatient, ActionCancelAny))
	assert.True(t, CanPerform(RoleDoctor, ActionCancel))
	assert.True(t, CanPerform(RoleDoctor, ActionCancelAny))
	assert.True(t, CanPerform(RoleDoctor, ActionViewStats))
	assert.False(t, CanPerform(RolePatient, ActionViewStats))
	for _, role := range []Role{RolePatient, RoleDoctor, RoleStaff, RoleAdmin} {
		assert.True(t, CanPerform(role, ActionViewServers), role)
	}
	assert.True(t, CanPerform(RoleAdmin, ActionViewAudit))
	assert.False(t, CanPerform(RoleStaff, ActionViewAudit))
	assert.False(t, CanPerform(Role("ghost"), ActionViewQueue))
}

func TestOperates(t *testing.T) {
	assert.True(t, Identity{Subject: "dr-1", Role: RoleDoctor}.Operates("dr-1"))
	assert.False(t, Identity{Subject: "dr-1", Role: RoleDoctor}.Operates("dr-2"))
	assert.True(t, Identity{Subject: "u7", Role: RoleDoctor, ServerID: "dr-2"}.Operates("dr-2"))
	assert.True(t, Identity{Subject: "s", Role: RoleStaff}.Operates("dr-9"))
	assert.False(t, Identity{Subject: "p", Role: RolePatient}.Operates("dr-1"))
}

func TestParseClaims(t *testing.T) {
	token, err := Sign(secret, Identity{Subject: "u7", Role: RoleDoctor, ServerID: "dr-2"}, time.Minute)
	require.NoError(t, err)
	id, err := Parse(secret, token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "u7", Role: RoleDoctor, ServerID: "dr-2"}, id)

	// numeric user_id and sub fallback
	numeric, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42, "role": "patient"}).SignedString(secret)
	require.NoError(t, err)
	id, err = Parse(secret, numeric)
	require.NoError(t, err)
	assert.Equal(t, "42", id.Subject)

	sub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "p-1", "role": "patient"}).SignedString(secret)
	require.NoError(t, err)
	id, err = Parse(secret, sub)
	require.NoError(t, err)
	assert.Equal(t, "p-1", id.Subject)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "p-1", "role": "root"}).SignedString(secret)
	require.NoError(t, err)
	_, err = Parse(secret, badRole)
	assert.Error(t, err)

	expired, err := Sign(secret, Identity{Subject: "p", Role: RolePatient}, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(secret, expired)
	assert.Error(t, err)

	_, err = Parse([]byte("other"), token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stats", Middleware(secret), Require(ActionViewStats), func(c *gin.Context) {
		id, _ := FromContext(c)
		c.String(http.StatusOK, id.Subject)
	})

	do := func(header, query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/stats"+query, nil)
		if header != "" {
			req.Header.Set("Authorization", "Bearer "+header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do("garbage", "").Code)

	patient, err := Sign(secret, Identity{Subject: "p1", Role: RolePatient}, time.Minute)
	require.NoError(t, err)
	w := do(patient, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	staff, err := Sign(secret, Identity{Subject: "s1", Role: RoleStaff}, time.Minute)
	require.NoError(t, err)
	w = do("", "?access_token="+staff)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", w.Body.String())
}
