package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"storefront/internal/apperr"
	"storefront/internal/session"
	"storefront/internal/session/mocks"
)

func sessionFor(role string) *session.Session {
	return &session.Session{ID: "s-" + role, User: &session.UserSummary{ID: "u1", Email: "u@example.com", Role: role}}
}

func gateWith(t *testing.T, sess *session.Session, err error) (*Gate, *gin.Context) {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Session(gomock.Any(), gomock.Any()).Return(sess, err).Times(1)

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	return NewGate(session.NewAccessor(provider)), c
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		sess   *session.Session
		need   Level
		reason error
		code   int
	}{
		{"no session", nil, Authenticated, apperr.ErrUnauthorized, http.StatusUnauthorized},
		{"session without user", &session.Session{ID: "x"}, Authenticated, apperr.ErrUnauthorized, http.StatusUnauthorized},
		{"customer", sessionFor("customer"), Authenticated, nil, http.StatusOK},
		{"admin", sessionFor("admin"), Authenticated, nil, http.StatusOK},
		{"no session wants admin", nil, Admin, apperr.ErrUnauthorized, http.StatusUnauthorized},
		{"customer wants admin", sessionFor("customer"), Admin, apperr.ErrAdminRequired, http.StatusForbidden},
		{"unknown role wants admin", sessionFor("owner"), Admin, apperr.ErrAdminRequired, http.StatusForbidden},
		{"admin wants admin", sessionFor("admin"), Admin, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.sess, tt.need)
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, tt.reason == nil, d.Allowed)
			if tt.reason != nil {
				assert.ErrorIs(t, d.Reason, tt.reason)
				assert.Nil(t, d.Session)
			} else {
				assert.Same(t, tt.sess, d.Session)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	sess := sessionFor("customer")
	gate, c := gateWith(t, sess, nil)
	got, err := gate.RequireAuth(c)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	gate, c = gateWith(t, nil, nil)
	_, err = gate.RequireAuth(c)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	gate, c = gateWith(t, &session.Session{ID: "x"}, nil)
	_, err = gate.RequireAuth(c)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRequireAdmin(t *testing.T) {
	gate, c := gateWith(t, sessionFor("customer"), nil)
	_, err := gate.RequireAdmin(c)
	assert.ErrorIs(t, err, apperr.ErrAdminRequired)

	gate, c = gateWith(t, nil, nil)
	_, err = gate.RequireAdmin(c)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	admin := sessionFor("admin")
	gate, c = gateWith(t, admin, nil)
	got, err := gate.RequireAdmin(c)
	require.NoError(t, err)
	assert.Same(t, admin, got)
}

func TestProviderFailureIsUnauthorized(t *testing.T) {
	gate, c := gateWith(t, nil, errors.New("redis: connection refused"))
	_, err := gate.RequireAuth(c)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, gate.AuthenticateAPIRequest(c).Status)
}

func TestAuthenticateAPIRequest(t *testing.T) {
	gate, c := gateWith(t, nil, nil)
	assert.Equal(t, APIResult{Error: "Unauthorized", Status: http.StatusUnauthorized}, gate.AuthenticateAPIRequest(c))

	sess := sessionFor("customer")
	gate, c = gateWith(t, sess, nil)
	res := gate.AuthenticateAPIRequest(c)
	assert.True(t, res.OK())
	assert.Equal(t, sess.User, res.User)
	assert.Empty(t, res.Error)
}

func TestRequireAdminAPI(t *testing.T) {
	gate, c := gateWith(t, nil, nil)
	assert.Equal(t, APIResult{Error: "Unauthorized", Status: http.StatusUnauthorized}, gate.RequireAdminAPI(c))

	gate, c = gateWith(t, sessionFor("customer"), nil)
	assert.Equal(t, APIResult{Error: "Admin access required", Status: http.StatusForbidden}, gate.RequireAdminAPI(c))

	admin := sessionFor("admin")
	gate, c = gateWith(t, admin, nil)
	res := gate.RequireAdminAPI(c)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, admin.User, res.User)
}

func TestGateAsksProviderOncePerRequest(t *testing.T) {
	gate, c := gateWith(t, sessionFor("admin"), nil)

	_, err := gate.RequireAuth(c)
	require.NoError(t, err)
	_, err = gate.RequireAdmin(c)
	require.NoError(t, err)
	assert.True(t, gate.RequireAdminAPI(c).OK())
}
