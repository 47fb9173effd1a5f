package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid bearer", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "empty header", header: "", wantErr: true},
		{name: "missing token", header: "Bearer", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserClaimsContext(t *testing.T) {
	ctx := context.Background()

	_, ok := GetUserClaims(ctx)
	assert.False(t, ok)

	_, err := RequireAuth(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	claims := &UserClaims{UID: "user-1", Email: "user@example.com"}
	ctx = WithUserClaims(ctx, claims)

	got, ok := GetUserClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UID)

	uid, ok := GetUserID(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", uid)
}

func TestDebugMiddlewareImpersonation(t *testing.T) {
	var seen *UserClaims
	handler := DebugMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserClaims(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/pending", nil)
	req.Header.Set("X-Debug-Impersonate-User", "alice")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.UID)
	assert.Equal(t, "alice@debug.local", seen.Email)
}

func TestDebugMiddlewareDefaultUser(t *testing.T) {
	var seen *UserClaims
	handler := DebugMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserClaims(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/pending", nil))

	require.NotNil(t, seen)
	assert.Equal(t, "local-dev-user", seen.UID)
}
