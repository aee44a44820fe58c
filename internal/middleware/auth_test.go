package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Uni_Connect/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	current   map[uint64]string
	extendErr error
	extended  int
}

func (s *stubTokens) GetUserToken(_ context.Context, userID uint64) (string, error) {
	t, ok := s.current[userID]
	if !ok {
		return "", errors.New("no session")
	}
	return t, nil
}

func (s *stubTokens) ExtendUserToken(context.Context, uint64) error {
	s.extended++
	return s.extendErr
}

func newAuthRouter(jwt *pkg.JWTManager, tokens TokenChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(jwt, tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint64(ContextUserIDKey)})
	})
	return r
}

func TestAuth(t *testing.T) {
	jwt := pkg.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	pair, err := jwt.GeneratePair(42)
	require.NoError(t, err)
	stale, err := jwt.GeneratePair(42)
	require.NoError(t, err)

	tokens := &stubTokens{current: map[uint64]string{42: pair.AccessToken}}
	r := newAuthRouter(jwt, tokens)

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, "", http.StatusUnauthorized},
		{"replaced session", "Bearer " + stale.AccessToken, "", http.StatusUnauthorized},
		{"header", "Bearer " + pair.AccessToken, "", http.StatusOK},
		{"query param", "", "?access_token=" + pair.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42}`, w.Body.String())
			}
		})
	}
	assert.Equal(t, 2, tokens.extended)
}

func TestAuthSessionStoreDown(t *testing.T) {
	jwt := pkg.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	pair, err := jwt.GeneratePair(7)
	require.NoError(t, err)
	tokens := &stubTokens{current: map[uint64]string{7: pair.AccessToken}, extendErr: errors.New("redis down")}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	newAuthRouter(jwt, tokens).ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
