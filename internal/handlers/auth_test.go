package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owasp-blt/blt-gateway/internal/auth"
	"github.com/owasp-blt/blt-gateway/internal/email"
	"github.com/owasp-blt/blt-gateway/internal/router"
	"github.com/owasp-blt/blt-gateway/internal/store"
)

// recordingSender captures outbound mail for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.Message(nil), s.sent...)
}

type authFixture struct {
	gateway http.Handler
	users   store.UserStore
	tokens  *auth.TokenIssuer
	mail    *recordingSender
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	tokens, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", "blt-gateway")
	require.NoError(t, err)

	users := store.NewMemoryUserStore()
	sender := &recordingSender{}
	h := &AuthHandler{
		users:      users,
		tokens:     tokens,
		mail:       sender,
		logger:     testLogger(),
		verifyBase: "https://gw.example.com",
	}

	r := router.New()
	require.NoError(t, h.Register(r))

	return &authFixture{
		gateway: router.NewDispatcher(r),
		users:   users,
		tokens:  tokens,
		mail:    sender,
	}
}

func (f *authFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestSignup(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	rec := f.post(t, "/auth/signup",
		`{"username":"jane","email":"jane@example.com","password":"sup3r-secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Data signupResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "jane", env.Data.Username)
	assert.NotZero(t, env.Data.ID)
	// The password hash never leaks into the response.
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$")

	msgs := f.mail.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "jane@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Body, "https://gw.example.com/auth/verify-email?token=")
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing fields", body: `{"username":"jane"}`},
		{name: "bad email", body: `{"username":"jane","email":"not-an-email","password":"sup3r-secret"}`},
		{name: "weak password", body: `{"username":"jane","email":"jane@example.com","password":"short"}`},
		{name: "malformed json", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newAuthFixture(t)
			rec := f.post(t, "/auth/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSignupDuplicate(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	body := `{"username":"jane","email":"jane@example.com","password":"sup3r-secret"}`
	require.Equal(t, http.StatusCreated, f.post(t, "/auth/signup", body).Code)

	rec := f.post(t, "/auth/signup", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already")
}

func TestSigninIssuesVerifiableToken(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	require.Equal(t, http.StatusCreated, f.post(t, "/auth/signup",
		`{"username":"jane","email":"jane@example.com","password":"sup3r-secret"}`).Code)

	rec := f.post(t, "/auth/signin", `{"login":"jane","password":"sup3r-secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data signinResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)

	claims, err := f.tokens.Verify(env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, env.Data.UserID, claims.UserID)
	assert.Equal(t, "jane", claims.Username)

	// Email works as login too.
	rec = f.post(t, "/auth/signin", `{"login":"jane@example.com","password":"sup3r-secret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSigninRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	require.Equal(t, http.StatusCreated, f.post(t, "/auth/signup",
		`{"username":"jane","email":"jane@example.com","password":"sup3r-secret"}`).Code)

	// Unknown user and wrong password are indistinguishable.
	recUnknown := f.post(t, "/auth/signin", `{"login":"nobody","password":"sup3r-secret"}`)
	recWrong := f.post(t, "/auth/signin", `{"login":"jane","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
	assert.JSONEq(t, recUnknown.Body.String(), recWrong.Body.String())

	rec := f.post(t, "/auth/signin", `{"login":"jane"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEmailFlow(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	require.Equal(t, http.StatusCreated, f.post(t, "/auth/signup",
		`{"username":"jane","email":"jane@example.com","password":"sup3r-secret"}`).Code)

	msgs := f.mail.messages()
	require.Len(t, msgs, 1)
	_, token, ok := strings.Cut(msgs[0].Body, "token=")
	require.True(t, ok)
	token = strings.Fields(token)[0]

	rec := httptest.NewRecorder()
	f.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify-email?token="+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"verified":true`)

	user, err := f.users.GetUserByLogin(context.Background(), "jane")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	// Welcome mail followed the verification.
	msgs = f.mail.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Subject, "Welcome")

	// Token is single use.
	rec = httptest.NewRecorder()
	f.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify-email?token="+token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify-email", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
