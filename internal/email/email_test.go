package email

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/util"
)

func TestHTTPSenderSend(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "noreply@example.com", r.PostForm.Get("from"))
		assert.Equal(t, "jane@example.com", r.PostForm.Get("to"))
		assert.Equal(t, "Verify your email address", r.PostForm.Get("subject"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "key-123", pass)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewHTTPSender(Config{
		BaseURL: srv.URL,
		APIKey:  "key-123",
		From:    "noreply@example.com",
	}, observability.NopLogger())
	require.NoError(t, err)

	msg := VerificationMessage("jane@example.com", "jane", "https://gw.example.com/auth/verify-email?token=t")
	require.NoError(t, s.Send(context.Background(), msg))
}

func TestHTTPSenderErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := NewHTTPSender(Config{BaseURL: srv.URL, From: "noreply@example.com"}, nil)
	require.NoError(t, err)

	err = s.Send(context.Background(), Message{To: "jane@example.com"})
	require.Error(t, err)
	var be *util.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
}

func TestNewRespectsEnabledFlag(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, NopSender{}, s)
	assert.NoError(t, s.Send(context.Background(), Message{}))

	_, err = New(Config{Enabled: true}, nil)
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	v := VerificationMessage("jane@example.com", "jane", "https://gw/verify?token=abc")
	assert.Equal(t, "jane@example.com", v.To)
	assert.Contains(t, v.Body, "jane")
	assert.Contains(t, v.Body, "https://gw/verify?token=abc")

	w := WelcomeMessage("jane@example.com", "jane")
	assert.Contains(t, w.Body, "verified")
}
