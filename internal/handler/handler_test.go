package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-relay-go/internal/config"
	"contact-relay-go/internal/mailer"
	"contact-relay-go/internal/metrics"
	"contact-relay-go/internal/models"
)

// promauto registers on the default registry, so the test binary shares one
// metrics instance.
var testMetrics = metrics.NewMetrics()

type callLog struct {
	calls []string
}

type fakeStore struct {
	log         *callLog
	submissions []*models.Submission
	createErr   error
	cred        *models.OAuthCredential
	credErr     error
	pingErr     error
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.log != nil {
		f.log.calls = append(f.log.calls, "persist")
	}
	f.submissions = append(f.submissions, sub)
	return nil
}

func (f *fakeStore) GetCredential(ctx context.Context) (*models.OAuthCredential, error) {
	return f.cred, f.credErr
}

type sendCall struct {
	to, subject, body string
}

type fakeDispatcher struct {
	log   *callLog
	err   error
	sends []sendCall
}

func (f *fakeDispatcher) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.sends = append(f.sends, sendCall{to: to, subject: subject, body: htmlBody})
	if f.log != nil {
		f.log.calls = append(f.log.calls, "send")
	}
	return f.err
}

type fakeAuthorizer struct {
	url   string
	codes []string
	err   error
	cred  *models.OAuthCredential
}

func (f *fakeAuthorizer) AuthURL() string {
	return f.url
}

func (f *fakeAuthorizer) Exchange(ctx context.Context, code string) (*models.OAuthCredential, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func newTestRouter(st Store, d Dispatcher, a Authorizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandlers(st, d, a, testMetrics, config.MailConfig{
		ToEmail: "owner@example.com",
		Subject: "New Message from Your Portfolio Website",
	})
	h.SetupRoutes(r)
	return r
}

func postContact(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestContactSuccess(t *testing.T) {
	log := &callLog{}
	store := &fakeStore{log: log}
	dispatcher := &fakeDispatcher{log: log}
	r := newTestRouter(store, dispatcher, &fakeAuthorizer{})

	w := postContact(r, `{"name":"A","email":"a@x.com","message":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Message sent successfully"}`, w.Body.String())

	require.Len(t, store.submissions, 1)
	assert.Equal(t, "A", store.submissions[0].Name)
	assert.Equal(t, "a@x.com", store.submissions[0].Email)
	assert.Equal(t, "hi", store.submissions[0].Message)

	require.Len(t, dispatcher.sends, 1)
	assert.Equal(t, "owner@example.com", dispatcher.sends[0].to)
	assert.Equal(t, "New Message from Your Portfolio Website", dispatcher.sends[0].subject)
	assert.Contains(t, dispatcher.sends[0].body, "<strong>Name:</strong> A")

	// The submission is persisted strictly before the relay attempt.
	assert.Equal(t, []string{"persist", "send"}, log.calls)
}

func TestContactMissingFields(t *testing.T) {
	bodies := []string{
		`{"name":"","email":"a@x.com","message":"hi"}`,
		`{"email":"a@x.com","message":"hi"}`,
		`{"name":"A","email":"","message":"hi"}`,
		`{"name":"A","email":"a@x.com","message":""}`,
		`{"name":"A","email":"a@x.com"}`,
		`{}`,
		``,
	}

	for _, body := range bodies {
		store := &fakeStore{}
		dispatcher := &fakeDispatcher{}
		r := newTestRouter(store, dispatcher, &fakeAuthorizer{})

		w := postContact(r, body)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
		assert.JSONEq(t, `{"success":false,"message":"All fields are required"}`, w.Body.String())
		assert.Empty(t, store.submissions, "body: %s", body)
		assert.Empty(t, dispatcher.sends, "body: %s", body)
	}
}

func TestContactDispatchFailure(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{err: errors.New("quota exceeded")}
	r := newTestRouter(store, dispatcher, &fakeAuthorizer{})

	w := postContact(r, `{"name":"A","email":"a@x.com","message":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to send message"}`, w.Body.String())

	// The submission survives a failed relay.
	assert.Len(t, store.submissions, 1)
}

func TestContactUnauthorizedDispatch(t *testing.T) {
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{err: mailer.ErrNotAuthorized}
	r := newTestRouter(store, dispatcher, &fakeAuthorizer{})

	w := postContact(r, `{"name":"A","email":"a@x.com","message":"hi"}`)

	// Missing authorization collapses into the same generic failure.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to send message"}`, w.Body.String())
	assert.Len(t, store.submissions, 1)
}

func TestContactPersistenceFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("database unavailable")}
	dispatcher := &fakeDispatcher{}
	r := newTestRouter(store, dispatcher, &fakeAuthorizer{})

	w := postContact(r, `{"name":"A","email":"a@x.com","message":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to send message"}`, w.Body.String())
	assert.Empty(t, dispatcher.sends)
}

func TestAuthRedirect(t *testing.T) {
	authz := &fakeAuthorizer{url: "https://accounts.google.com/o/oauth2/auth?client_id=test"}
	r := newTestRouter(&fakeStore{}, &fakeDispatcher{}, authz)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, authz.url, w.Header().Get("Location"))
}

func TestOAuthCallback(t *testing.T) {
	authz := &fakeAuthorizer{cred: &models.OAuthCredential{AccessToken: "access-token"}}
	r := newTestRouter(&fakeStore{}, &fakeDispatcher{}, authz)

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=validcode", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gmail API connected")
	assert.Equal(t, []string{"validcode"}, authz.codes)
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	authz := &fakeAuthorizer{}
	r := newTestRouter(&fakeStore{}, &fakeDispatcher{}, authz)

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, authz.codes)
}

func TestOAuthCallbackExchangeFailure(t *testing.T) {
	authz := &fakeAuthorizer{err: errors.New("invalid_grant")}
	r := newTestRouter(&fakeStore{}, &fakeDispatcher{}, authz)

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=expired", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "invalid_grant")
}

func TestHealthCheck(t *testing.T) {
	store := &fakeStore{cred: &models.OAuthCredential{AccessToken: "access-token"}}
	r := newTestRouter(store, &fakeDispatcher{}, &fakeAuthorizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.Contains(t, w.Body.String(), `"gmail":"ok"`)
}

func TestHealthCheckUnauthorized(t *testing.T) {
	r := newTestRouter(&fakeStore{}, &fakeDispatcher{}, &fakeAuthorizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Missing authorization is reported, not treated as unhealthy.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gmail":"unauthorized"`)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	store := &fakeStore{pingErr: errors.New("connection refused")}
	r := newTestRouter(store, &fakeDispatcher{}, &fakeAuthorizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"error"`)
}
