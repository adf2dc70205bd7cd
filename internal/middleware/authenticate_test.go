package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yogastudio/internal/auth"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Validate(token string) bool {
	return m.Called(token).Bool(0)
}

func (m *MockTokenValidator) ExtractSubject(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

type MockPrincipalLoader struct {
	mock.Mock
}

func (m *MockPrincipalLoader) LoadByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Principal), args.Error(1)
}

// runAuthenticate passes req through Authenticate and returns the principal
// seen by the next handler and whether next ran.
func runAuthenticate(tokens TokenValidator, principals PrincipalLoader, req *http.Request) (*auth.Principal, bool, *httptest.ResponseRecorder) {
	var seen *auth.Principal
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = auth.PrincipalFrom(r.Context())
	})
	rec := httptest.NewRecorder()
	Authenticate(tokens, principals)(next).ServeHTTP(rec, req)
	return seen, called, rec
}

func TestAuthenticate_ValidToken(t *testing.T) {
	tokens := new(MockTokenValidator)
	principals := new(MockPrincipalLoader)
	p := &auth.Principal{ID: 1, Username: "u@example.com"}
	tokens.On("Validate", "tok").Return(true)
	tokens.On("ExtractSubject", "tok").Return("u@example.com", nil)
	principals.On("LoadByUsername", mock.Anything, "u@example.com").Return(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer tok")
	seen, called, rec := runAuthenticate(tokens, principals, req)

	assert.True(t, called)
	assert.Same(t, p, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
	tokens.AssertExpectations(t)
	principals.AssertExpectations(t)
}

func TestAuthenticate_NoToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic scheme", "Basic dXNlcjpwdw=="},
		{"lowercase bearer", "bearer tok"},
		{"bearer without token", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := new(MockTokenValidator)
			principals := new(MockPrincipalLoader)
			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			seen, called, _ := runAuthenticate(tokens, principals, req)

			assert.True(t, called)
			assert.Nil(t, seen)
			tokens.AssertNotCalled(t, "Validate", mock.Anything)
			principals.AssertNotCalled(t, "LoadByUsername", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	tokens := new(MockTokenValidator)
	principals := new(MockPrincipalLoader)
	tokens.On("Validate", "expired").Return(false)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer expired")
	seen, called, rec := runAuthenticate(tokens, principals, req)

	assert.True(t, called)
	assert.Nil(t, seen)
	assert.Empty(t, rec.Body.String(), "the authenticator never writes a response")
	principals.AssertNotCalled(t, "LoadByUsername", mock.Anything, mock.Anything)
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	tokens := new(MockTokenValidator)
	principals := new(MockPrincipalLoader)
	tokens.On("Validate", "tok").Return(true)
	tokens.On("ExtractSubject", "tok").Return("deleted@example.com", nil)
	principals.On("LoadByUsername", mock.Anything, "deleted@example.com").Return(nil, auth.ErrPrincipalNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer tok")
	seen, called, _ := runAuthenticate(tokens, principals, req)

	assert.True(t, called)
	assert.Nil(t, seen)
}

func TestAuthenticate_ExtractSubjectError(t *testing.T) {
	tokens := new(MockTokenValidator)
	principals := new(MockPrincipalLoader)
	tokens.On("Validate", "tok").Return(true)
	tokens.On("ExtractSubject", "tok").Return("", errors.New("parse"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	seen, called, _ := runAuthenticate(tokens, principals, req)

	assert.True(t, called)
	assert.Nil(t, seen)
}

type panickingLoader struct{}

func (panickingLoader) LoadByUsername(context.Context, string) (*auth.Principal, error) {
	panic("storage exploded")
}

func TestAuthenticate_PanicIsDowngraded(t *testing.T) {
	tokens := new(MockTokenValidator)
	tokens.On("Validate", "tok").Return(true)
	tokens.On("ExtractSubject", "tok").Return("u@example.com", nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	var seen *auth.Principal
	var called bool
	assert.NotPanics(t, func() {
		seen, called, _ = runAuthenticate(tokens, panickingLoader{}, req)
	})
	assert.True(t, called)
	assert.Nil(t, seen)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(req))
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", BearerToken(req))
}
