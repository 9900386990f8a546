package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-for-collab"

func newIdentifier(t *testing.T) *JWTIdentifier {
	t.Helper()
	id, err := NewJWTIdentifier(testSecret)
	if err != nil {
		t.Fatalf("new identifier: %v", err)
	}
	return id
}

func TestJWTFromHeader(t *testing.T) {
	token, err := Issue(testSecret, Participant{ID: "42", Name: "alice"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/ws/forms/1", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	p, err := newIdentifier(t).Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	assert.Equal(t, p, Participant{ID: "42", Name: "alice"})
}

func TestJWTFromQuery(t *testing.T) {
	token, _ := Issue(testSecret, Participant{ID: "7"}, time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/ws/forms/1?token="+token, nil)

	p, err := newIdentifier(t).Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	assert.Equal(t, p.Name, "7")
}

func TestJWTRejects(t *testing.T) {
	expired, _ := Issue(testSecret, Participant{ID: "1"}, -time.Minute)
	wrongKey, _ := Issue("another-secret", Participant{ID: "1"}, time.Minute)
	noUser, _ := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{"username": "x"}).
		SignedString([]byte(testSecret))

	cases := map[string]string{
		"missing":   "",
		"garbage":   "not-a-jwt",
		"expired":   expired,
		"wrong key": wrongKey,
		"no user":   noUser,
	}
	id := newIdentifier(t)
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			if _, err := id.Identify(r); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestDevIdentifier(t *testing.T) {
	d := DevIdentifier{Default: "dev"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	p, _ := d.Identify(r)
	assert.Equal(t, p.ID, "dev")

	r = httptest.NewRequest(http.MethodGet, "/?user=bob", nil)
	p, _ = d.Identify(r)
	assert.Equal(t, p.ID, "bob")
}

func TestMiddleware(t *testing.T) {
	var seen Participant
	handler := Middleware(newIdentifier(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ParticipantFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, rec.Code, http.StatusUnauthorized)

	token, _ := Issue(testSecret, Participant{ID: "9", Name: "carol"}, time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, seen.Name, "carol")
}
