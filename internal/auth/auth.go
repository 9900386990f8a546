package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type contextKey string

const participantContextKey contextKey = "auth.participant"

// Participant is an authenticated collaborator.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identifier resolves the participant behind a request.
type Identifier interface {
	Identify(r *http.Request) (Participant, error)
}

// JWTIdentifier accepts HS256 tokens carrying a user_id claim.
type JWTIdentifier struct {
	secret []byte
	parser *gojwt.Parser
}

func NewJWTIdentifier(secret string) (*JWTIdentifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTIdentifier{
		secret: []byte(secret),
		parser: gojwt.NewParser(gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()})),
	}, nil
}

func (j *JWTIdentifier) Identify(r *http.Request) (Participant, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Participant{}, ErrUnauthenticated
	}
	token, err := j.parser.Parse(raw, func(*gojwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		return Participant{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return Participant{}, ErrUnauthenticated
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Participant{}, fmt.Errorf("%w: token missing user_id", ErrUnauthenticated)
	}
	name, _ := claims["username"].(string)
	if name == "" {
		name = userID
	}
	return Participant{ID: userID, Name: name}, nil
}

// Issue signs a token for p that expires after ttl.
func Issue(secret string, p Participant, ttl time.Duration) (string, error) {
	claims := gojwt.MapClaims{
		"user_id":  p.ID,
		"username": p.Name,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// DevIdentifier trusts the caller. A ?user= query parameter overrides the
// default participant so several local tabs can act as different users.
type DevIdentifier struct {
	Default string
}

func (d DevIdentifier) Identify(r *http.Request) (Participant, error) {
	user := r.URL.Query().Get("user")
	if user == "" {
		user = d.Default
	}
	if user == "" {
		user = "dev-user"
	}
	return Participant{ID: user, Name: user}, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the
// participant in the request context.
func Middleware(id Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := id.Identify(r)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithParticipant(r.Context(), p)))
		})
	}
}

func ContextWithParticipant(ctx context.Context, p Participant) context.Context {
	return context.WithValue(ctx, participantContextKey, p)
}

func ParticipantFromContext(ctx context.Context) (Participant, bool) {
	p, ok := ctx.Value(participantContextKey).(Participant)
	if !ok || p.ID == "" {
		return Participant{}, false
	}
	return p, true
}

// bearerToken reads the Authorization header, falling back to ?token= since
// browsers cannot set headers on a websocket upgrade.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
