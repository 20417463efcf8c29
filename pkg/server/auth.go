package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/raterudder/solaradvisor/pkg/log"
)

// identity is the verified caller of an installer route.
type identity struct {
	Subject string
	Email   string
}

// tokenVerifier validates a Google or Apple ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (identity, error)

func oidcVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (identity, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return identity{}, err
		}
		var claims struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return identity{}, fmt.Errorf("failed to parse claims: %w", err)
		}
		if claims.Email != "" && !claims.EmailVerified {
			return identity{}, fmt.Errorf("email %s is not verified", claims.Email)
		}
		return identity{Subject: idToken.Subject, Email: claims.Email}, nil
	}
}

// requiresInstaller reports whether path is restricted to installers.
// Homeowner queries are open.
func requiresInstaller(path string) bool {
	return strings.HasPrefix(path, "/api/installer/") ||
		strings.HasPrefix(path, "/api/fleets/") ||
		path == "/api/list/fleets" ||
		path == "/get-installer-recommendations/"
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.bypassAuth || !requiresInstaller(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "no auth header found")
			writeJSONError(w, "missing auth header", http.StatusUnauthorized)
			return
		}
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			log.Ctx(ctx).WarnContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}

		id, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
		if len(s.installerEmails) > 0 && !slices.Contains(s.installerEmails, id.Email) {
			log.Ctx(ctx).WarnContext(ctx, "email is not an installer", slog.String("email", id.Email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx = context.WithValue(ctx, identityContextKey, id)
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("email", id.Email)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticateToken tries every configured verifier and returns the first
// identity that verifies.
func (s *Server) authenticateToken(ctx context.Context, token string) (identity, error) {
	var errs []error
	for providerName, verifier := range s.oidcVerifiers {
		id, err := verifier(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, fmt.Errorf("%s verifier failed: %w", providerName, err))
	}
	if len(errs) > 0 {
		return identity{}, errors.Join(errs...)
	}
	return identity{}, errors.New("no valid audiences configured or token invalid")
}
