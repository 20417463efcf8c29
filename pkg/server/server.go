package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/recommend"
	"github.com/raterudder/solaradvisor/pkg/storage"
	"github.com/raterudder/solaradvisor/pkg/types"
)

const (
	maxBodyBytes = 1 << 20
	// maxFleetSize caps the homeowners of one installer query, each of which
	// costs a forecast fetch.
	maxFleetSize = 200
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	identityContextKey  contextKey = "identity"
)

// Publisher receives the recommendation served for a location.
type Publisher interface {
	Publish(ctx context.Context, location string, rec types.Recommendation) error
}

// Server handles the HTTP API for homeowner and installer queries.
type Server struct {
	service   *recommend.Service
	storage   storage.Database
	publisher Publisher

	listenAddr string
	httpServer *http.Server

	oidcVerifiers   map[string]tokenVerifier
	installerEmails []string
	bypassAuth      bool
	serverName      string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(svc *recommend.Service, s storage.Database, p Publisher) *Server {
	srv := &Server{
		service:    svc,
		storage:    s,
		publisher:  p,
		serverName: "solaradvisor",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudiences := map[string]string{}
	lflag.JSON(&oidcAudiences, "oidc-audiences", oidcAudiences, "JSON map of provider (google/apple) to audience/client ID for installer routes")
	installerEmails := lflag.String("installer-emails", "", "comma-delimited list of email addresses allowed on installer routes (any verified email when empty)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *installerEmails != "" {
			for _, email := range strings.Split(*installerEmails, ",") {
				srv.installerEmails = append(srv.installerEmails, strings.TrimSpace(email))
			}
		}
		if len(oidcAudiences) == 0 {
			log.Ctx(context.Background()).Warn("no oidc-audiences configured, installer routes are unauthenticated")
			srv.bypassAuth = true
			return
		}
		srv.oidcVerifiers = make(map[string]tokenVerifier, len(oidcAudiences))
		for n, a := range oidcAudiences {
			var issuer string
			switch n {
			case "google":
				issuer = "https://accounts.google.com"
			case "apple":
				issuer = "https://appleid.apple.com"
			default:
				log.Ctx(context.Background()).Error("unsupported oidc audience client", slog.String("client", n))
				os.Exit(1)
			}
			provider, err := oidc.NewProvider(context.Background(), issuer)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("client", n), slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifiers[n] = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: a}))
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/recommendations", s.handleRecommendations)
	apiMux.HandleFunc("POST /api/installer/recommendations", s.handleInstallerRecommendations)
	apiMux.HandleFunc("GET /api/list/fleets", s.handleListFleets)
	apiMux.HandleFunc("GET /api/fleets/{id}", s.handleGetFleet)
	apiMux.HandleFunc("PUT /api/fleets/{id}", s.handlePutFleet)
	apiMux.HandleFunc("DELETE /api/fleets/{id}", s.handleDeleteFleet)
	apiMux.HandleFunc("GET /api/fleets/{id}/recommendations", s.handleFleetRecommendations)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("POST /get-recommendations/", s.handleLegacyRecommendations)
	mux.Handle("POST /get-installer-recommendations/", s.authMiddleware(http.HandlerFunc(s.handleLegacyInstallerRecommendations)))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(s.requestIDMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux))))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// writeServiceError maps recommendation and storage errors to a status code.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, types.ErrMalformedProfile):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, types.ErrFleetNotFound):
		code, msg = http.StatusNotFound, "fleet not found"
	case errors.Is(err, types.ErrNoForecast):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, types.ErrFetchFailed):
		code, msg = http.StatusBadGateway, err.Error()
	case errors.Is(err, context.Canceled):
		// client went away
		panic(http.ErrAbortHandler)
	}
	if code >= http.StatusInternalServerError {
		if id := requestID(ctx); id != "" {
			msg += " (request " + id + ")"
		}
		log.Ctx(ctx).ErrorContext(ctx, "request failed", slog.Int("status", code), slog.Any("error", err))
	} else {
		log.Ctx(ctx).WarnContext(ctx, "request rejected", slog.Int("status", code), slog.Any("error", err))
	}
	writeJSONError(w, msg, code)
}

// decodeJSON reads a size-limited JSON body into v. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", types.ErrMalformedProfile, err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// publish hands rec to the publisher. Failures are logged and never affect
// the response.
func (s *Server) publish(ctx context.Context, location string, rec types.Recommendation) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, location, rec); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to publish recommendation", slog.String("location", location), slog.Any("error", err))
	}
}
