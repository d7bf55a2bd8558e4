package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kdsearch/coderetriever/internal/ai"
	"github.com/kdsearch/coderetriever/internal/auth"
	"github.com/kdsearch/coderetriever/internal/config"
	"github.com/kdsearch/coderetriever/internal/query"
	"github.com/kdsearch/coderetriever/internal/store"
	"github.com/kdsearch/coderetriever/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"
)

func providerConfig(cfg config.Specification) *ai.ProviderConfig {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return &ai.ProviderConfig{
			APIKey: cfg.APIKey, Model: cfg.EmbedModel, Dim: cfg.Dim,
			ProjectID: cfg.ProjectID, Provider: ai.ProviderOpenAI,
		}
	case "vertexai", "google":
		return &ai.ProviderConfig{
			APIKey: cfg.APIKey, Model: cfg.EmbedModel, Dim: cfg.Dim,
			ProjectID: cfg.ProjectID, Location: cfg.Location, Provider: ai.ProviderVertexAI,
		}
	case "stub":
		return &ai.ProviderConfig{Model: cfg.EmbedModel, Dim: cfg.Dim, Provider: ai.ProviderStub}
	default:
		return nil
	}
}

func main() {
	fs := pflag.NewFlagSet("coderetriever-server", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).
		Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting coderetriever server")

	auth.InitializeAuth(
		cfg.Auth.JwtSecret, cfg.Auth.GithubClientID, cfg.Auth.GithubClientSecret,
		cfg.Auth.GithubRedirectURL, cfg.Auth.GithubAllowedOrg, cfg.Auth.Enabled,
	)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer st.Close()

	pc := providerConfig(cfg)
	if pc == nil {
		log.Fatalf("unsupported provider: %s", cfg.Provider)
	}
	provider, err := ai.NewProvider(ctx, pc)
	if err != nil {
		log.Fatalf("failed to create embedding provider: %v", err)
	}
	logger.Info().Int("embedding_dim", provider.Dim()).Str("embed_model", provider.Model()).Msg("embedding provider initialized")

	if err := st.Migrate(ctx, provider.Dim()); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	orch := &query.Orchestrator{
		Backend:               st,
		DefaultProfile:        models.RetrievalProfile(cfg.DefaultRetrievalProfile),
		DefaultEmbeddingModel: strings.ToLower(provider.Model()),
		Compaction: query.CompactionOptions{
			MaxResults:      cfg.MaxResponseResults,
			MaxSnippetChars: cfg.MaxResponseSnippetChars,
			MaxJSONBytes:    cfg.MaxResponseBytes,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	mux.HandleFunc("/auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]bool{"enabled": auth.IsAuthEnabled()}); err != nil {
			http.Error(w, "failed to encode response", 500)
		}
	})

	if auth.IsAuthEnabled() {
		log.Println("authentication is ENABLED")
		registerAuthRoutes(mux)
	} else {
		log.Println("authentication is DISABLED - running in open mode")
	}

	mux.HandleFunc("/repositories", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		repos, err := st.ListRepositories(ctx)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(repos); err != nil {
			http.Error(w, "failed to encode repositories", 500)
		}
	}))

	mux.HandleFunc("/repositories/", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/repositories/"), "/")
		if !strings.HasSuffix(rel, "/branches") {
			http.NotFound(w, r)
			return
		}
		repoPart := strings.TrimPrefix(strings.TrimSuffix(rel, "/branches"), "/")
		repoName, err := url.PathUnescape(repoPart)
		if err != nil {
			http.Error(w, "invalid repository path", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		branches, err := st.ListBranches(ctx, repoName)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(branches); err != nil {
			http.Error(w, "failed to encode branches", 500)
		}
	}))

	mux.HandleFunc("/query", auth.OptionalAuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req models.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		resp := orch.Query(ctx, req)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("failed to encode query response: %v", err)
		}
		hlog.FromRequest(r).Info().Str("path", "/query").Str("intent", string(resp.Intent)).
			Int("results", len(resp.Results)).Int64("dur_ms", resp.ExecutionTimeMs).Msg("served")
	}))

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("server listening")
	log.Fatal(s.ListenAndServe())
}

// registerAuthRoutes wires the GitHub OAuth dance; broken out of main
// since it's only reachable when auth is enabled.
func registerAuthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/github", func(w http.ResponseWriter, r *http.Request) {
		state := auth.GenerateState()
		http.SetCookie(w, &http.Cookie{
			Name: "oauth_state", Value: state, Path: "/", MaxAge: 600, HttpOnly: true,
			Secure:   strings.HasPrefix(r.Header.Get("X-Forwarded-Proto"), "https"),
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, auth.GetGithubLoginURL(state), http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		stateCookie, err := r.Cookie("oauth_state")
		if err != nil || stateCookie.Value != state {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		accessToken, err := auth.ExchangeCodeForToken(code)
		if err != nil {
			http.Error(w, "failed to exchange code for token", http.StatusInternalServerError)
			return
		}
		user, err := auth.GetGithubUser(accessToken)
		if err != nil {
			http.Error(w, "failed to get user info: "+err.Error(), http.StatusInternalServerError)
			return
		}
		token, err := auth.GenerateJWT(user)
		if err != nil {
			http.Error(w, "failed to generate token", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name: "auth_token", Value: token, Path: "/", MaxAge: 86400, HttpOnly: true,
			Secure:   strings.HasPrefix(r.Header.Get("X-Forwarded-Proto"), "https"),
			SameSite: http.SameSiteLaxMode,
		})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(auth.AuthResponse{User: *user, Token: token}); err != nil {
			http.Error(w, "failed to encode response", 500)
		}
	})

	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		var tokenString string
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
			tokenString = strings.TrimPrefix(ah, "Bearer ")
		} else if cookie, err := r.Cookie("auth_token"); err == nil {
			tokenString = cookie.Value
		}
		if tokenString == "" {
			http.Error(w, "no authentication token", http.StatusUnauthorized)
			return
		}
		user, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(auth.AuthResponse{User: *user, Token: tokenString}); err != nil {
			http.Error(w, "failed to encode response", 500)
		}
	})

	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusOK)
	})
}
