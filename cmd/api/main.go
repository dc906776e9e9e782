package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"quill/pkg/auth"
	"quill/pkg/hardening"
	"quill/pkg/httpx"
	"quill/pkg/models"
	"quill/pkg/oid"
	"quill/pkg/ratelimit"
	"quill/pkg/store"
	"quill/pkg/telemetry"
	"quill/pkg/token"
)

type userStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, page int) (models.UserPage, error)
	Update(ctx context.Context, id string, name, bio *string) (*models.User, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type postStore interface {
	Create(ctx context.Context, in store.NewPost) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, f store.PostFilter) (models.PostPage, error)
	Update(ctx context.Context, id string, patch store.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id string) (bool, error)
	ToggleLike(ctx context.Context, postID, userID string) (int, bool, error)
}

type categoryStore interface {
	Create(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type commentStore interface {
	Create(ctx context.Context, postID, authorID, body string) (*models.Comment, error)
	Get(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Server struct {
	Users      userStore
	Posts      postStore
	Categories categoryStore
	Comments   commentStore
	Cache      store.Cache

	Codec    *token.Codec
	Verifier *auth.Verifier

	RateLimiter   ratelimit.Limiter
	AuthRateLimit int

	CookieSecure bool
	PostCacheTTL time.Duration
}

type apiDBCloser interface {
	store.DB
	Close()
}

type apiInitTelemetryFunc func(ctx context.Context, service string) (func(context.Context) error, error)
type apiOpenDBFunc func(ctx context.Context) (apiDBCloser, error)
type apiOpenRedisFunc func(ctx context.Context) (*redis.Client, error)
type apiListenFunc func(server *http.Server) error

// Testable variables for main()
var (
	logFatalf      = log.Fatalf
	initTelemetryA = telemetry.Init
	openDBFnA      = func(ctx context.Context) (apiDBCloser, error) { return store.NewPostgresPool(ctx) }
	openRedisFnA   = store.NewRedis
	listenFnA      = func(server *http.Server) error { return server.ListenAndServe() }
)

func main() {
	if err := runAPI(initTelemetryA, openDBFnA, openRedisFnA, listenFnA); err != nil {
		logFatalf("api: %v", err)
	}
}

func runAPI(
	initTelemetry apiInitTelemetryFunc,
	openDB apiOpenDBFunc,
	openRedis apiOpenRedisFunc,
	listen apiListenFunc,
) error {
	ctx := context.Background()

	environment := env("ENVIRONMENT", env("APP_ENV", "development"))
	httpx.SetProduction(isProductionLikeEnv(environment))

	tokenTTL := time.Hour * time.Duration(envInt("TOKEN_TTL_HOURS", 168))
	codec, err := token.NewCodec(env("TOKEN_SECRET", ""), tokenTTL)
	if err != nil {
		return fmt.Errorf("token config: %w", err)
	}

	if err := hardening.ValidateProduction(hardening.Options{
		Service:               "api",
		Environment:           environment,
		StrictProdSecurity:    env("STRICT_PROD_SECURITY", "true"),
		DatabaseRequireTLS:    env("DATABASE_REQUIRE_TLS", ""),
		RedisAddr:             env("REDIS_ADDR", ""),
		RedisRequireTLS:       env("REDIS_REQUIRE_TLS", ""),
		RedisTLSInsecure:      env("REDIS_TLS_INSECURE", ""),
		RedisAllowInsecureTLS: env("REDIS_ALLOW_INSECURE_TLS", ""),
		CORSAllowedOrigins:    env("CORS_ALLOWED_ORIGINS", ""),
		RequiredServiceSecrets: []hardening.EnvRequirement{
			{Name: "TOKEN_SECRET", Value: env("TOKEN_SECRET", "")},
		},
	}); err != nil {
		return err
	}

	shutdown, err := initTelemetry(ctx, "api")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	pool, err := openDB(ctx)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()
	if err := store.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := openRedis(ctx)
	if err != nil {
		log.Printf("redis unavailable, falling back to in-memory cache/limits: %v", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	rateLimitWindow := time.Second * time.Duration(envInt("RATE_LIMIT_WINDOW_SEC", 60))
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	var limiter ratelimit.Limiter
	if env("RATE_LIMIT_ENABLED", "true") == "true" {
		if redisClient != nil {
			limiter = ratelimit.NewRedis(redisClient, rateLimitWindow)
		} else {
			limiter = ratelimit.NewInMemory(rateLimitWindow)
		}
	}

	users := &store.Users{DB: pool}
	s := &Server{
		Users:         users,
		Posts:         &store.Posts{DB: pool},
		Categories:    &store.Categories{DB: pool},
		Comments:      &store.Comments{DB: pool},
		Cache:         store.NewCache(ctx, redisClient),
		Codec:         codec,
		Verifier:      &auth.Verifier{Codec: codec, Users: users},
		RateLimiter:   limiter,
		AuthRateLimit: envInt("RATE_LIMIT_AUTH_PER_WINDOW", 10),
		CookieSecure:  isProductionLikeEnv(environment),
		PostCacheTTL:  time.Second * time.Duration(envInt("POST_CACHE_TTL_SEC", 30)),
	}

	handler := s.routes(env("CORS_ALLOWED_ORIGINS", ""), int64(envInt("MAX_REQUEST_BODY_BYTES", 1<<20)))
	addr := env("ADDR", ":8080")
	log.Printf("api listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: envDurationSec("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		ReadTimeout:       envDurationSec("HTTP_READ_TIMEOUT_SEC", 15),
		WriteTimeout:      envDurationSec("HTTP_WRITE_TIMEOUT_SEC", 30),
		IdleTimeout:       envDurationSec("HTTP_IDLE_TIMEOUT_SEC", 120),
	}
	if err := listen(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, httpx.NewError(http.StatusUnauthorized, "no token provided"))
	}
	return principal, ok
}

// canModify gates per-record ownership checks the route predicates cannot
// express: the record's author or any admin.
func canModify(p auth.Principal, authorID string) bool {
	return p.Admin || oid.Normalize(p.ID) == oid.Normalize(authorID)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDurationSec(k string, def int) time.Duration {
	return time.Second * time.Duration(envInt(k, def))
}

func isProductionLikeEnv(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production", "staging", "stage":
		return true
	default:
		return false
	}
}
