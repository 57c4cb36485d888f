package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-cz/devslog"
	"github.com/gorilla/websocket"
	"github.com/mattn/go-isatty"

	"github.com/whirlpost/blog-engine/graph"
	"github.com/whirlpost/blog-engine/graph/generated"
	"github.com/whirlpost/blog-engine/internal/auth"
	"github.com/whirlpost/blog-engine/internal/dataloader"
	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/service"
	"github.com/whirlpost/blog-engine/internal/storage"
	"github.com/whirlpost/blog-engine/internal/storage/inmemory"
	"github.com/whirlpost/blog-engine/internal/storage/postgres"
)

const defaultPort = "8080"

var errInvalidLogLevel = errors.New("invalid log level")

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %s", errInvalidLogLevel, level)
	}
}

// initLogger настраивает slog: читаемый devslog в терминале,
// JSON в остальных случаях.
func initLogger(level string) error {
	w := os.Stdout

	parsedLevel, err := parseLevel(level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: parsedLevel}

	var h slog.Handler
	if isatty.IsTerminal(w.Fd()) {
		h = devslog.NewHandler(w, &devslog.Options{HandlerOptions: opts})
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(h))
	return nil
}

func main() {
	if err := initLogger(os.Getenv("LOG_LEVEL")); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	logger := slog.Default()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	flag.Parse()

	var store storage.Storage
	var err error

	logger.Info("starting server", "storage", *storageType)
	if *storageType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			logger.Error("DATABASE_URL must be set for postgres storage")
			os.Exit(1)
		}
		store, err = postgres.New(dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
	} else {
		store = inmemory.New()
	}

	engine := service.NewEngine(
		store,
		&service.NoopMediaStore{Log: logger},
		service.NewNotifier(store, logger),
		logger,
	)

	if *storageType != "postgres" {
		seedDevData(engine)
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware)

	resolver := graph.NewResolver(engine)
	schema := generated.NewExecutableSchema(generated.Config{Resolvers: resolver})

	srv := handler.NewDefaultServer(schema)
	srv.AddTransport(&transport.Websocket{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		KeepAlivePingInterval: 10 * time.Second,
	})

	router.Handle("/", playground.Handler("GraphQL playground", "/query"))
	router.Handle("/query", dataloader.Middleware(store, srv))

	logger.Info("connect for GraphQL playground", "url", "http://localhost:"+port+"/")
	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// seedDevData наполняет in-memory хранилище данными для ручных проб.
func seedDevData(engine *service.Engine) {
	ctx := context.Background()

	admin, err := engine.CreateUser(ctx, "admin", domain.RoleAdmin)
	if err != nil {
		log.Fatalf("seed: failed to create admin: %v", err)
	}
	alice, err := engine.CreateUser(ctx, "alice", domain.RoleUser)
	if err != nil {
		log.Fatalf("seed: failed to create user: %v", err)
	}
	bob, err := engine.CreateUser(ctx, "bob", domain.RoleUser)
	if err != nil {
		log.Fatalf("seed: failed to create user: %v", err)
	}

	post, err := engine.CreatePost(ctx, alice.ID, service.PostInput{
		Title:    "Transactions in practice",
		Content:  "Why denormalized counters need a transaction around them.",
		Tags:     []string{"databases", "consistency"},
		Category: "engineering",
	})
	if err != nil {
		log.Fatalf("seed: failed to create post: %v", err)
	}
	if _, err := engine.ApprovePost(ctx, service.Actor{ID: admin.ID, Role: domain.RoleAdmin}, post.ID); err != nil {
		log.Fatalf("seed: failed to approve post: %v", err)
	}

	root, err := engine.CreateComment(ctx, bob.ID, post.ID, "Great writeup!")
	if err != nil {
		log.Fatalf("seed: failed to create comment: %v", err)
	}
	if _, err := engine.CreateReply(ctx, alice.ID, root.ID, "Thanks!"); err != nil {
		log.Fatalf("seed: failed to create reply: %v", err)
	}
	if _, err := engine.ToggleLike(ctx, bob.ID, domain.PostTarget(post.ID)); err != nil {
		log.Fatalf("seed: failed to like post: %v", err)
	}

	slog.Info("dev data seeded", "post", post.ID, "admin", admin.ID, "users", []string{alice.ID, bob.ID})
}
