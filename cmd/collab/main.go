package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"

	"sdgplan/collab/internal/auth"
	"sdgplan/collab/internal/collab"
	"sdgplan/collab/internal/config"
	"sdgplan/collab/internal/docsink"
	"sdgplan/collab/internal/httpapi"
	"sdgplan/collab/internal/storage"
)

const CollabVersion = "0.1.0"

func main() {
	usage := `Collaborative action plan editing server.

Usage:
    collab serve [--env=<file>] [--v=<level>]
    collab migrate [--env=<file>] [--v=<level>]
    collab sync <form_id> [--env=<file>] [--v=<level>]
    collab token <user_id> [--name=<name>] [--ttl=<ttl>] [--env=<file>]
    collab -h | --help
    collab --version

Options:
    -h --help        Show this screen.
    --version        Show version.
    --env=<file>     Environment file [default: .env].
    --v=<level>      Log verbosity [default: 0].
    --name=<name>    Display name carried in the token.
    --ttl=<ttl>      Token lifetime [default: 24h].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], CollabVersion)
	if err != nil {
		panic(err)
	}

	level, _ := opts.String("--v")
	flag.Set("logtostderr", "true")
	flag.Set("v", level)
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	envFile, _ := opts.String("--env")
	cfg, err := config.Load(envFile)
	if err != nil {
		glog.Exitf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve_, _ := opts.Bool("serve"); serve_ {
		err = serve(ctx, cfg)
	} else if migrate_, _ := opts.Bool("migrate"); migrate_ {
		err = migrate(ctx, cfg)
	} else if sync_, _ := opts.Bool("sync"); sync_ {
		err = syncForm(ctx, cfg, opts)
	} else if token_, _ := opts.Bool("token"); token_ {
		err = issueToken(cfg, opts)
	}
	if err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	var (
		store *storage.SQLStore
		err   error
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err = storage.OpenPostgres(ctx, cfg.PostgresDSN())
	case config.DriverSQLite:
		store, err = storage.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}
	glog.Infof("Connected to %s database", cfg.DBDriver)
	return store, nil
}

func openSink(ctx context.Context, cfg *config.Config) (docsink.Sink, error) {
	switch cfg.Sink {
	case config.SinkGoogleDocs:
		return docsink.NewGoogleDocs(ctx, cfg.GoogleCredentialsFile)
	case config.SinkS3:
		return docsink.NewS3(ctx, cfg.Bucket, cfg.Region)
	default:
		return nil, nil
	}
}

func identifier(cfg *config.Config) (auth.Identifier, error) {
	if cfg.JWTSecret != "" {
		return auth.NewJWTIdentifier(cfg.JWTSecret)
	}
	glog.Warningf("JWT_SECRET not set, trusting callers as %q", cfg.DevUser)
	return auth.DevIdentifier{Default: cfg.DevUser}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sink, err := openSink(ctx, cfg)
	if err != nil {
		// run without external sync rather than refusing to serve
		glog.Warningf("Document sink %s failed to initialize: %v", cfg.Sink, err)
		sink = nil
	}

	ident, err := identifier(cfg)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		glog.Infof("Relaying room events through redis at %s", cfg.RedisAddr)
	}

	server := collab.NewServer(collab.Options{
		Store:      store,
		Identifier: ident,
		Sink:       sink,
		Redis:      rdb,
		PoolSize:   cfg.WorkerPoolSize,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.WSPort,
		Handler:           httpapi.NewRouter(store, server, ident),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	glog.Infof("Starting collaboration server on port %s", cfg.WSPort)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	glog.Infof("Server stopped")
	return nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	return store.Close()
}

func syncForm(ctx context.Context, cfg *config.Config, opts docopt.Opts) error {
	raw, _ := opts.String("<form_id>")
	formID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid form id %q", raw)
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	sink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}

	gate := collab.NewSyncGate(store, sink, collab.NewPool(1))
	ok, err := gate.SyncNow(ctx, formID)
	if err != nil {
		return fmt.Errorf("sync of form %d failed: %w", formID, err)
	}
	if !ok {
		return fmt.Errorf("form %d has no external document to sync", formID)
	}
	fmt.Printf("form %d synced\n", formID)
	return nil
}

func issueToken(cfg *config.Config, opts docopt.Opts) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to issue tokens")
	}
	userID, _ := opts.String("<user_id>")
	name, _ := opts.String("--name")
	if name == "" {
		name = userID
	}
	rawTTL, _ := opts.String("--ttl")
	ttl, err := time.ParseDuration(rawTTL)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", rawTTL, err)
	}
	token, err := auth.Issue(cfg.JWTSecret, auth.Participant{ID: userID, Name: name}, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
