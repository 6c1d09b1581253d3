// Command maru-server serves the site API, the admin pages and an optional
// gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/and161185/maru-site/internal/blob"
	"github.com/and161185/maru-site/internal/config"
	"github.com/and161185/maru-site/internal/ipresolve"
	"github.com/and161185/maru-site/internal/limiter"
	"github.com/and161185/maru-site/internal/metrics"
	"github.com/and161185/maru-site/internal/migrate"
	"github.com/and161185/maru-site/internal/repository"
	"github.com/and161185/maru-site/internal/repository/memory"
	"github.com/and161185/maru-site/internal/repository/postgres"
	grpcserver "github.com/and161185/maru-site/internal/server/grpc"
	httpserver "github.com/and161185/maru-site/internal/server/http"
	"github.com/and161185/maru-site/internal/service"
	"github.com/and161185/maru-site/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const purgeInterval = 10 * time.Minute

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// stores bundles the repositories of one backend.
type stores struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	contacts repository.ContactRepository
	pinger   repository.Pinger
	window   limiter.Window
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		return &stores{
			users:    m.Users(),
			posts:    m.Posts(),
			contacts: m.Contacts(),
			pinger:   m,
			close:    func() {},
		}, nil
	}

	v, err := migrate.Up(ctx, cfg.Database.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema ready", zap.Int64("version", v))

	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pg := limiter.NewPG(db.Pool, cfg.Redis.LoginPerMinute, time.Minute)
	go purgeLoop(ctx, pg, log)

	return &stores{
		users:    postgres.NewUserRepo(db),
		posts:    postgres.NewPostRepo(db),
		contacts: postgres.NewContactRepo(db),
		pinger:   db,
		window:   pg,
		close:    db.Close,
	}, nil
}

// purgeLoop drops expired login window rows.
func purgeLoop(ctx context.Context, pg *limiter.PG, log *zap.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := pg.Purge(ctx)
			if err != nil {
				log.Warn("purge login window", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("purged login window", zap.Int64("rows", n))
			}
		}
	}
}

// redisWindow replaces the store window with Redis when configured.
func redisWindow(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (limiter.Window, func(), error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("login window on redis", zap.String("addr", cfg.Addr))
	return limiter.NewRedis(client, cfg.LoginPerMinute, time.Minute), func() { _ = client.Close() }, nil
}

func openBlobs(ctx context.Context, cfg config.BlobConfig, log *zap.Logger) (blob.Store, error) {
	if cfg.Bucket == "" {
		log.Warn("no bucket configured; uploads are disabled")
		return blob.Disabled{}, nil
	}
	s, err := blob.NewS3(ctx, blob.Config{
		Bucket:        cfg.Bucket,
		Region:        cfg.Region,
		Endpoint:      cfg.Endpoint,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		log.Warn("bucket not reachable", zap.String("bucket", cfg.Bucket), zap.Error(err))
	}
	return s, nil
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	window := st.window
	if cfg.Redis.Addr != "" {
		w, closeRedis, err := redisWindow(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer closeRedis()
		window = w
	}

	blobs, err := openBlobs(ctx, cfg.Blob, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := service.AuthOptions{
		IdleTimeout:     cfg.Session.IdleTimeout,
		IPLookupTimeout: cfg.IPResolve.Timeout,
		Window:          window,
		Metrics:         m,
	}
	if cfg.IPResolve.URL != "" {
		opts.Resolver = ipresolve.New(cfg.IPResolve.URL, cfg.IPResolve.Timeout)
	}
	auth := service.NewAuthService(st.users, token.NewManager([]byte(cfg.JWT.Secret), cfg.JWT.TTL), log, opts)
	defer auth.Wait()

	handler := httpserver.NewRouter(httpserver.Deps{
		Auth:           auth,
		Posts:          service.NewPostService(st.posts, blobs, m, log),
		Uploads:        service.NewUploadService(blobs, m),
		Contacts:       service.NewContactService(st.contacts),
		Store:          st.pinger,
		Metrics:        m,
		Log:            log,
		SecureCookies:  cfg.Server.Production(),
		TokenTTL:       cfg.JWT.TTL,
		AdminDir:       cfg.Server.AdminDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var gs *grpcserver.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs = grpcserver.New(st.pinger, log, grpcserver.Options{Reflection: !cfg.Server.Production()})
		go gs.Watch(ctx)
		go func() {
			log.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
			if err := gs.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	if gs != nil {
		gs.Shutdown(5 * time.Second)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	fs := pflag.NewFlagSet("maru-server", pflag.ExitOnError)
	config.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := newLogger(cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
