// Command sitectl runs maintenance tasks against the site database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/and161185/maru-site/internal/config"
	"github.com/and161185/maru-site/internal/migrate"
	"github.com/and161185/maru-site/internal/repository"
	"github.com/and161185/maru-site/internal/repository/postgres"
)

// env holds what the commands touch outside the process.
type env struct {
	in  io.Reader
	out io.Writer
	log *zap.Logger

	migrate   func(ctx context.Context, dsn string, log *zap.Logger) (int64, error)
	openUsers func(ctx context.Context, cfg *config.Config) (repository.UserRepository, func(), error)
	dial      func(target string) (*grpc.ClientConn, error)
}

func openUsers(ctx context.Context, cfg *config.Config) (repository.UserRepository, func(), error) {
	if cfg.Database.Driver != "postgres" {
		return nil, nil, fmt.Errorf("sitectl needs database.driver=postgres, got %q", cfg.Database.Driver)
	}
	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepo(db), db.Close, nil
}

func dial(target string) (*grpc.ClientConn, error) {
	return grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	e := &env{
		in:        os.Stdin,
		out:       os.Stdout,
		log:       log,
		migrate:   migrate.Up,
		openUsers: openUsers,
		dial:      dial,
	}
	if err := newRootCmd(e).Execute(); err != nil {
		os.Exit(1)
	}
}
