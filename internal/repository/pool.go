package repository

import (
	"context"
	"log"

	"github.com/aidiy/backend/pkg/cleanup"
	"github.com/jackc/pgx/v5/pgxpool"
)

func newPool(cfg DBConfig, repoName string) *pgxpool.Pool {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for " + repoName + " error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for " + repoName + ": " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing pgxpool (" + repoName + ")",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return pool
}
