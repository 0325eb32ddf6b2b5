package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"unionvote/internal/audit"
	"unionvote/internal/auth"
	"unionvote/internal/auth/revocation"
	"unionvote/internal/ballotbox"
	"unionvote/internal/election"
	"unionvote/internal/jwttoken"
	"unionvote/internal/platform/config"
	"unionvote/internal/platform/httpserver"
	"unionvote/internal/platform/logger"
	"unionvote/internal/platform/metrics"
	platformredis "unionvote/internal/platform/redis"
	"unionvote/internal/reception"
	"unionvote/internal/roster"
	"unionvote/internal/tally"
	httptransport "unionvote/internal/transport/http"
	"unionvote/internal/voting"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages. The three database
// handles stay separate on purpose: the roll, ballot, and audit stores are
// independently addressable storage units with no shared key.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	rollDB, err := openDB(cfg.RollDSN)
	if err != nil {
		log.Error("failed to open roll database", "error", err)
		os.Exit(1)
	}
	defer rollDB.Close()

	ballotDB, err := openDB(cfg.BallotDSN)
	if err != nil {
		log.Error("failed to open ballot database", "error", err)
		os.Exit(1)
	}
	defer ballotDB.Close()

	auditDB, err := openDB(cfg.AuditDSN)
	if err != nil {
		log.Error("failed to open audit database", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	ctx := context.Background()

	rollStore := roster.NewPostgres(rollDB)
	electionStore := election.NewPostgres(rollDB)
	ballotStore := ballotbox.NewPostgres(ballotDB)
	auditStore := audit.NewPostgres(auditDB)
	for name, ensure := range map[string]func(context.Context) error{
		"roll":     rollStore.EnsureSchema,
		"election": electionStore.EnsureSchema,
		"ballot":   ballotStore.EnsureSchema,
		"audit":    auditStore.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			log.Error("failed to ensure schema", "store", name, "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	auditSvc := audit.NewService(auditStore)

	var trl auth.RevocationList = revocation.NewMemoryTRL()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("token revocation list backed by redis")
	}

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "unionvote", cfg.TokenTTL)
	authSvc := auth.NewService(rollStore, tokens, trl, auditSvc, log)
	rosterSvc := roster.NewService(rollStore, rollStore, auditSvc, m, log)
	electionSvc := election.NewService(electionStore, rollStore, rollStore, auditSvc, m, log,
		election.WithTxRunner(newRollPostgresTx(rollDB)))
	tallyEngine := tally.NewEngine(electionStore, ballotStore, rollStore, rollStore, auditSvc, log)
	electionSvc.SetTallyEngine(tallyEngine)
	votingSvc := voting.NewService(electionStore, rollStore, ballotStore, auditSvc, m, log)
	receptionSvc := reception.NewService(electionStore, rollStore, rollStore, auditSvc, m, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Validator:  tokens,
		Revocation: trl,
		Auth:       authSvc,
		Voting:     votingSvc,
		Elections:  electionSvc,
		Reception:  receptionSvc,
		Roster:     rosterSvc,
		Tally:      tallyEngine,
		Audit:      auditSvc,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting unionvote server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
