package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/classified-intel/backend/internal/collab"
	"github.com/classified-intel/backend/internal/config"
	"github.com/classified-intel/backend/internal/conndir"
	"github.com/classified-intel/backend/internal/httpapi"
	"github.com/classified-intel/backend/internal/registry"
	"github.com/classified-intel/backend/internal/room"
	"github.com/classified-intel/backend/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := buildLogger(cfg.Env)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	searcher := collab.MockSearcher{}
	redactor := collab.ChainRedactor{Log: log}
	verifier := collab.ChainVerifier{Log: log}
	topics := collab.NewStaticTopics(rnd)

	reg := registry.New(ctx, registry.Options{
		Log: log,
		Room: room.Options{
			Topics:          topics,
			RoundSeconds:    cfg.RoundSeconds,
			CooldownSeconds: cfg.CooldownSeconds,
			ReapAfter:       cfg.ReapAfter,
		},
	})

	wsHandler := &ws.Handler{
		Registry:      reg,
		Dir:           conndir.New(),
		Search:        searcher,
		Redact:        redactor,
		Verify:        verifier,
		Log:           log,
		SearchLimit:   cfg.SearchLimit,
		TopicChoices:  cfg.TopicChoices,
		CollabTimeout: cfg.CollabTimeout,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(reg, wsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		reg.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
