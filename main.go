package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"itemcrud/internal/activity"
	"itemcrud/internal/client"
	"itemcrud/internal/config"
	"itemcrud/internal/logger"
	"itemcrud/internal/metrics"
	"itemcrud/internal/service"
	"itemcrud/internal/store"
	"itemcrud/internal/tui"
)

func main() {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		err = serve(cfg)
	case "tui":
		err = runTUI(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\nusage: itemcrud [flags] [serve|tui]\n", command)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

// serve runs the HTTP API until SIGINT or SIGTERM.
func serve(cfg *config.Config) error {
	log, err := logger.New(logger.Config{Environment: cfg.App.Environment, Level: cfg.Logger.Level})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.Store.Driver,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		BadgerPath:    cfg.Store.BadgerPath,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("error closing store", zap.Error(err))
		}
	}()

	recorder := activity.NewRecorder(cfg.Activity.Capacity)
	collector := metrics.NewCollector("itemcrud", recorder.Len)
	items := service.NewItemService(st, recorder, collector, log)
	handler := NewHandler(items, recorder, st, log)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newRouter(handler, collector, routerConfig{
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKeys:     cfg.Auth.APIKeys,
		}, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is listening",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("production", cfg.IsProduction()),
			zap.Bool("auth", len(cfg.Auth.APIKeys) > 0),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("server is shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// runTUI starts the terminal frontend against a running server.
func runTUI(cfg *config.Config) error {
	c := client.New(cfg.Client.APIURL, client.WithAPIKey(cfg.Client.APIKey))
	p := tea.NewProgram(tui.New(c, cfg.Client.PollInterval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
