package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wanderhappen/wanderchat/internal/chat"
	"github.com/wanderhappen/wanderchat/internal/server"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wanderchat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run owns the full lifecycle so deferred cleanup executes before the
// process exits and the wiring stays testable outside of main.
func run() (int, error) {
	// A missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return exitConfig, err
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(log)

	sessions := chat.NewSessionStore(log)
	ledger := chat.NewLedger(log)
	presence := chat.NewPresence()

	hub := server.NewHub(sessions, ledger, presence, log)
	go hub.Run()

	handler := server.NewHandler(hub, sessions, cfg, log)
	srv := server.CreateServer(cfg.Addr, server.SetupRoutes(handler))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(srv, log)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return exitRuntime, err
		}
	case sig := <-stop:
		log.Info("received signal; shutting down", "signal", sig.String())
	}

	if err := server.ShutdownServer(srv, cfg.ShutdownTimeout, log); err != nil {
		return exitRuntime, err
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		return exitRuntime, err
	}

	return exitOK, nil
}
