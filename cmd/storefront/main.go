package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	storefront "github.com/goliatone/go-storefront"
)

// listen and stdout are replaced in tests.
var (
	listen = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
	stdout io.Writer = os.Stdout
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("storefront: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML, JSON or TOML config file")
	addr := fs.String("addr", "", "Listen address (overrides server.addr)")
	demo := fs.Bool("demo", false, "Serve the bundled sample content instead of the CMS")
	submissions := fs.Int("submissions", 0, "Print the N most recent contact submissions as JSON lines and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := storefront.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.Server.Addr = *addr
	}

	var opts []storefront.Option
	if *demo {
		reader, err := demoReader(cfg.Locales.Default)
		if err != nil {
			return fmt.Errorf("demo content: %w", err)
		}
		opts = append(opts, storefront.WithContentReader(reader))
	}

	module, err := storefront.New(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer module.Close()

	if *submissions > 0 {
		return printSubmissions(ctx, module, *submissions)
	}

	if cfg.Jobs.Enabled {
		scheduler, err := module.Scheduler()
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = scheduler.Stop(stopCtx)
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      module.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("storefront listening on %s", cfg.Server.Addr)
		errCh <- listen(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printSubmissions(ctx context.Context, module *storefront.Module, limit int) error {
	ledger, err := module.Container().Ledger(ctx)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	subs, err := ledger.RecentSubmissions(ctx, limit)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	enc := json.NewEncoder(stdout)
	for _, sub := range subs {
		if err := enc.Encode(sub); err != nil {
			return err
		}
	}
	return nil
}
