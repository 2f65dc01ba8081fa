package server

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clustersim/internal/cluster"
	"clustersim/internal/config"
	"clustersim/internal/httpapi"
)

// Run wires the demo together: yaml topology in, running cluster plus
// HTTP control surface out.
func Run() error {
	configPath := flag.String("config", "cluster.yml", "Path to the cluster topology file")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	c, err := cluster.FromConfig(cfg, nil)
	if err != nil {
		return err
	}

	log.Printf("starting %d-node cluster from %s, API on %s", len(cfg.Cluster.Nodes), *configPath, *addr)
	c.Start()

	srv := &http.Server{
		Addr:    *addr,
		Handler: httpapi.New(c).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		c.Stop()
		c.Join()
		return err
	case <-ctx.Done():
		log.Println("shutting down...")
		c.Stop()
		c.Join()
		return srv.Shutdown(context.Background())
	}
}
