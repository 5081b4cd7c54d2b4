package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petal-go/petal/internal/config"
	"github.com/petal-go/petal/internal/errors"
	"github.com/petal-go/petal/pkg/app"
	"github.com/petal-go/petal/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
		anyOrigin  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the page as a live server",
		Long: `Load petal.json and the page template, then serve:

  /         the rendered page
  /ws       the session WebSocket
  /healthz  liveness probe
  /metrics  Prometheus metrics

Examples:
  petal serve
  petal serve --port=8080
  petal serve --config=deploy/petal.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, host, anyOrigin)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to petal.json (default ./petal.json)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from petal.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from petal.json)")
	cmd.Flags().BoolVar(&anyOrigin, "any-origin", false, "Accept WebSocket connections from any origin")

	return cmd
}

func runServe(configPath string, port int, host string, anyOrigin bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	page, err := loadPage(cfg)
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Log.Level, cfg.Log.Format)

	a := app.New(app.Config{
		Page:           page,
		Addr:           cfg.Addr(),
		Logger:         logger,
		Session:        cfg.SessionConfig(),
		Limits:         cfg.ManagerConfig(),
		AllowAnyOrigin: anyOrigin,
	})

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		return errors.New("E301").Wrap(err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}

func loadPage(cfg *config.Config) (server.Page, error) {
	html, err := os.ReadFile(cfg.TemplatePath())
	if err != nil {
		return server.Page{}, errors.New("E201").
			WithDetail(cfg.TemplatePath()).Wrap(err)
	}
	return server.Page{HTML: string(html)}, nil
}
