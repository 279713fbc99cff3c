package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/shoptalk-assistant/agent/agents/shoptalk"
	configx "github.com/tanpawarit/shoptalk-assistant/pkg/config"
	"github.com/tanpawarit/shoptalk-assistant/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := configx.New[AppConfig]("SHOPTALK")
	if err != nil {
		return err
	}
	httpCfg, err := configx.New[server.Config]("HTTP")
	if err != nil {
		return err
	}
	assistantCfg, err := configx.New[shoptalk.Config]("SHOPTALK")
	if err != nil {
		return err
	}

	catalog, err := buildCatalog(app.CatalogSource)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(ctx, app)
	if err != nil {
		return err
	}
	closers := []closer{closeStore}
	defer func() { closeAll(closers) }()

	svc, err := shoptalk.New(store, catalog, *assistantCfg)
	if err != nil {
		return err
	}

	opts, extra, err := buildServerOptions(ctx, app, httpCfg, catalog)
	closers = append(closers, extra...)
	if err != nil {
		return err
	}

	srv, err := server.New(svc, catalog, opts...)
	if err != nil {
		return err
	}

	log.Info().
		Str("state_backend", app.StateBackend).
		Str("catalog", app.CatalogSource).
		Bool("advisor", app.EnableAdvisor).
		Bool("voice", app.EnableVoice).
		Bool("orders", app.EnableOrders).
		Bool("events", app.EnableEvents).
		Msg("shoptalk configured")

	return srv.Run(ctx, *httpCfg)
}
