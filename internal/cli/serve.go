package cli

import (
	"os"
	"os/signal"
	"syscall"

	"countrydash/internal/api"
	"countrydash/internal/config"
	"countrydash/internal/dashboard"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Long: `Start the HTTP dashboard. Open the printed address in a browser, upload a
per-country table and pick a category to see its top 10 countries.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("host", "localhost", "address to listen on")
	cmd.Flags().Int("port", 8080, "port to listen on")
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	h := api.NewHandler(
		dashboard.NewPipeline(cfg.Ranking.Limit),
		api.Options{ChartWidth: cfg.Chart.Width, ChartHeight: cfg.Chart.Height},
		api.NewMetrics(),
	)
	e := api.NewServer(h, cfg.Upload.MaxBytes)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("limit", cfg.Ranking.Limit).
		Int64("max_upload_bytes", cfg.Upload.MaxBytes).
		Msgf("dashboard at http://%s", cfg.Server.Addr())

	return api.Serve(ctx, e, cfg.Server.Addr(), cfg.Server.ShutdownTimeout)
}
