package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/metrics"
	"github.com/spigell/talent-scout/internal/screening"
	"github.com/spigell/talent-scout/internal/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve screening conversations over a JSON HTTP API",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{
			"server.addr":      "addr",
			"transcripts.file": "transcripts-file",
		})
	},
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default :8080)")
	serveCmd.Flags().StringP("transcripts-file", "t", "", "append finished conversations to this file. Default is unset.")
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the talent-scout api", zap.String("version", version))

	controller, err := newController(ctx, config, logger)
	if err != nil {
		logger.Fatal(
			"building the screening controller",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.Deps{
		Store:      screening.NewStore(),
		Controller: controller,
		Logger:     logger,
		Metrics:    metrics.New(),
		OnFinish: func(snap screening.Snapshot) {
			saveTranscript(config.Transcripts.File, snap, logger)
		},
	})

	if err := server.Run(ctx, config.Server.Addr, router, logger); err != nil {
		logger.Fatal("serving api", zap.Error(err))
	}
}
