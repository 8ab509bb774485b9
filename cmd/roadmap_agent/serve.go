package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/career-roadmap/internal/audio"
	"github.com/jonathan/career-roadmap/internal/config"
	"github.com/jonathan/career-roadmap/internal/fluency"
	"github.com/jonathan/career-roadmap/internal/logging"
	"github.com/jonathan/career-roadmap/internal/metrics"
	"github.com/jonathan/career-roadmap/internal/rendering"
	"github.com/jonathan/career-roadmap/internal/server"
	"github.com/jonathan/career-roadmap/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start an HTTP server with the roadmap form, the fluency recorder and their JSON endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager()
	roadmaps, closeRoadmaps, err := newGenerator(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer closeRoadmaps()

	transcoder := newTranscoder(cfg, logger)
	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}

	renderer, err := rendering.New()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	srv, err := server.New(serverConfig(cfg), server.Deps{
		Roadmaps:   roadmaps,
		Fluency:    fluency.NewService(transcoder, scorer, logger, m),
		Transcoder: transcoder,
		Renderer:   renderer,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       ratelimit.NewConfig(cfg.RateLimit.Enabled, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		MaxUploadBytes:  cfg.Audio.MaxUploadBytes,
		Language:        cfg.Scoring.Language,
	}
}

// newTranscoder routes WAV through the PCM path and everything else through ffmpeg
func newTranscoder(cfg *config.Config, logger *logging.Logger) *audio.AutoTranscoder {
	return audio.NewAutoTranscoder(audio.NewFFmpegTranscoder(cfg.Audio.FFmpegBinary, logger), logger)
}

func newScorer(cfg *config.Config) (*fluency.HTTPScorer, error) {
	scorer, err := fluency.NewHTTPScorer(&fluency.ScorerOptions{
		BaseURL: cfg.Scoring.BaseURL,
		Path:    cfg.Scoring.Path,
		Timeout: cfg.Scoring.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid scoring backend: %w", err)
	}
	return scorer, nil
}
