package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/fluency"
	"github.com/jonathan/career-roadmap/internal/observability"
	"github.com/jonathan/career-roadmap/internal/types"
	"github.com/spf13/cobra"
)

var fluencyCmd = &cobra.Command{
	Use:   "fluency",
	Short: "Score pronunciation of a capture",
	Long: "Normalizes a recording to 16 kHz mono WAV and scores it with the pronunciation backend. " +
		"Use --in for an existing file or --record to capture from the microphone with audio.capture_command.",
	RunE: runFluency,
}

var (
	fluencyInput    string
	fluencyRecord   bool
	fluencyDuration time.Duration
	fluencyLanguage string
	fluencyJSON     bool
)

func init() {
	fluencyCmd.Flags().StringVarP(&fluencyInput, "in", "i", "", "Path to an audio capture (wav, webm, ogg, mp3, ...)")
	fluencyCmd.Flags().BoolVar(&fluencyRecord, "record", false, "Record from the microphone")
	fluencyCmd.Flags().DurationVarP(&fluencyDuration, "duration", "d", 5*time.Second, "Recording length with --record")
	fluencyCmd.Flags().StringVarP(&fluencyLanguage, "language", "l", "", "Language code (default scoring.language)")
	fluencyCmd.Flags().BoolVar(&fluencyJSON, "json", false, "Print the result as JSON")

	fluencyCmd.MarkFlagsMutuallyExclusive("in", "record")
	fluencyCmd.MarkFlagsOneRequired("in", "record")

	rootCmd.AddCommand(fluencyCmd)
}

func runFluency(cmd *cobra.Command, _ []string) error {
	if fluencyRecord && fluencyDuration <= 0 {
		return errors.New("--duration must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transcoder := newTranscoder(cfg, logger)
	if err := transcoder.Init(ctx); err != nil {
		return err
	}
	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}
	svc := fluency.NewService(transcoder, scorer, logger, nil)

	language := fluencyLanguage
	if language == "" {
		language = cfg.Scoring.Language
	}

	var result *types.FluencyResult
	if fluencyRecord {
		result, err = record(ctx, cmd, svc, cfg.Audio.Capture(), language)
	} else {
		result, err = svc.Score(ctx, fluency.FileOpener(fluencyInput), language)
	}
	if err != nil {
		return fmt.Errorf("%s (%s)", apperr.UserMessage(err), apperr.KindOf(err))
	}

	if fluencyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintFluencyResult(result)
	return nil
}

// record captures for fluencyDuration, or until interrupted, then scores.
// An interrupt ends the recording early but the capture is still scored.
func record(ctx context.Context, cmd *cobra.Command, svc *fluency.Service, capture []string, language string) (*types.FluencyResult, error) {
	progress := observability.NewPrinter(cmd.ErrOrStderr())
	session := svc.NewSession(fluency.CommandOpener(capture[0], capture[1:]...), language,
		fluency.WithTickHandler(progress.PrintElapsed),
	)
	defer func() { _ = session.Close() }()

	if err := session.Start(ctx); err != nil {
		return nil, err
	}

	timer := time.NewTimer(fluencyDuration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	fmt.Fprintln(cmd.ErrOrStderr()) //nolint:errcheck

	return session.Stop(context.WithoutCancel(ctx))
}
