package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/config"
	"github.com/jonathan/career-roadmap/internal/llm"
	"github.com/jonathan/career-roadmap/internal/logging"
	"github.com/jonathan/career-roadmap/internal/metrics"
	"github.com/jonathan/career-roadmap/internal/observability"
	"github.com/jonathan/career-roadmap/internal/rendering"
	"github.com/jonathan/career-roadmap/internal/roadmap"
	"github.com/jonathan/career-roadmap/internal/types"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one career roadmap",
	Long: "Generates a career roadmap for a role and stack. Output is HTML or JSON depending on the --out extension, " +
		"or JSON on stdout when --out is omitted. With --remote the request goes to the service at backend_base_url.",
	RunE: runGenerate,
}

var (
	generateRole   string
	generateStack  string
	generateOutput string
	generateRemote bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateRole, "role", "r", "", "Target role, e.g. \"Frontend Developer\" (required)")
	generateCmd.Flags().StringVarP(&generateStack, "stack", "s", "", "Technology stack, e.g. \"React, TypeScript\"")
	generateCmd.Flags().StringVarP(&generateOutput, "out", "o", "", "Output file (.html or .json)")
	generateCmd.Flags().BoolVar(&generateRemote, "remote", false, "Call the running service at backend_base_url instead of the model")

	if err := generateCmd.MarkFlagRequired("role"); err != nil {
		panic(fmt.Sprintf("failed to mark role flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(generateOutput)
	if err != nil {
		return err
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

	ctx := cmd.Context()
	var svc roadmap.Service
	if generateRemote {
		if cfg.BackendBaseURL == "" {
			return errors.New("--remote requires backend_base_url (ROADMAP_BACKEND_BASE_URL)")
		}
		remote, err := roadmap.NewRemoteClient(cfg.BackendBaseURL, cfg.LLM.Timeout)
		if err != nil {
			return err
		}
		svc = remote
	} else {
		gen, closeGen, err := newGenerator(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer closeGen()
		svc = gen
	}

	req := types.RoadmapRequest{Role: strings.TrimSpace(generateRole), Stack: strings.TrimSpace(generateStack)}
	printer := observability.NewPrinter(cmd.ErrOrStderr())
	if verbose {
		printer.PrintRequest(req)
	}

	result, err := roadmap.NewFlow().Submit(ctx, svc, req)
	if err != nil {
		return fmt.Errorf("%s (%s)", apperr.UserMessage(err), apperr.KindOf(err))
	}
	if verbose {
		printer.PrintRoadmap(result)
	}

	out, err := encodeRoadmap(result, format)
	if err != nil {
		return err
	}
	if generateOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(generateOutput, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote roadmap to %s\n", generateOutput) //nolint:errcheck
	return nil
}

// outputFormat picks "html" or "json" from the output path extension
func outputFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "", ".json":
		return "json", nil
	case ".html", ".htm":
		return "html", nil
	default:
		return "", fmt.Errorf("unsupported output extension %q (use .html or .json)", ext)
	}
}

func encodeRoadmap(r *types.CareerRoadmap, format string) ([]byte, error) {
	if format == "html" {
		renderer, err := rendering.New()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := renderer.RenderRoadmap(&buf, r); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roadmap: %w", err)
	}
	return append(out, '\n'), nil
}

// newGenerator builds the model-backed generator. The returned func closes the client.
func newGenerator(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *metrics.Manager) (*roadmap.Generator, func(), error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, err
	}
	llmCfg, err := cfg.LLMClientConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	gen, err := roadmap.NewGenerator(client,
		roadmap.WithLogger(logger),
		roadmap.WithMetrics(m),
		roadmap.WithTimeout(llmCfg.Timeout),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return gen, func() { _ = client.Close() }, nil
}
