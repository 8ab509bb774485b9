package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/career-roadmap/internal/apperr"
	"github.com/jonathan/career-roadmap/internal/observability"
	"github.com/jonathan/career-roadmap/internal/roadmap"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a stored roadmap",
	Long:  "Validates a CareerRoadmap JSON file against the roadmap schema and the level and resource type enums.",
	RunE:  runValidate,
}

var validateInput string

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to CareerRoadmap JSON file (required)")

	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	content, err := os.ReadFile(validateInput)
	if err != nil {
		return fmt.Errorf("failed to read roadmap file: %w", err)
	}

	_, err = roadmap.DecodeRoadmap(content)
	printer := observability.NewPrinter(cmd.OutOrStdout())
	if err == nil {
		printer.PrintValidation(validateInput, nil)
		return nil
	}

	// the cause carries the field-level details
	detail := err
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Cause != nil {
		detail = appErr.Cause
	}
	printer.PrintValidation(validateInput, detail)
	return fmt.Errorf("roadmap is invalid: %s", apperr.UserMessage(err))
}
