// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/career-roadmap/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// writeList writes up to limit items under heading, then a "... and N more" line
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	for _, item := range items[:min(len(items), limit)] {
		sb.WriteString(fmt.Sprintf("  • %s\n", item))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintRequest outputs the role and stack about to be sent to the model.
func (p *Printer) PrintRequest(req types.RoadmapRequest) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Role:   %s\n", req.Role))
	sb.WriteString(fmt.Sprintf("Stack:  %s", req.Stack))
	p.printBox("ROADMAP REQUEST", sb.String())
}

// PrintRoadmap outputs a human-readable summary of a generated roadmap.
func (p *Printer) PrintRoadmap(r *types.CareerRoadmap) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Role:     %s\n", r.Role))
	sb.WriteString(fmt.Sprintf("Stack:    %s\n", strings.Join(r.Stack, ", ")))
	t := r.Overview.EstimatedTimeToJob
	sb.WriteString(fmt.Sprintf("Time:     %g-%g months\n", t.MinimumMonths, t.MaximumMonths))
	sb.WriteString("\n")

	if len(r.Phases) > 0 {
		sb.WriteString(fmt.Sprintf("Phases (%d):\n", len(r.Phases)))
		count := min(len(r.Phases), maxItemsToShow)
		for i := 0; i < count; i++ {
			phase := r.Phases[i]
			sb.WriteString(fmt.Sprintf("#%d  %s [%s]\n", i+1, phase.Name, phase.Level))
			sb.WriteString(fmt.Sprintf("    %g-%g weeks, %d resources, %d projects\n",
				phase.Duration.MinimumWeeks, phase.Duration.MaximumWeeks,
				len(phase.Resources), len(phase.Projects)))
		}
		if len(r.Phases) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more phases\n", len(r.Phases)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	certs := make([]string, 0, len(r.Certifications))
	for _, c := range r.Certifications {
		certs = append(certs, fmt.Sprintf("%s (%s)", c.Name, c.Level))
	}
	writeList(&sb, "Certifications", certs, 3)

	p.printBox("CAREER ROADMAP", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFluencyResult outputs aggregate scores and the banded word scores.
func (p *Printer) PrintFluencyResult(result *types.FluencyResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	s := result.Score
	sb.WriteString(fmt.Sprintf("Pronunciation: %5.1f   Accuracy:     %5.1f\n", s.PronunciationScore, s.AccuracyScore))
	sb.WriteString(fmt.Sprintf("Fluency:       %5.1f   Completeness: %5.1f\n", s.FluencyScore, s.CompletenessScore))
	if result.Transcript != "" {
		sb.WriteString(fmt.Sprintf("\nTranscript: %s\n", result.Transcript))
	}

	// lowest bands first so the words needing practice are never cut
	if len(result.WordWiseScore) > 0 {
		sb.WriteString("\n")
		for _, band := range []types.ScoreBand{types.BandLow, types.BandMedium, types.BandHigh} {
			var words []string
			for _, w := range result.WordWiseScore {
				if types.Band(w.Score) == band {
					words = append(words, fmt.Sprintf("%s %.0f", w.Word, w.Score))
				}
			}
			writeList(&sb, strings.ToUpper(string(band)), words, maxItemsToShow)
		}
	}

	p.printBox("FLUENCY SCORE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidation reports the outcome of validating a stored roadmap.
func (p *Printer) PrintValidation(source string, err error) {
	if err == nil {
		p.printBox("ROADMAP VALID", source)
		return
	}
	var sb strings.Builder
	sb.WriteString(source + "\n\n")
	lines := strings.Split(err.Error(), "; ")
	writeList(&sb, "Problems", lines, maxItemsToShow*2)
	p.printBox("ROADMAP INVALID", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintElapsed rewrites the current line with the recording time
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintElapsed(seconds int) {
	fmt.Fprintf(p.out, "\rRecording... %02d:%02d", seconds/60, seconds%60)
}
