package types

import "fmt"

// FluencyResult is the pronunciation score returned by the scoring backend
type FluencyResult struct {
	Score         Scores      `json:"score"`
	WordWiseScore []WordScore `json:"wordWiseScore" validate:"dive"`
	Transcript    string      `json:"transcript"`
}

// Scores holds the aggregate scores, each in [0, 100]
type Scores struct {
	AccuracyScore      float64 `json:"accuracyScore" validate:"gte=0,lte=100"`
	FluencyScore       float64 `json:"fluencyScore" validate:"gte=0,lte=100"`
	CompletenessScore  float64 `json:"completenessScore" validate:"gte=0,lte=100"`
	PronunciationScore float64 `json:"pronunciationScore" validate:"gte=0,lte=100"`
}

// WordScore is the score of a single recognized word
type WordScore struct {
	Word  string  `json:"word"`
	Score float64 `json:"score" validate:"gte=0,lte=100"`
}

// Validate rejects scores outside [0, 100]
func (f *FluencyResult) Validate() error {
	if f == nil {
		return fmt.Errorf("fluency result is nil")
	}
	if err := structValidator.Struct(f); err != nil {
		return describeValidationErrors(err)
	}
	return nil
}

// ScoreBand is the severity bucket a word score falls into
type ScoreBand string

// ScoreBand values
const (
	BandLow    ScoreBand = "low"
	BandMedium ScoreBand = "medium"
	BandHigh   ScoreBand = "high"
)

// Band thresholds
const (
	MediumThreshold = 40
	HighThreshold   = 75
)

// Band buckets a score: below 40 is low, below 75 is medium, the rest is high.
func Band(score float64) ScoreBand {
	switch {
	case score < MediumThreshold:
		return BandLow
	case score < HighThreshold:
		return BandMedium
	default:
		return BandHigh
	}
}
