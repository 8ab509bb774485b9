package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRoadmap() *CareerRoadmap {
	hours := 12.0
	return &CareerRoadmap{
		Role:  "Frontend Developer",
		Stack: []string{"React", "TypeScript"},
		Overview: Overview{
			Description:        "Build user interfaces",
			CareerProspects:    []string{"Senior engineer"},
			Prerequisites:      []string{},
			EstimatedTimeToJob: MonthsRange{MinimumMonths: 6, MaximumMonths: 12},
		},
		Phases: []Phase{{
			Name:          "Foundations",
			Level:         LevelBeginner,
			Duration:      WeeksRange{MinimumWeeks: 4, MaximumWeeks: 8},
			Skills:        []string{"HTML"},
			Concepts:      []string{},
			Tools:         []string{"VS Code"},
			Resources:     []Resource{{Name: "MDN", Type: ResourceDocumentation, EstimatedHours: &hours}},
			Projects:      []Project{},
			Milestones:    []Milestone{{Title: "First page", CompletionCriteria: []string{}, SuggestedProjects: []string{}}},
			PracticalTips: []string{},
		}},
		SoftSkills:         []string{},
		IndustryKnowledge:  []string{},
		Certifications:     []Certification{{Name: "Cert", Level: LevelAdvanced}},
		PortfolioTips:      []string{},
		JobSearchGuidance:  JobSearchGuidance{ResumeTips: []string{}, PortfolioProjects: []string{}, InterviewPreparation: []string{}, JobPlatforms: []string{}, NetworkingTips: []string{}},
		CommonPitfalls:     []string{},
		ContinuousLearning: []LearningTopic{{Topic: "Web APIs", Resources: []string{}}},
		Metadata:           Metadata{LastUpdated: "2026-01-01", Version: "1.0"},
	}
}

func TestCareerRoadmap_Validate_Valid(t *testing.T) {
	require.NoError(t, validRoadmap().Validate())
}

func TestCareerRoadmap_Validate_RejectsUnknownPhaseLevel(t *testing.T) {
	r := validRoadmap()
	r.Phases[0].Level = "expert"

	err := r.Validate()
	require.Error(t, err)

	var fe *FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe.Fields, 1)
	assert.Contains(t, fe.Fields[0], "Phases[0].Level")
	assert.Contains(t, fe.Fields[0], "expert")
}

func TestCareerRoadmap_Validate_RejectsUnknownResourceType(t *testing.T) {
	r := validRoadmap()
	r.Phases[0].Resources[0].Type = "podcast"
	assert.Error(t, r.Validate())
}

func TestCareerRoadmap_Validate_RejectsMissingArray(t *testing.T) {
	r := validRoadmap()
	r.SoftSkills = nil

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SoftSkills")
}

func TestCareerRoadmap_Validate_FromJSONMissingArray(t *testing.T) {
	data, err := json.Marshal(validRoadmap())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	delete(raw, "commonPitfalls")
	data, err = json.Marshal(raw)
	require.NoError(t, err)

	var r CareerRoadmap
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Error(t, r.Validate())
}

func TestCareerRoadmap_Validate_Nil(t *testing.T) {
	var r *CareerRoadmap
	assert.Error(t, r.Validate())
}

func TestEnums_Valid(t *testing.T) {
	for _, l := range Levels {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, Level("expert").Valid())

	for _, rt := range ResourceTypes {
		assert.True(t, rt.Valid(), rt)
	}
	assert.False(t, ResourceType("podcast").Valid())
}

func TestRoadmapRequest_Validate(t *testing.T) {
	assert.NoError(t, RoadmapRequest{}.Validate())
	assert.NoError(t, RoadmapRequest{Role: "Frontend Developer", Stack: "React, TypeScript"}.Validate())
	assert.NoError(t, RoadmapRequest{Role: strings.Repeat("é", MaxFieldLength)}.Validate())

	err := RoadmapRequest{Stack: strings.Repeat("a", MaxFieldLength+1)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stack")
}

func TestFluencyResult_Validate(t *testing.T) {
	ok := &FluencyResult{
		Score:         Scores{AccuracyScore: 80, FluencyScore: 0, CompletenessScore: 100, PronunciationScore: 55.5},
		WordWiseScore: []WordScore{{Word: "hello", Score: 90}},
		Transcript:    "hello",
	}
	require.NoError(t, ok.Validate())

	bad := *ok
	bad.Score.FluencyScore = 101
	assert.Error(t, bad.Validate())

	badWord := *ok
	badWord.WordWiseScore = []WordScore{{Word: "x", Score: -1}}
	err := badWord.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestBand(t *testing.T) {
	tests := []struct {
		score float64
		want  ScoreBand
	}{
		{0, BandLow},
		{39, BandLow},
		{39.99, BandLow},
		{40, BandMedium},
		{74, BandMedium},
		{75, BandHigh},
		{100, BandHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Band(tt.score), "score %v", tt.score)
	}
}
