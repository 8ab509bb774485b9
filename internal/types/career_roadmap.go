// Package types provides type definitions for structured data used throughout the career-roadmap system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Level is the difficulty level shared by phases, projects and certifications
type Level string

// Level values
const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists every valid Level in order of progression
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// Valid reports whether l is one of the declared levels
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ResourceType classifies a learning resource
type ResourceType string

// ResourceType values
const (
	ResourceCourse        ResourceType = "course"
	ResourceDocumentation ResourceType = "documentation"
	ResourceTutorial      ResourceType = "tutorial"
	ResourceBook          ResourceType = "book"
	ResourceVideo         ResourceType = "video"
	ResourceOther         ResourceType = "other"
)

// ResourceTypes lists every valid ResourceType
var ResourceTypes = []ResourceType{
	ResourceCourse, ResourceDocumentation, ResourceTutorial, ResourceBook, ResourceVideo, ResourceOther,
}

// Valid reports whether t is one of the declared resource types
func (t ResourceType) Valid() bool {
	for _, v := range ResourceTypes {
		if t == v {
			return true
		}
	}
	return false
}

// CareerRoadmap is the structured learning plan returned by the model.
// It is created once per successful generation and never mutated afterwards.
type CareerRoadmap struct {
	Role               string            `json:"role"`
	Stack              []string          `json:"stack" validate:"required"`
	Overview           Overview          `json:"overview"`
	Phases             []Phase           `json:"phases" validate:"required,dive"`
	SoftSkills         []string          `json:"softSkills" validate:"required"`
	IndustryKnowledge  []string          `json:"industryKnowledge" validate:"required"`
	Certifications     []Certification   `json:"certifications" validate:"required,dive"`
	PortfolioTips      []string          `json:"portfolioTips" validate:"required"`
	JobSearchGuidance  JobSearchGuidance `json:"jobSearchGuidance"`
	CommonPitfalls     []string          `json:"commonPitfalls" validate:"required"`
	ContinuousLearning []LearningTopic   `json:"continuousLearning" validate:"required,dive"`
	Metadata           Metadata          `json:"metadata"`
}

// Overview summarizes the role and the expected time to employment
type Overview struct {
	Description        string      `json:"description"`
	CareerProspects    []string    `json:"careerProspects" validate:"required"`
	Prerequisites      []string    `json:"prerequisites" validate:"required"`
	EstimatedTimeToJob MonthsRange `json:"estimatedTimeToJob"`
}

// MonthsRange is an inclusive range of months
type MonthsRange struct {
	MinimumMonths float64 `json:"minimumMonths"`
	MaximumMonths float64 `json:"maximumMonths"`
}

// WeeksRange is an inclusive range of weeks
type WeeksRange struct {
	MinimumWeeks float64 `json:"minimumWeeks"`
	MaximumWeeks float64 `json:"maximumWeeks"`
}

// Phase is one stage of the learning path. Phases are ordered earliest first.
type Phase struct {
	Name          string      `json:"name"`
	Level         Level       `json:"level" validate:"oneof=beginner intermediate advanced"`
	Description   string      `json:"description"`
	Duration      WeeksRange  `json:"duration"`
	Skills        []string    `json:"skills" validate:"required"`
	Concepts      []string    `json:"concepts" validate:"required"`
	Tools         []string    `json:"tools" validate:"required"`
	Resources     []Resource  `json:"resources" validate:"required,dive"`
	Projects      []Project   `json:"projects" validate:"required,dive"`
	Milestones    []Milestone `json:"milestones" validate:"required,dive"`
	PracticalTips []string    `json:"practicalTips" validate:"required"`
}

// Resource is a learning resource recommended within a phase
type Resource struct {
	Name           string       `json:"name"`
	Type           ResourceType `json:"type" validate:"oneof=course documentation tutorial book video other"`
	Link           string       `json:"link"`
	IsPaid         bool         `json:"isPaid"`
	EstimatedHours *float64     `json:"estimatedHours,omitempty"`
	Description    string       `json:"description"`
}

// Project is a hands-on project idea
type Project struct {
	Name                string   `json:"name"`
	Difficulty          Level    `json:"difficulty" validate:"oneof=beginner intermediate advanced"`
	Description         string   `json:"description"`
	Skills              []string `json:"skills" validate:"required"`
	EstimatedHours      float64  `json:"estimatedHours"`
	KeyLearningOutcomes []string `json:"keyLearningOutcomes" validate:"required"`
}

// Milestone marks a checkpoint in a phase
type Milestone struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	CompletionCriteria []string `json:"completionCriteria" validate:"required"`
	SuggestedProjects  []string `json:"suggestedProjects" validate:"required"`
}

// Certification is an industry certification worth pursuing
type Certification struct {
	Name                      string  `json:"name"`
	Provider                  string  `json:"provider"`
	Level                     Level   `json:"level" validate:"oneof=beginner intermediate advanced"`
	EstimatedPreparationHours float64 `json:"estimatedPreparationHours"`
	RecommendedPhase          string  `json:"recommendedPhase"`
	Link                      string  `json:"link"`
}

// JobSearchGuidance groups advice for landing the first role
type JobSearchGuidance struct {
	ResumeTips           []string `json:"resumeTips" validate:"required"`
	PortfolioProjects    []string `json:"portfolioProjects" validate:"required"`
	InterviewPreparation []string `json:"interviewPreparation" validate:"required"`
	JobPlatforms         []string `json:"jobPlatforms" validate:"required"`
	NetworkingTips       []string `json:"networkingTips" validate:"required"`
}

// LearningTopic is a topic to keep learning after landing the role
type LearningTopic struct {
	Topic     string   `json:"topic"`
	Resources []string `json:"resources" validate:"required"`
	Reason    string   `json:"reason"`
}

// Metadata describes the roadmap document itself
type Metadata struct {
	LastUpdated  string   `json:"lastUpdated"`
	Version      string   `json:"version"`
	Contributors []string `json:"contributors,omitempty"`
}

// Validate checks enum values and the presence of every required array.
// Empty arrays are allowed; missing (null) arrays are not.
func (r *CareerRoadmap) Validate() error {
	if r == nil {
		return fmt.Errorf("roadmap is nil")
	}
	if err := structValidator.Struct(r); err != nil {
		return describeValidationErrors(err)
	}
	return nil
}

// FieldErrors lists the fields that failed struct validation
type FieldErrors struct {
	Fields []string
}

func (e *FieldErrors) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, "; ")
}

// describeValidationErrors flattens validator errors into a FieldErrors
func describeValidationErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s: %v is not one of [%s]", fe.Namespace(), fe.Value(), fe.Param()))
		case "gte", "lte":
			parts = append(parts, fmt.Sprintf("%s: %v is out of range (%s %s)", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return &FieldErrors{Fields: parts}
}
