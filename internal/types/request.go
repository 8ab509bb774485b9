package types

import (
	"github.com/go-playground/validator/v10"
)

// structValidator is shared by every Validate method in this package
var structValidator = validator.New()

// MaxFieldLength caps the rune length of each free-text request field
const MaxFieldLength = 2000

// RoadmapRequest is the free-text input collected by the form.
// Empty values are permitted; they only lower output quality.
type RoadmapRequest struct {
	Role  string `json:"role" validate:"max=2000"`
	Stack string `json:"stack" validate:"max=2000"`
}

// Validate enforces the length cap on both fields
func (r RoadmapRequest) Validate() error {
	if err := structValidator.Struct(r); err != nil {
		return describeValidationErrors(err)
	}
	return nil
}
