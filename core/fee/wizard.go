package fee

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/developer0000009-hue/schoolportal/core"
)

// Wizard steps.
const (
	StepDetails    = 1
	StepComponents = 2
	StepReview     = 3
)

type (
	Details struct {
		Name         string `json:"name" validate:"required,max=120"`
		AcademicYear string `json:"academic_year" validate:"required"`
		Grade        string `json:"grade" validate:"required"`
		Currency     string `json:"currency" validate:"required,len=3"`
		Description  string `json:"description,omitempty" validate:"max=500"`
	}

	// Draft is a fee structure being built in three steps: details, components & review.
	Draft struct {
		Step       int         `json:"step"`
		Details    Details     `json:"details"`
		Components []Component `json:"components" validate:"dive"`
	}

	// Summary is the review of a draft.
	Summary struct {
		Draft
		Total decimal.Decimal `json:"total"`
	}
)

func NewDraft() *Draft {
	return &Draft{Step: StepDetails, Details: Details{Currency: "USD"}, Components: []Component{}}
}

// Advance validates the current step and moves to the next one.
func (d *Draft) Advance(validate *validator.Validate) error {
	if err := d.ValidateStep(validate); err != nil {
		return err
	}
	if d.Step < StepReview {
		d.Step++
	}
	return nil
}

// Back moves to the previous step.
func (d *Draft) Back() {
	if d.Step > StepDetails {
		d.Step--
	}
}

// ValidateStep validates the fields of the current step only.
func (d *Draft) ValidateStep(validate *validator.Validate) error {
	d.clean()
	switch d.Step {
	case StepDetails:
		return validate.Struct(d.Details)
	case StepComponents:
		return d.validateComponents(validate)
	case StepReview:
		if err := validate.Struct(d.Details); err != nil {
			return err
		}
		return d.validateComponents(validate)
	}
	return core.NewValidationError(errors.Errorf("unknown wizard step %d", d.Step))
}

func (d *Draft) validateComponents(validate *validator.Validate) error {
	if len(d.Components) == 0 {
		return core.NewValidationError(ErrNoComponents, core.FieldError{Field: "components", Error: ErrNoComponents.Error()})
	}
	return validate.Struct(d)
}

func (d *Draft) clean() {
	d.Details.Name = core.CleanString(d.Details.Name)
	d.Details.AcademicYear = core.CleanString(d.Details.AcademicYear)
	d.Details.Grade = core.CleanString(d.Details.Grade)
	d.Details.Description = core.CleanString(d.Details.Description)
	d.Details.Currency = strings.ToUpper(core.CleanString(d.Details.Currency))
	for i := range d.Components {
		d.Components[i].Name = core.CleanString(d.Components[i].Name)
		d.Components[i].Position = i
	}
}

// AddComponent appends an empty mandatory one-time component.
func (d *Draft) AddComponent() {
	d.Components = append(d.Components, Component{Frequency: OneTime, IsMandatory: true, Position: len(d.Components)})
}

// RemoveComponent drops the component at i; positions follow.
func (d *Draft) RemoveComponent(i int) {
	if i < 0 || i >= len(d.Components) {
		return
	}
	d.Components = append(d.Components[:i], d.Components[i+1:]...)
	for j := range d.Components {
		d.Components[j].Position = j
	}
}

// Summary returns the draft with its derived total.
func (d *Draft) Summary() (Summary, error) {
	total, err := Total(d.Components)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Draft: *d, Total: total}, nil
}
