package fee

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	OneTime   Frequency = "One-time"
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Annually  Frequency = "Annually"
)

type Status string

const (
	StatusActive Status = "Active"
	StatusDraft  Status = "Draft"
)

var (
	ErrNotFound           = errors.New("fee structure not found")
	ErrUnknownFrequency   = errors.New("unknown fee frequency")
	ErrNoComponents       = errors.New("add at least one fee component")
	ErrComponentsNotSaved = errors.New("fee structure saved without its components")

	multipliers = map[Frequency]int64{
		OneTime:   1,
		Monthly:   12,
		Quarterly: 4,
		Annually:  1,
	}
)

// Frequencies lists the known frequencies.
func Frequencies() []Frequency {
	return []Frequency{OneTime, Monthly, Quarterly, Annually}
}

// Multiplier is the number of times per year a component is charged.
func (f Frequency) Multiplier() (decimal.Decimal, error) {
	m, ok := multipliers[f]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnknownFrequency, "%q", string(f))
	}
	return decimal.NewFromInt(m), nil
}

type (
	Structure struct {
		ID           string    `json:"id"`
		OwnerID      string    `json:"owner_id,omitempty"`
		Name         string    `json:"name"`
		AcademicYear string    `json:"academic_year"`
		Grade        string    `json:"grade"`
		Currency     string    `json:"currency"`
		Description  string    `json:"description"`
		Status       Status    `json:"status"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Component struct {
		ID          string          `json:"id,omitempty"`
		StructureID string          `json:"structure_id,omitempty"`
		Name        string          `json:"name" validate:"required,max=120"`
		Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
		Frequency   Frequency       `json:"frequency" validate:"required,fee_frequency"`
		IsMandatory bool            `json:"is_mandatory"`
		Position    int             `json:"position"`
	}
)

// Total is the annual amount of components: the sum of amount × frequency multiplier.
func Total(components []Component) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range components {
		m, err := c.Frequency.Multiplier()
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(c.Amount.Mul(m))
	}
	return total, nil
}
