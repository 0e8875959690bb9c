package fee

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/developer0000009-hue/schoolportal/core"
)

var (
	frequencyTag  = "fee_frequency"
	frequencyText = "frequency must be One-time, Monthly, Quarterly or Annually"
)

// InitValidators registers the fee validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(frequencyTag, frequencyValidation)
	core.RegisterCustomTranslation(validate, translator, frequencyTag, frequencyText)
}

func frequencyValidation(fl validator.FieldLevel) bool {
	_, ok := multipliers[Frequency(fl.Field().String())]
	return ok
}
