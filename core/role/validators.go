package role

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/developer0000009-hue/schoolportal/core"
)

var (
	inviteCodeTag   = "invite_code"
	inviteCodeText  = "invitation codes have at least 8 letters or digits"
	inviteCodeRegex = regexp.MustCompile(`^[A-Z0-9-]{8,64}$`)

	minInviteCodeChars = 8
)

// InitValidators registers the role validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(inviteCodeTag, inviteCodeValidation)
	core.RegisterCustomTranslation(validate, translator, inviteCodeTag, inviteCodeText)
}

// inviteCodeValidation expects an already uppercased code. Dashes are allowed but do not count
// towards the 8 letters or digits.
func inviteCodeValidation(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if !inviteCodeRegex.MatchString(code) {
		return false
	}
	return len(code)-strings.Count(code, "-") >= minInviteCodeChars
}
