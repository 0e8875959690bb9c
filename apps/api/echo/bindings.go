package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
)

// Wizard actions
const (
	wizardAdvance         = "advance"
	wizardBack            = "back"
	wizardAddComponent    = "add_component"
	wizardRemoveComponent = "remove_component"
	wizardReview          = "review"
)

type (
	NavigateRequest struct {
		Step onboarding.Step `json:"step"`
	}

	ResolveAddressRequest struct {
		Address string `json:"address"`
	}

	WizardRequest struct {
		Action string     `json:"action"`
		Index  int        `json:"index,omitempty"`
		Draft  *fee.Draft `json:"draft,omitempty"`
	}

	FinalizeRequest struct {
		Draft   fee.Draft `json:"draft"`
		Publish bool      `json:"publish"`
	}

	StatusRequest struct {
		Status string `json:"status"`
	}

	ShareCodeRequest struct {
		Type sharecode.Type `json:"type"`
	}
)

// bind decodes the request body into v. Malformed bodies are validation errors.
func bind(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			return core.NewValidationError(errors.Errorf("malformed request body: %v", herr.Message))
		}
		return errors.Wrapf(err, "binding to %T", v)
	}
	return nil
}
