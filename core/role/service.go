package role

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/developer0000009-hue/schoolportal/core"
)

// Institution choices of the School Administration role.
type Choice string

const (
	ChoiceNewInstitution Choice = "new_institution"
	ChoiceInvitation     Choice = "invitation"
)

type (
	Repository interface {
		AuthorizedScopes(ctx context.Context) ([]Scope, error)
		AvailableRoles(ctx context.Context) ([]string, error)
		RegisterScope(ctx context.Context, role string) error
		SwitchActiveRole(ctx context.Context, role string) (SwitchResult, error)
		LinkBranchAdmin(ctx context.Context, code string) (LinkResult, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}

	Selection struct {
		Role           string `json:"role" validate:"required"`
		Choice         Choice `json:"choice,omitempty" validate:"omitempty,oneof=new_institution invitation"`
		InvitationCode string `json:"invitation_code,omitempty" validate:"required_if=Choice invitation,omitempty,invite_code"`
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Validate cleans the selection (invitation codes are uppercased) and validates it.
func (s *Selection) Validate(validate *validator.Validate) error {
	s.Role = core.CleanString(s.Role)
	s.InvitationCode = strings.ToUpper(core.CleanString(s.InvitationCode))
	if err := validate.Struct(s); err != nil {
		return err
	}
	if _, err := Parse(s.Role); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "role", Error: ErrUnknownRole.Error()})
	}
	return nil
}

// Catalog fetches authorized scopes and registrable roles together.
// A role never shows up in both sets.
func (svc *Service) Catalog(ctx context.Context) (Catalog, error) {
	var cat Catalog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scopes, err := svc.repo.AuthorizedScopes(gctx)
		cat.Authorized = scopes
		return errors.Wrap(err, "fetching authorized scopes")
	})
	g.Go(func() error {
		roles, err := svc.repo.AvailableRoles(gctx)
		cat.Available = roles
		return errors.Wrap(err, "fetching available roles")
	})
	if err := g.Wait(); err != nil {
		return Catalog{}, err
	}

	if cat.Authorized == nil {
		cat.Authorized = []Scope{}
	}
	available := make([]string, 0, len(cat.Available))
	seen := make(map[string]bool, len(cat.Available))
	for _, r := range cat.Available {
		if seen[r] || cat.IsAuthorized(r) {
			continue
		}
		seen[r] = true
		available = append(available, r)
	}
	cat.Available = available
	return cat, nil
}

// Activate makes sel.Role the active role: authorized scopes are switched to directly,
// registrable roles are registered first. School Administration requires an institution
// choice; the invitation path links the user as Branch Admin instead.
func (svc *Service) Activate(ctx context.Context, sel Selection) (SwitchResult, error) {
	if err := sel.Validate(svc.validate); err != nil {
		return SwitchResult{}, err
	}

	if sel.Role == SchoolAdmin {
		switch sel.Choice {
		case "":
			return SwitchResult{}, core.NewValidationError(
				ErrInstitutionChoiceRequired,
				core.FieldError{Field: "choice", Error: ErrInstitutionChoiceRequired.Error()},
			)
		case ChoiceInvitation:
			return svc.redeemInvitation(ctx, sel.InvitationCode)
		}
	}

	cat, err := svc.Catalog(ctx)
	if err != nil {
		return SwitchResult{}, err
	}
	switch {
	case cat.IsAuthorized(sel.Role): // fast path
	case cat.IsAvailable(sel.Role):
		if err = svc.repo.RegisterScope(ctx, sel.Role); err != nil {
			return SwitchResult{}, errors.Wrap(err, "registering role scope")
		}
	default:
		return SwitchResult{}, ErrRoleUnavailable
	}

	res, err := svc.repo.SwitchActiveRole(ctx, sel.Role)
	if err != nil {
		return SwitchResult{}, errors.Wrap(err, "switching active role")
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Could not switch to the " + sel.Role + " role."
		}
		return SwitchResult{}, core.NewRemoteError(http.StatusUnprocessableEntity, msg)
	}
	if res.Role == "" {
		res.Role = sel.Role
	}
	return res, nil
}

func (svc *Service) redeemInvitation(ctx context.Context, code string) (SwitchResult, error) {
	link, err := svc.repo.LinkBranchAdmin(ctx, code)
	if err != nil {
		return SwitchResult{}, errors.Wrap(err, "verifying invitation code")
	}
	if !link.Success {
		msg := link.Message
		if msg == "" {
			msg = "Invalid or expired invitation code."
		}
		return SwitchResult{}, core.NewRemoteError(http.StatusUnprocessableEntity, msg)
	}
	return SwitchResult{Success: true, Role: BranchAdmin, ProfileCompleted: true}, nil
}
