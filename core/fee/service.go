package fee

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

type (
	Repository interface {
		ListStructures(ctx context.Context) ([]Structure, error)
		CreateStructure(ctx context.Context, s Structure) (Structure, error)
		CreateComponents(ctx context.Context, cs []Component) ([]Component, error)
		Publish(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}

	// OrphanError is returned when a structure was created but its components were not.
	// Nothing is rolled back: the structure stays without components.
	OrphanError struct {
		StructureID string
		Err         error
	}
)

func (e *OrphanError) Error() string {
	return fmt.Sprintf("%v (structure %s): %s", ErrComponentsNotSaved, e.StructureID, core.ErrorMessage(e.Err))
}

func (e *OrphanError) Is(target error) bool { return target == ErrComponentsNotSaved }
func (e *OrphanError) Unwrap() error        { return e.Err }

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, validate: validate, logger: logger}
}

func (svc *Service) List(ctx context.Context) ([]Structure, error) {
	list, err := svc.repo.ListStructures(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing fee structures")
	}
	if list == nil {
		list = []Structure{}
	}
	return list, nil
}

// Finalize creates the structure of draft, then its components. The structure is Active when
// publish is set and Draft otherwise.
func (svc *Service) Finalize(ctx context.Context, p core.Principal, draft Draft, publish bool) (Structure, error) {
	draft.Step = StepReview
	if err := draft.ValidateStep(svc.validate); err != nil {
		return Structure{}, err
	}

	status := StatusDraft
	if publish {
		status = StatusActive
	}
	created, err := svc.repo.CreateStructure(ctx, Structure{
		OwnerID:      p.UserID,
		Name:         draft.Details.Name,
		AcademicYear: draft.Details.AcademicYear,
		Grade:        draft.Details.Grade,
		Currency:     draft.Details.Currency,
		Description:  draft.Details.Description,
		Status:       status,
	})
	if err != nil {
		return Structure{}, errors.Wrap(err, "creating fee structure")
	}

	components := make([]Component, 0, len(draft.Components))
	for i, c := range draft.Components {
		c.ID = ""
		c.StructureID = created.ID
		c.Position = i
		components = append(components, c)
	}
	if _, err = svc.repo.CreateComponents(ctx, components); err != nil {
		// TODO: drop the orphan once the store exposes a transactional create_fee_structure
		svc.logger.Error("fee components not saved", err, p, map[string]interface{}{"structure_id": created.ID})
		return created, &OrphanError{StructureID: created.ID, Err: err}
	}
	return created, nil
}

func (svc *Service) Publish(ctx context.Context, id string) error {
	return errors.Wrap(svc.repo.Publish(ctx, id), "publishing fee structure")
}
