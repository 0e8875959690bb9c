package branch

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

const inviteTemplate = "branch_admin_invite"

type Service struct {
	repo     Repository
	resolver AddressResolver
	mailer   core.EmailService
	validate *validator.Validate
	logger   core.Logger
}

// NewService returns a branch Service. resolver may be nil: addresses are then never resolved.
func NewService(
	repo Repository,
	resolver AddressResolver,
	mailer core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{repo: repo, resolver: resolver, mailer: mailer, validate: validate, logger: logger}
}

func (svc *Service) List(ctx context.Context) ([]Listing, error) {
	branches, err := svc.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing branches")
	}
	list := make([]Listing, 0, len(branches))
	for _, b := range branches {
		list = append(list, Listing{Branch: b, Deletable: b.CanDelete()})
	}
	return list, nil
}

func (svc *Service) clean(in *Input) error {
	in.Name = core.CleanString(in.Name)
	in.Address = core.CleanString(in.Address)
	in.City = core.CleanString(in.City)
	in.State = core.CleanString(in.State)
	if c, ok := CanonicalCountry(in.Country); ok {
		in.Country = c
	}
	in.AdminName = core.CleanString(in.AdminName)
	in.AdminEmail = core.CleanString(in.AdminEmail, true /* lower */)
	in.AdminPhone = core.CleanString(in.AdminPhone)
	return svc.validate.Struct(in)
}

// Create adds a branch. The first branch of a school is its main one unless stated otherwise.
// The branch admin gets an invitation email when the store hands out a code.
func (svc *Service) Create(ctx context.Context, in Input) (Created, error) {
	if err := svc.clean(&in); err != nil {
		return Created{}, err
	}
	if in.IsMainBranch == nil {
		existing, err := svc.repo.List(ctx)
		if err != nil {
			return Created{}, errors.Wrap(err, "counting branches")
		}
		isMain := DefaultIsMain(len(existing))
		in.IsMainBranch = &isMain
	}

	created, err := svc.repo.Create(ctx, in)
	if err != nil {
		return Created{}, errors.Wrap(err, "creating branch")
	}
	if created.AdminInviteCode != "" && in.AdminEmail != "" {
		svc.invite(in, created)
	}
	return created, nil
}

func (svc *Service) invite(in Input, created Created) {
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: in.AdminName, Address: in.AdminEmail}},
		Subject:      "You are invited to manage " + created.Name,
		TemplateName: inviteTemplate,
		TemplateData: map[string]interface{}{
			"AdminName":  in.AdminName,
			"BranchName": created.Name,
			"Code":       created.AdminInviteCode,
		},
	})
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (Branch, error) {
	if err := svc.clean(&in); err != nil {
		return Branch{}, err
	}
	b, err := svc.repo.Update(ctx, id, in)
	return b, errors.Wrap(err, "updating branch")
}

// Delete removes a branch. The main branch is refused before reaching the store.
func (svc *Service) Delete(ctx context.Context, id string) error {
	branches, err := svc.repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "listing branches")
	}
	var found *Branch
	for i := range branches {
		if branches[i].ID == id {
			found = &branches[i]
			break
		}
	}
	if found == nil {
		return ErrNotFound
	}
	if !found.CanDelete() {
		return ErrMainBranch
	}
	return errors.Wrap(svc.repo.Delete(ctx, id), "deleting branch")
}

// ResolveAddress infers the region of address. Failures are logged and yield an unresolved
// region: the form is filled by hand then.
func (svc *Service) ResolveAddress(ctx context.Context, address string) Region {
	address = core.CleanString(address)
	if svc.resolver == nil || len(address) < 5 {
		return Region{}
	}
	region, err := svc.resolver.Resolve(ctx, address)
	if err != nil {
		svc.logger.Warn("resolving branch address", err, map[string]interface{}{"address": address})
		return Region{}
	}
	if c, ok := CanonicalCountry(region.Country); ok {
		region.Country = c
	} else {
		region.Country = ""
	}
	region.Resolved = region.City != "" || region.State != "" || region.Country != ""
	return region
}
