package branch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	ErrNotFound   = errors.New("branch not found")
	ErrMainBranch = errors.New("the main branch cannot be deleted")
)

type (
	Branch struct {
		ID           string      `json:"id"`
		Name         string      `json:"name"`
		Address      string      `json:"address"`
		City         string      `json:"city"`
		State        string      `json:"state"`
		Country      string      `json:"country"`
		IsMainBranch bool        `json:"is_main_branch"`
		AdminName    null.String `json:"admin_name"`
		AdminEmail   null.String `json:"admin_email"`
		AdminPhone   null.String `json:"admin_phone"`
		CreatedAt    time.Time   `json:"created_at"`
	}

	// Listing is a branch as shown on the branches step.
	Listing struct {
		Branch
		Deletable bool `json:"deletable"`
	}

	// Input holds the editable fields of a branch.
	Input struct {
		Name         string `json:"name" validate:"required,max=120"`
		Address      string `json:"address" validate:"required,max=255"`
		City         string `json:"city" validate:"required"`
		State        string `json:"state,omitempty"`
		Country      string `json:"country" validate:"required,country"`
		IsMainBranch *bool  `json:"is_main_branch,omitempty"`
		AdminName    string `json:"admin_name,omitempty" validate:"required_with=AdminEmail"`
		AdminEmail   string `json:"admin_email,omitempty" validate:"omitempty,email"`
		AdminPhone   string `json:"admin_phone,omitempty" validate:"omitempty,phone"`
	}

	// Created is the answer of create_school_branch. AdminInviteCode is only set when an admin
	// email was given.
	Created struct {
		Branch
		AdminInviteCode string `json:"admin_invite_code,omitempty"`
	}

	// Region is an address broken down by the resolver.
	Region struct {
		Resolved bool   `json:"resolved"`
		City     string `json:"city,omitempty"`
		State    string `json:"state,omitempty"`
		Country  string `json:"country,omitempty"`
	}

	// AddressResolver infers the city, state & country of a free-form address.
	AddressResolver interface {
		Resolve(ctx context.Context, address string) (Region, error)
	}

	Repository interface {
		List(ctx context.Context) ([]Branch, error)
		Create(ctx context.Context, in Input) (Created, error)
		Update(ctx context.Context, id string, in Input) (Branch, error)
		Delete(ctx context.Context, id string) error
	}
)

// CanDelete is false for the main branch.
func (b Branch) CanDelete() bool {
	return !b.IsMainBranch
}

// DefaultIsMain is the is_main_branch value of a new branch that does not set it:
// the first branch of a school is its main one.
func DefaultIsMain(existing int) bool {
	return existing == 0
}
