// Package rpcrepos implements the domain repositories over core.Remote: named procedures
// for business operations and plain table access for profile data.
package rpcrepos

import (
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

// Tables of the store.
const (
	tableProfiles            = "profiles"
	tableSchoolAdminProfiles = "school_admin_profiles"
	tableParentProfiles      = "parent_profiles"
	tableTeacherProfiles     = "teacher_profiles"
	tableFeeStructures       = "fee_structures"
	tableFeeComponents       = "fee_components"
	tableExpenses            = "school_expenses"
	tableShareCodes          = "share_codes"
)

// Args are the named arguments of a procedure.
type Args map[string]interface{}

// prefixed turns the JSON fields of v into procedure arguments: name -> p_name.
func prefixed(v interface{}) (Args, error) {
	fields, err := core.ToArgs(v)
	if err != nil {
		return nil, err
	}
	args := make(Args, len(fields))
	for k, val := range fields {
		args["p_"+k] = val
	}
	return args, nil
}

// notFound maps missing rows and 404 answers to sentinel.
func notFound(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == core.ErrNotFound {
		return sentinel
	}
	var rerr *core.RemoteError
	if errors.As(err, &rerr) && rerr.NotFound() {
		return sentinel
	}
	return err
}
