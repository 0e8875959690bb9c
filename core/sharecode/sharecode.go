package sharecode

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
)

type (
	Status string
	Type   string
)

const (
	StatusActive   Status = "Active"
	StatusExpired  Status = "Expired"
	StatusRevoked  Status = "Revoked"
	StatusRedeemed Status = "Redeemed"

	TypeEnquiry   Type = "Enquiry"
	TypeAdmission Type = "Admission"
)

var (
	ErrNotFound     = errors.New("share code not found")
	ErrNotRevocable = errors.New("only active share codes can be revoked")
	ErrUnknownType  = errors.New("share code type must be Enquiry or Admission")
)

type (
	ShareCode struct {
		ID          string    `json:"id"`
		Code        string    `json:"code"`
		AdmissionID string    `json:"admission_id"`
		Type        Type      `json:"type"`
		Status      Status    `json:"status"`
		ExpiresAt   time.Time `json:"expires_at"`
		CreatedAt   time.Time `json:"created_at"`
	}

	Repository interface {
		List(ctx context.Context, admissionID string) ([]ShareCode, error)
		Get(ctx context.Context, id string) (ShareCode, error)
		Generate(ctx context.Context, admissionID string, typ Type) (ShareCode, error)
		SetStatus(ctx context.Context, id string, status Status) error
	}

	Service struct {
		repo Repository
	}
)

// EffectiveStatus is the status as of now: an active code past its expiry reads as Expired.
func (c ShareCode) EffectiveStatus(now time.Time) Status {
	if c.Status == StatusActive && !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return StatusExpired
	}
	return c.Status
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the codes of an admission with their effective status.
func (svc *Service) List(ctx context.Context, admissionID string) ([]ShareCode, error) {
	codes, err := svc.repo.List(ctx, admissionID)
	if err != nil {
		return nil, errors.Wrap(err, "listing share codes")
	}
	now := core.NowFunc()
	for i := range codes {
		codes[i].Status = codes[i].EffectiveStatus(now)
	}
	if codes == nil {
		codes = []ShareCode{}
	}
	return codes, nil
}

func (svc *Service) Generate(ctx context.Context, admissionID string, typ Type) (ShareCode, error) {
	switch typ {
	case TypeEnquiry, TypeAdmission:
	default:
		return ShareCode{}, core.NewValidationError(ErrUnknownType, core.FieldError{Field: "type", Error: ErrUnknownType.Error()})
	}
	code, err := svc.repo.Generate(ctx, admissionID, typ)
	return code, errors.Wrap(err, "generating share code")
}

// Revoke revokes an effectively active code.
func (svc *Service) Revoke(ctx context.Context, id string) error {
	code, err := svc.repo.Get(ctx, id)
	if err != nil {
		return errors.Wrap(err, "getting share code")
	}
	if code.EffectiveStatus(core.NowFunc()) != StatusActive {
		return ErrNotRevocable
	}
	return errors.Wrap(svc.repo.SetStatus(ctx, id, StatusRevoked), "revoking share code")
}
