package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultRestaurantName = "Restaurante"

	MinNameLength = 2
	MaxNameLength = 100
)

var (
	MinTargetCMV = decimal.NewFromInt(5)
	MaxTargetCMV = decimal.NewFromInt(80)
)

type Service interface {
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)

	// Profile resolves the settings reports print and compare against. Orgs
	// without a stored profile get the defaults.
	Profile(ctx context.Context, orgID int64) (Profile, error)
}

type UpdateRequest struct {
	RestaurantName *string          `json:"restaurant_name"`
	TargetCMV      *decimal.Decimal `json:"target_cmv"`
	// ClearTargetCMV drops the org override so the deployment target applies.
	ClearTargetCMV bool `json:"clear_target_cmv"`
}

type Response struct {
	ID                 string           `json:"id"`
	RestaurantName     string           `json:"restaurant_name"`
	Slug               string           `json:"slug,omitempty"`
	TargetCMV          *decimal.Decimal `json:"target_cmv"`
	EffectiveTargetCMV decimal.Decimal  `json:"effective_target_cmv"`
	UpdatedAt          *time.Time       `json:"updated_at,omitempty"`
}

type Profile struct {
	RestaurantName string
	TargetCMV      decimal.Decimal
	// Customized is false when TargetCMV is the deployment default.
	Customized bool
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_restaurant_name")
	ErrInvalidTargetCMV    = errors.New("invalid_target_cmv")
)
