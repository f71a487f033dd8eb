package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Processor represents a connector to an external payment processor used to
// move real money on and off the platform.
type Processor interface {
	AuthorizeCharge(ctx context.Context, input ChargeAuthorization) (AuthorizationDecision, error)
	AuthorizePayout(ctx context.Context, input PayoutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision captures the processor's response.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// ChargeAuthorization encapsulates details for charging an external source
// to top up a wallet.
type ChargeAuthorization struct {
	OwnerID string
	Amount  decimal.Decimal
}

// PayoutAuthorization captures data for pushing withdrawn funds out.
type PayoutAuthorization struct {
	OwnerID string
	Amount  decimal.Decimal
}

// StaticProcessor simulates a successful processor integration.
type StaticProcessor struct{}

// AuthorizeCharge approves the top-up with a synthetic reference.
func (StaticProcessor) AuthorizeCharge(_ context.Context, _ ChargeAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}

// AuthorizePayout approves the withdrawal with a synthetic reference.
func (StaticProcessor) AuthorizePayout(_ context.Context, _ PayoutAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}, nil
}
