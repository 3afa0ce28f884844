package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
)

// Outcome is the normalized result a provider reports for a charge order.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Notification is the canonical payment notification produced by adapters
// after transport-level verification. RawPayload is the decoded provider
// payload, stored verbatim on the order for audit.
type Notification struct {
	Provider   string
	OrderID    snowflake.ID
	Outcome    Outcome
	RawPayload []byte
}

// AdapterConfig carries provider credentials into an adapter factory.
type AdapterConfig struct {
	Provider string
	Config   map[string]string
}

// Adapter validates and decodes one provider's callbacks. Verify must reject
// a delivery before Parse ever runs; neither touches the ledger.
type Adapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Notification, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}

// PaymentRequest asks a gateway to open a provider-side payment for a
// pending charge order. The order id is the correlation token the provider
// echoes back in its notification.
type PaymentRequest struct {
	OrderID     snowflake.ID
	Amount      int64
	Currency    string
	Description string
}

// PaymentIntent is what the client needs to send the payer to the provider.
type PaymentIntent struct {
	Provider string `json:"provider"`
	CodeURL  string `json:"code_url,omitempty"`
}

// Gateway creates provider-side payments. It is an outbound collaborator of
// the order creation flow; the reconciliation engine never calls it.
type Gateway interface {
	Provider() string
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentIntent, error)
}

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidConfig    = errors.New("invalid_provider_config")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrGatewayRejected  = errors.New("gateway_rejected")
)
