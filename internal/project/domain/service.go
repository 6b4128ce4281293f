package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChangePayload is the incoming save snapshot of an upsert call.
type ChangePayload struct {
	Token        string  `json:"token"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Variant      Variant `json:"variant"`
}

// UpsertRequest either creates a project (TokenOld unseen) or appends a
// version to the project owning TokenOld.
type UpsertRequest struct {
	TokenOld string        `json:"token_old"`
	Current  ChangePayload `json:"current"`

	// Creation-only fields, ignored on append except CustomerID.
	Tool         string  `json:"tool"`
	Source       string  `json:"source"`
	CustomerID   string  `json:"customer_id"`
	Name         string  `json:"name"`
	TemplateName string  `json:"template_name"`
	Product      Product `json:"product"`
}

// UpdateRequest carries direct field updates. Nil fields are untouched.
type UpdateRequest struct {
	Name         *string `json:"name"`
	TemplateName *string `json:"template_name"`
	Tool         *string `json:"tool"`
	Source       *string `json:"source"`
	CustomerID   *string `json:"customer_id"`
}

// OrderNotification is one purchase event from the shop backend,
// matched to a project by save token.
type OrderNotification struct {
	Token      string     `json:"token"`
	ExpireDate time.Time  `json:"expire_date"`
	SalesOrder SalesOrder `json:"sales_order"`
}

// Response is the external representation of a project.
type Response struct {
	ID             string      `json:"id"`
	CustomerID     string      `json:"customer_id"`
	Name           string      `json:"name"`
	Tool           string      `json:"tool"`
	Source         string      `json:"source"`
	TemplateName   string      `json:"template_name"`
	Product        Product     `json:"product"`
	Current        Change      `json:"current"`
	Changes        []Change    `json:"changes"`
	SalesOrder     *SalesOrder `json:"sales_order,omitempty"`
	IsDeleted      bool        `json:"is_deleted"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	AvailableUntil time.Time   `json:"available_until"`
}

// ToResponse converts a stored project into its API shape.
func ToResponse(p *Project) *Response {
	if p == nil {
		return nil
	}
	resp := &Response{
		ID:             p.ID.String(),
		CustomerID:     p.CustomerID,
		Name:           p.Name,
		Tool:           p.Tool,
		Source:         p.Source,
		TemplateName:   p.TemplateName,
		Product:        p.Product.Data(),
		Current:        p.Current.Data(),
		Changes:        []Change(p.Changes),
		IsDeleted:      p.IsDeleted,
		DeletedAt:      p.DeletedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		AvailableUntil: p.AvailableUntil,
	}
	if p.SalesOrder != nil {
		so := p.SalesOrder.Data()
		resp.SalesOrder = &so
	}
	return resp
}

// Service is the customer-project application surface exposed to the
// HTTP layer.
type Service interface {
	Upsert(ctx context.Context, tenant string, req UpsertRequest) (*Response, error)
	Get(ctx context.Context, tenant, id, customerID string) (*Response, error)
	List(ctx context.Context, tenant, customerID string) ([]Response, error)
	Update(ctx context.Context, tenant, id, customerID string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, tenant, id, customerID string) error
	ApplyOrderEvent(ctx context.Context, tenant string, event OrderNotification) error
}

// ParseID validates and parses a project identifier.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}

var (
	ErrMissingToken        = errors.New("missing_token")
	ErrMissingThumbnail    = errors.New("missing_thumbnail_url")
	ErrMissingProduct      = errors.New("missing_product")
	ErrMissingCustomer     = errors.New("missing_customer_id")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrOwnershipMismatch   = errors.New("ownership_mismatch")
	ErrWriteConflict       = errors.New("write_conflict")
	ErrUpdateFailed        = errors.New("update_failed")
	ErrUnknownWriteFailure = errors.New("unknown_write_failure")
)
