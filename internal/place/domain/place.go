// Package domain holds the cached Google place aggregate. Place details
// are fetched from the Places API on first read and re-fetched once the
// stored copy goes stale.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Place is one cached Places API details document, scoped per tenant.
type Place struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	Tenant  string       `gorm:"type:text;not null;uniqueIndex:idx_google_places_tenant_place" json:"-"`
	PlaceID string       `gorm:"type:text;not null;uniqueIndex:idx_google_places_tenant_place" json:"place_id"`

	Name        string         `gorm:"type:text" json:"name"`
	DisplayName datatypes.JSON `gorm:"type:jsonb" json:"display_name,omitempty"`
	Address     string         `gorm:"type:text" json:"address"`
	Rating      float64        `json:"rating"`
	Reviews     datatypes.JSON `gorm:"type:jsonb" json:"reviews,omitempty"`
	Photos      datatypes.JSON `gorm:"type:jsonb" json:"photos,omitempty"`
	Location    datatypes.JSON `gorm:"type:jsonb" json:"location,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Place) TableName() string { return "google_places" }

// Details is the subset of a Places API details response the service
// stores. Nested documents stay opaque.
type Details struct {
	Name             string          `json:"name"`
	DisplayName      json.RawMessage `json:"displayName,omitempty"`
	FormattedAddress string          `json:"formattedAddress"`
	Location         json.RawMessage `json:"location,omitempty"`
	Rating           float64         `json:"rating"`
	Reviews          json.RawMessage `json:"reviews,omitempty"`
	Photos           json.RawMessage `json:"photos,omitempty"`
}

// Client fetches place details from the upstream Places API.
type Client interface {
	Details(ctx context.Context, placeID string) (*Details, error)
}

// Service serves place details through the per-tenant cache.
type Service interface {
	GetPlace(ctx context.Context, tenant, placeID string) (*Place, error)
}

var (
	ErrMissingPlaceID = errors.New("missing_place_id")
	ErrPlaceNotFound  = errors.New("place_not_found")
	ErrUpstream       = errors.New("places_upstream_failure")
)
