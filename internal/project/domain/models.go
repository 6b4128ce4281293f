// Package domain contains the customer-project aggregate and its
// persistence model. A project is one design-tool save lineage; every
// save is an immutable Change appended to the project's history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Product identifies the catalog item a project is attached to.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// Variant is the optional product variant of a single save.
type Variant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Change is one immutable snapshot in a project's history, keyed by the
// save token issued by the design tool.
type Change struct {
	Token        string    `json:"token"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Variant      Variant   `json:"variant"`
	CreatedAt    time.Time `json:"created_at"`
}

// SalesOrder links a project to the order that purchased it. It is only
// ever attached through the order-notification path.
type SalesOrder struct {
	OrderID    string    `json:"order_id"`
	LineItemID string    `json:"line_item_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Project is the aggregate root, stored one row per project with the
// change history embedded as a JSON array.
type Project struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Tenant     string       `gorm:"type:text;not null;index" json:"-"`
	CustomerID string       `gorm:"type:text;index;default:''" json:"customer_id"`

	Name         string `gorm:"type:text" json:"name"`
	Tool         string `gorm:"type:text" json:"tool"`
	Source       string `gorm:"type:text" json:"source"`
	TemplateName string `gorm:"type:text" json:"template_name"`

	Product datatypes.JSONType[Product] `gorm:"type:jsonb" json:"product"`

	// Current mirrors the last element of Changes after every
	// successful mutation.
	Current datatypes.JSONType[Change]  `gorm:"type:jsonb" json:"current"`
	Changes datatypes.JSONSlice[Change] `gorm:"type:jsonb" json:"changes"`

	SalesOrder *datatypes.JSONType[SalesOrder] `gorm:"type:jsonb" json:"sales_order,omitempty"`

	IsDeleted bool       `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt *time.Time `gorm:"type:timestamptz" json:"deleted_at,omitempty"`

	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
	AvailableUntil time.Time `gorm:"not null" json:"available_until"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "customer_projects" }

// ProjectToken reserves a save token for exactly one project. The
// primary key makes token uniqueness a store-level constraint, so two
// concurrent creates racing on the same token collapse into one winner
// and one write conflict.
type ProjectToken struct {
	Token     string       `gorm:"primaryKey;type:text"`
	ProjectID snowflake.ID `gorm:"not null;index"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (ProjectToken) TableName() string { return "customer_project_tokens" }
