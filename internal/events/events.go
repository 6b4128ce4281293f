package events

// Project lifecycle event types written to the outbox.
const (
	EventProjectCreated         = "project.created"
	EventProjectVersionAppended = "project.version_appended"
	EventProjectDeleted         = "project.deleted"
	EventProjectOrderAttached   = "project.order_attached"
	EventPlaceRefreshed         = "place.refreshed"
)

// ProjectPayload captures the minimal data downstream consumers need to
// react to a project lifecycle event.
type ProjectPayload struct {
	ProjectID  string `json:"project_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Token      string `json:"token,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p ProjectPayload) ToMap() map[string]any {
	payload := map[string]any{
		"project_id": p.ProjectID,
	}
	if p.CustomerID != "" {
		payload["customer_id"] = p.CustomerID
	}
	if p.Token != "" {
		payload["token"] = p.Token
	}
	if p.OrderID != "" {
		payload["order_id"] = p.OrderID
	}
	return payload
}
