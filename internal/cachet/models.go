package cachet

import "statuspage-sync/internal/status"

// Component Cachet model. Only the fields the reconcilers read are decoded.
type Component struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Status  status.Status `json:"status"`
	GroupID *int          `json:"group_id"`
	Enabled *bool         `json:"enabled"`
}

// Group is a component group with the components Cachet reports as enabled.
type Group struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	EnabledComponents []Component `json:"enabled_components"`
}

// envelope is Cachet's response wrapper. Data is a pointer so a body without
// it (or with "data": null) is told apart from an empty list.
type envelope[T any] struct {
	Data *T `json:"data"`
}

type statusUpdate struct {
	Status status.Status `json:"status"`
}
