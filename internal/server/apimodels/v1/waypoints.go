package v1

// CreateRouteRequest registers a new named route.
type CreateRouteRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// AddWaypointRequest adds a stop either by typed address or by device
// coordinates. Address wins when both are present.
type AddWaypointRequest struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// PatchWaypointRequest updates a stop. Only the provided fields change.
type PatchWaypointRequest struct {
	Label    *string `json:"label"`
	Position *int    `json:"position"`
}
