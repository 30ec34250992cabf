package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/render"
	apimodels "github.com/roamline/roamline-server/internal/server/apimodels/v1"
	routesync "github.com/roamline/roamline-server/internal/sync"
	"github.com/roamline/roamline-server/internal/trips"
	"gorm.io/gorm"
)

func routeFromParam(c *gin.Context) (models.Route, bool) {
	routeName, ok := c.Params.Get("route")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "route is required"})
		return models.Route{}, false
	}
	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return models.Route{}, false
	}
	route, err := models.FindRouteByName(db, routeName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return models.Route{}, false
	}
	return route, true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	raw, ok := c.Params.Get(name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a number"})
		return 0, false
	}
	return uint(id), true
}

func GETRoutes(c *gin.Context) {
	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	routes, err := models.ListRoutes(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, routes)
}

func POSTRoute(c *gin.Context) {
	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	var req apimodels.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	exists, err := models.RouteNameExists(db, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Route already exists"})
		return
	}

	route := models.Route{Name: req.Name, Description: req.Description}
	if err := db.Create(&route).Error; err != nil {
		slog.Error("Failed to create route", "route", req.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusCreated, route)
}

func GETWaypoints(c *gin.Context) {
	route, ok := routeFromParam(c)
	if !ok {
		return
	}
	synchronizer, ok := c.MustGet("synchronizer").(*routesync.Synchronizer)
	if !ok {
		slog.Error("Failed to get synchronizer from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	waypoints, err := synchronizer.Snapshot(route.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, waypoints)
}

func GETRouteMap(c *gin.Context) {
	route, ok := routeFromParam(c)
	if !ok {
		return
	}
	renderer, ok := c.MustGet("renderer").(*render.Renderer)
	if !ok {
		slog.Error("Failed to get renderer from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	if state, ok := renderer.State(route.ID); ok {
		c.JSON(http.StatusOK, state)
		return
	}

	// Nothing rendered yet, do it now
	synchronizer, ok := c.MustGet("synchronizer").(*routesync.Synchronizer)
	if !ok {
		slog.Error("Failed to get synchronizer from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	waypoints, err := synchronizer.Snapshot(route.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	state, err := renderer.Render(c.Request.Context(), route.ID, waypoints)
	if err != nil {
		slog.Error("Failed to render route", "route", route.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	if state == nil {
		// A concurrent render won, serve its result
		state, _ = renderer.State(route.ID)
	}
	c.JSON(http.StatusOK, state)
}

func POSTWaypoint(c *gin.Context) {
	route, ok := routeFromParam(c)
	if !ok {
		return
	}
	tripsService, ok := c.MustGet("trips").(*trips.Service)
	if !ok {
		slog.Error("Failed to get trips from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	var req apimodels.AddWaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var waypoint models.Waypoint
	var err error
	switch {
	case req.Address != "":
		waypoint, err = tripsService.AddByAddress(c.Request.Context(), route.ID, req.Address)
	case req.Latitude != nil && req.Longitude != nil:
		waypoint, err = tripsService.AddByCurrentLocation(c.Request.Context(), route.ID, *req.Latitude, *req.Longitude)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "address or coordinates are required"})
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, trips.ErrAddressRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		case errors.Is(err, trips.ErrOutsideAllowedCountry):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "address is outside the allowed country"})
		default:
			slog.Error("Failed to add waypoint", "route", route.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}

	c.JSON(http.StatusCreated, waypoint)
}

func PATCHWaypoint(c *gin.Context) {
	route, ok := routeFromParam(c)
	if !ok {
		return
	}
	waypointID, ok := idParam(c, "id")
	if !ok {
		return
	}
	tripsService, ok := c.MustGet("trips").(*trips.Service)
	if !ok {
		slog.Error("Failed to get trips from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	var req apimodels.PatchWaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Label == nil && req.Position == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if req.Position != nil {
		err := tripsService.Reorder(route.ID, waypointID, *req.Position)
		if err != nil {
			switch {
			case errors.Is(err, trips.ErrWaypointNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Waypoint not found"})
			case errors.Is(err, trips.ErrInvalidStopNumber):
				c.JSON(http.StatusBadRequest, gin.H{"error": "position is out of range"})
			default:
				slog.Error("Failed to reorder waypoint", "waypoint", waypointID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			}
			return
		}
	}

	if req.Label != nil {
		err := tripsService.UpdateLabel(route.ID, waypointID, *req.Label)
		if err != nil {
			if errors.Is(err, trips.ErrWaypointNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Waypoint not found"})
			} else {
				slog.Error("Failed to update waypoint label", "waypoint", waypointID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			}
			return
		}
	}

	c.Status(http.StatusNoContent)
}

func DELETEWaypoint(c *gin.Context) {
	route, ok := routeFromParam(c)
	if !ok {
		return
	}
	waypointID, ok := idParam(c, "id")
	if !ok {
		return
	}
	tripsService, ok := c.MustGet("trips").(*trips.Service)
	if !ok {
		slog.Error("Failed to get trips from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	err := tripsService.Delete(route.ID, waypointID)
	if err != nil {
		if errors.Is(err, trips.ErrWaypointNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Waypoint not found"})
		} else {
			slog.Error("Failed to delete waypoint", "waypoint", waypointID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
