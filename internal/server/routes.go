package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/server/controllers"
	controllersV1 "github.com/roamline/roamline-server/internal/server/controllers/v1"
	websocketControllers "github.com/roamline/roamline-server/internal/server/websocket"
	"github.com/roamline/roamline-server/internal/websocket"
)

func applyRoutes(r *gin.Engine, config *config.Config, authorizer Authorizer, routeWebsocket *websocketControllers.RouteWebsocket) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	apiV1 := r.Group("/v1")
	v1(apiV1, config, authorizer)

	// Mapbox forwarding for the frontend map
	directions := r.Group("/directions")
	directionsV5 := directions.Group("/v5")
	directionsV5.GET("/mapbox/driving/:coords", controllers.GETMapboxDirections)

	// Uploaded media blobs when the filesystem driver serves them directly
	r.GET("/media/*path", controllers.GETMediaFile)

	// Live route updates
	wsV1 := r.Group("/ws/v1")
	wsV1.GET("/routes/:route", websocket.CreateHandler(routeWebsocket, config))

	r.NoRoute(func(c *gin.Context) {
		slog.Warn("Not Found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}

func v1(group *gin.RouterGroup, config *config.Config, authorizer Authorizer) {
	group.POST("/auth/login", controllersV1.POSTLogin)

	group.GET("/routes", controllersV1.GETRoutes)
	group.POST("/routes", requireAuth(authorizer), requireAdmin(), controllersV1.POSTRoute)
	group.GET("/routes/:route/waypoints", controllersV1.GETWaypoints)
	group.GET("/routes/:route/map", controllersV1.GETRouteMap)
	group.POST("/routes/:route/waypoints", requireAuth(authorizer), requireAdmin(), controllersV1.POSTWaypoint)
	group.PATCH("/routes/:route/waypoints/:id", requireAuth(authorizer), requireAdmin(), controllersV1.PATCHWaypoint)
	group.DELETE("/routes/:route/waypoints/:id", requireAuth(authorizer), requireAdmin(), controllersV1.DELETEWaypoint)

	group.GET("/waypoints/:id/media", optionalAuth(authorizer), controllersV1.GETWaypointMedia)
	group.POST("/waypoints/:id/media", requireAuth(authorizer), requireAdmin(), controllersV1.POSTWaypointMedia)
	group.PATCH("/waypoints/:id/media/:media_id", requireAuth(authorizer), requireAdmin(), controllersV1.PATCHWaypointMedia)

	group.GET("/media/pending", requireAuth(authorizer), requireAdmin(), controllersV1.GETPendingMedia)
	group.POST("/media/:id/approve", requireAuth(authorizer), requireAdmin(), controllersV1.POSTApproveMedia)
	group.DELETE("/media/:id", requireAuth(authorizer), requireAdmin(), controllersV1.DELETEMedia)

	group.GET("/guestbook", controllersV1.GETGuestbook)
	group.POST("/guestbook", controllersV1.POSTGuestbook)
	group.DELETE("/guestbook/:id", requireAuth(authorizer), requireAdmin(), controllersV1.DELETEGuestbookEntry)

	group.GET("/playlists", controllersV1.GETPlaylists)
	group.GET("/playlists/active", controllersV1.GETActivePlaylist)
	group.POST("/playlists", requireAuth(authorizer), requireAdmin(), controllersV1.POSTPlaylist)
	group.POST("/playlists/:id/activate", requireAuth(authorizer), requireAdmin(), controllersV1.POSTActivatePlaylist)
	group.DELETE("/playlists/:id", requireAuth(authorizer), requireAdmin(), controllersV1.DELETEPlaylist)

	group.GET("/geo/autocomplete", requireAuth(authorizer), controllersV1.GETAutocomplete)
}
