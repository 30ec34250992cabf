package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	gorillaWebsocket "github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/roamline/roamline-server/internal/db/models"
	"github.com/roamline/roamline-server/internal/metrics"
	"github.com/roamline/roamline-server/internal/render"
	routesync "github.com/roamline/roamline-server/internal/sync"
	"github.com/roamline/roamline-server/internal/websocket"
	"gorm.io/gorm"
)

// Update is one push to a connected viewer: the full ordered waypoint list
// and the map state rendered from it.
type Update struct {
	RouteID   uint              `json:"route_id"`
	Waypoints []models.Waypoint `json:"waypoints"`
	State     *render.State     `json:"state,omitempty"`
}

type connection struct {
	sub    *routesync.Subscription
	cancel context.CancelFunc
}

// RouteWebsocket streams live map updates for a route. Each waypoint change
// re-renders and pushes the whole state; clients replace what they have.
type RouteWebsocket struct {
	websocket.Websocket
	synchronizer *routesync.Synchronizer
	renderer     *render.Renderer
	metrics      *metrics.Metrics
	connections  *xsync.MapOf[*http.Request, *connection]
}

func CreateRouteWebsocket(synchronizer *routesync.Synchronizer, renderer *render.Renderer, metrics *metrics.Metrics) *RouteWebsocket {
	return &RouteWebsocket{
		synchronizer: synchronizer,
		renderer:     renderer,
		metrics:      metrics,
		connections:  xsync.NewMapOf[*http.Request, *connection](),
	}
}

func (c *RouteWebsocket) OnMessage(_ context.Context, _ *http.Request, _ websocket.Writer, msg []byte, msgType int, route *models.Route, _ *gorm.DB) {
	slog.Debug("Ignoring websocket message", "route", route.Name, "message", string(msg), "type", msgType)
}

func (c *RouteWebsocket) OnConnect(ctx context.Context, r *http.Request, w websocket.Writer, route *models.Route, _ *gorm.DB) {
	newCtx, cancel := context.WithCancel(ctx)

	sub, err := c.synchronizer.Subscribe(newCtx, route.ID)
	if err != nil {
		slog.Error("Failed to subscribe to route", "route", route.Name, "error", err)
		cancel()
		w.Error("subscribe failed")
		return
	}

	c.connections.Store(r, &connection{sub: sub, cancel: cancel})
	c.metrics.IncrementRouteConnections(fmt.Sprint(route.ID))

	go func() {
		for {
			select {
			case <-newCtx.Done():
				return
			case waypoints, ok := <-sub.Lists():
				if !ok {
					return
				}
				update := Update{
					RouteID:   route.ID,
					Waypoints: waypoints,
				}
				state, err := c.renderer.Render(newCtx, route.ID, waypoints)
				if err != nil {
					slog.Warn("Failed to render route", "route", route.Name, "error", err)
				}
				if state == nil {
					// Superseded by a newer list already in flight
					continue
				}
				update.State = state

				data, err := json.Marshal(update)
				if err != nil {
					slog.Warn("Error marshalling update", "error", err)
					continue
				}
				w.WriteMessage(websocket.Message{
					Type: gorillaWebsocket.TextMessage,
					Data: data,
				})
			}
		}
	}()
}

func (c *RouteWebsocket) OnDisconnect(_ context.Context, r *http.Request, route *models.Route, _ *gorm.DB) {
	conn, loaded := c.connections.LoadAndDelete(r)
	if !loaded {
		return
	}
	conn.sub.Close()
	conn.cancel()
	c.metrics.DecrementRouteConnections(fmt.Sprint(route.ID))
}
