package controllers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/config"
	"github.com/roamline/roamline-server/internal/utils"
)

const mapboxAPIHost = "api.mapbox.com"
const schemeHTTPS = "https"

// GETMapboxDirections forwards a directions request with the server's token
// attached, so the browser never sees it. The whole trip goes in one request.
func GETMapboxDirections(c *gin.Context) {
	config, ok := c.MustGet("config").(*config.Config)
	if !ok {
		slog.Error("Failed to get config from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	coordsParam := c.Param("coords")
	coordPairs := strings.Split(coordsParam, ";")
	if len(coordPairs) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coords must be at least 2 semicolon-separated coordinate pairs"})
		return
	}
	for _, pair := range coordPairs {
		if len(strings.Split(pair, ",")) != 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "each coordinate pair must be 2 comma-separated values"})
			return
		}
	}
	query := c.Request.URL.Query()
	query.Set("access_token", config.Mapbox.PublicToken)
	url := c.Request.URL
	url.Host = mapboxAPIHost
	url.Scheme = schemeHTTPS
	url.RawQuery = query.Encode()

	resp, err := utils.HTTPRequest(c, http.MethodGet, url.String(), nil, nil)
	if err != nil {
		slog.Error("GETMapboxDirections", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Error("GETMapboxDirections", "status_code", resp.StatusCode)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("GETMapboxDirections", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	var jsonyResp map[string]any
	if err := json.Unmarshal(bodyBytes, &jsonyResp); err != nil {
		slog.Error("GETMapboxDirections", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	c.JSON(http.StatusOK, jsonyResp)
}
