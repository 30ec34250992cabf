package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/maps"
)

func GETAutocomplete(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	mapsClient, ok := c.MustGet("maps").(*maps.Client)
	if !ok {
		slog.Error("Failed to get maps client from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	suggestions, err := mapsClient.Autocomplete(c.Request.Context(), query)
	if err != nil {
		slog.Error("Failed to autocomplete address", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	c.JSON(http.StatusOK, suggestions)
}
