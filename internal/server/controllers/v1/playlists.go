package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/playlists"
	apimodels "github.com/roamline/roamline-server/internal/server/apimodels/v1"
)

func playlistsService(c *gin.Context) (*playlists.Service, bool) {
	service, ok := c.MustGet("playlists").(*playlists.Service)
	if !ok {
		slog.Error("Failed to get playlists service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return nil, false
	}
	return service, true
}

func GETPlaylists(c *gin.Context) {
	service, ok := playlistsService(c)
	if !ok {
		return
	}
	list, err := service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func GETActivePlaylist(c *gin.Context) {
	service, ok := playlistsService(c)
	if !ok {
		return
	}
	playlist, active, err := service.Active()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	if !active {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active playlist"})
		return
	}
	c.JSON(http.StatusOK, playlist)
}

func POSTPlaylist(c *gin.Context) {
	service, ok := playlistsService(c)
	if !ok {
		return
	}

	var req apimodels.CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and embed_url are required"})
		return
	}

	playlist, err := service.Create(req.Title, req.EmbedURL)
	if err != nil {
		switch {
		case errors.Is(err, playlists.ErrTitleRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		case errors.Is(err, playlists.ErrEmbedURLInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "embed_url must be an https URL"})
		default:
			slog.Error("Failed to create playlist", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}
	c.JSON(http.StatusCreated, playlist)
}

func POSTActivatePlaylist(c *gin.Context) {
	playlistID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := playlistsService(c)
	if !ok {
		return
	}

	err := service.Activate(playlistID)
	if err != nil {
		if errors.Is(err, playlists.ErrPlaylistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
		} else {
			slog.Error("Failed to activate playlist", "playlist", playlistID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func DELETEPlaylist(c *gin.Context) {
	playlistID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := playlistsService(c)
	if !ok {
		return
	}

	err := service.Delete(playlistID)
	if err != nil {
		if errors.Is(err, playlists.ErrPlaylistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Playlist not found"})
		} else {
			slog.Error("Failed to delete playlist", "playlist", playlistID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
