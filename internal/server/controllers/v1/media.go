package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/media"
	apimodels "github.com/roamline/roamline-server/internal/server/apimodels/v1"
)

const maxUploadBytes = 100 << 20

func mediaService(c *gin.Context) (*media.Service, bool) {
	service, ok := c.MustGet("media").(*media.Service)
	if !ok {
		slog.Error("Failed to get media service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return nil, false
	}
	return service, true
}

func GETWaypointMedia(c *gin.Context) {
	waypointID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := mediaService(c)
	if !ok {
		return
	}

	items, err := service.ListForWaypoint(waypointID, c.GetBool("admin"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func POSTWaypointMedia(c *gin.Context) {
	waypointID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := mediaService(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	title := c.PostForm("title")

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is unreadable"})
		return
	}
	defer file.Close()

	item, err := service.Upload(waypointID, fileHeader.Filename, title, file)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrWaypointNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Waypoint not found"})
		case errors.Is(err, media.ErrUnsupportedKind):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "media must be an image or a video"})
		default:
			slog.Error("Failed to upload media", "waypoint", waypointID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}

	c.JSON(http.StatusCreated, item)
}

func PATCHWaypointMedia(c *gin.Context) {
	waypointID, ok := idParam(c, "id")
	if !ok {
		return
	}
	mediaID, ok := idParam(c, "media_id")
	if !ok {
		return
	}
	service, ok := mediaService(c)
	if !ok {
		return
	}

	var req apimodels.PatchMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	item, err := service.UpdateCaption(waypointID, mediaID, req.Title)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrWaypointNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Waypoint not found"})
		case errors.Is(err, media.ErrMediaNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
		case errors.Is(err, media.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Media changed concurrently, retry"})
		default:
			slog.Error("Failed to update caption", "media", mediaID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}

	c.JSON(http.StatusOK, item)
}

func GETPendingMedia(c *gin.Context) {
	service, ok := mediaService(c)
	if !ok {
		return
	}
	items, err := service.ListPending()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func POSTApproveMedia(c *gin.Context) {
	mediaID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := mediaService(c)
	if !ok {
		return
	}

	item, err := service.Approve(mediaID)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
		} else {
			slog.Error("Failed to approve media", "media", mediaID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

func DELETEMedia(c *gin.Context) {
	mediaID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := mediaService(c)
	if !ok {
		return
	}

	err := service.Delete(mediaID)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
		} else {
			slog.Error("Failed to delete media", "media", mediaID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
