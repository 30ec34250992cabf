package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roamline/roamline-server/internal/guestbook"
	apimodels "github.com/roamline/roamline-server/internal/server/apimodels/v1"
)

func guestbookService(c *gin.Context) (*guestbook.Service, bool) {
	service, ok := c.MustGet("guestbook").(*guestbook.Service)
	if !ok {
		slog.Error("Failed to get guestbook service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return nil, false
	}
	return service, true
}

func GETGuestbook(c *gin.Context) {
	service, ok := guestbookService(c)
	if !ok {
		return
	}
	entries, err := service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func POSTGuestbook(c *gin.Context) {
	service, ok := guestbookService(c)
	if !ok {
		return
	}

	var req apimodels.SignGuestbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and message are required"})
		return
	}

	entry, err := service.Sign(req.Name, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, guestbook.ErrNameRequired), errors.Is(err, guestbook.ErrMessageRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and message are required"})
		case errors.Is(err, guestbook.ErrBlockedWord):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "message contains blocked language"})
		default:
			slog.Error("Failed to sign guestbook", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func DELETEGuestbookEntry(c *gin.Context) {
	entryID, ok := idParam(c, "id")
	if !ok {
		return
	}
	service, ok := guestbookService(c)
	if !ok {
		return
	}

	err := service.Delete(entryID)
	if err != nil {
		if errors.Is(err, guestbook.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		} else {
			slog.Error("Failed to delete guestbook entry", "entry", entryID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
