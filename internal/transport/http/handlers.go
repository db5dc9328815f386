package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// RoomsHandler serves the read-only room introspection API. Nothing here
// creates or mutates a room; rooms only come into existence on join.
type RoomsHandler struct {
	Orch       *orch.Orchestrator
	ICEServers []webrtc.ICEServer
}

func (h *RoomsHandler) Register(g *gin.RouterGroup) {
	g.GET("/rooms", h.listRooms)
	g.GET("/rooms/:id", h.getRoom)
	g.POST("/rooms", h.newRoomID)
	g.GET("/ice-servers", h.iceServers)
}

func (h *RoomsHandler) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Orch.Rooms.List()})
}

func (h *RoomsHandler) getRoom(c *gin.Context) {
	id, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.Orch.Members.Snapshot(id)
	if errors.Is(err, core.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(id)).Msg("room snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// newRoomID hands out a fresh id for the client to join with.
func (h *RoomsHandler) newRoomID(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"roomId": domain.NewRoomID()})
}

func (h *RoomsHandler) iceServers(c *gin.Context) {
	servers := h.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	c.JSON(http.StatusOK, gin.H{"iceServers": servers})
}
