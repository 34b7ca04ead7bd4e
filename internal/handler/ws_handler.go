package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quizroomhq/quizroom-backend/internal/middleware"
	"github.com/quizroomhq/quizroom-backend/internal/service"
	"github.com/rs/zerolog"
)

// monitorInterval is how often the monitor pushes a fresh room snapshot.
const monitorInterval = 2 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty origins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live room monitoring frames to teachers.
type WSHandler struct {
	roomService   *service.RoomService
	reportService *service.ReportService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(roomService *service.RoomService, reportService *service.ReportService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		roomService:   roomService,
		reportService: reportService,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// monitorFrame is one push to the monitoring teacher.
type monitorFrame struct {
	Report           *service.RoomReport `json:"report"`
	RemainingSeconds int                 `json:"remaining_seconds"`
}

// MonitorRoom godoc
// WS /ws/v1/teacher/rooms/:room_id/monitor?token=...
// Pushes a room snapshot (member statuses, scores, countdown) every two
// seconds until the client disconnects.
func (h *WSHandler) MonitorRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	// Verify ownership before upgrading so errors still go out as JSON.
	if _, err := h.reportService.RoomReport(c.Request.Context(), claims.UserID, roomID); err != nil {
		failServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("teacher_id", claims.UserID).
		Str("room_id", roomID.String()).
		Logger()
	wsLog.Info().Msg("Monitor connected")

	// Reader goroutine: we never expect messages, but reading is the only
	// way to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		report, err := h.reportService.RoomReport(ctx, claims.UserID, roomID)
		if err != nil {
			wsLog.Warn().Err(err).Msg("Snapshot failed, closing monitor")
			return
		}
		remaining, err := h.roomService.RemainingSeconds(ctx, report.Room)
		if err != nil {
			wsLog.Warn().Err(err).Msg("Clock read failed, closing monitor")
			return
		}

		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(monitorFrame{Report: report, RemainingSeconds: remaining}); err != nil {
			wsLog.Debug().Msg("Monitor disconnected")
			return
		}

		select {
		case <-done:
			wsLog.Debug().Msg("Monitor closed by client")
			return
		case <-ticker.C:
		}
	}
}
