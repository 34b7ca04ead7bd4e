package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizroomhq/quizroom-backend/internal/middleware"
	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/quizroomhq/quizroom-backend/internal/response"
	"github.com/quizroomhq/quizroom-backend/internal/service"
	"github.com/quizroomhq/quizroom-backend/internal/validator"
)

// RoomHandler handles teacher-side room and quiz lifecycle endpoints.
type RoomHandler struct {
	roomService       *service.RoomService
	submissionService *service.SubmissionService
	reportService     *service.ReportService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(
	roomService *service.RoomService,
	submissionService *service.SubmissionService,
	reportService *service.ReportService,
) *RoomHandler {
	return &RoomHandler{
		roomService:       roomService,
		submissionService: submissionService,
		reportService:     reportService,
	}
}

// parseRoomID reads and validates the :room_id path param. It writes the
// error response itself; callers bail out on !ok.
func parseRoomID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// CreateRoom godoc
// POST /api/v1/teacher/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

// ListRooms godoc
// GET /api/v1/teacher/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	claims := middleware.GetClaims(c)

	rooms, err := h.roomService.ListRooms(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom godoc
// GET /api/v1/teacher/rooms/:room_id
// Returns the room with its live countdown.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetOwnedRoom(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		failServiceError(c, err)
		return
	}
	remaining, err := h.roomService.RemainingSeconds(c.Request.Context(), room)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room, "remaining_seconds": remaining})
}

// Dashboard godoc
// GET /api/v1/teacher/dashboard
func (h *RoomHandler) Dashboard(c *gin.Context) {
	claims := middleware.GetClaims(c)

	counts, err := h.roomService.Dashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"counts": counts})
}

// Members godoc
// GET /api/v1/teacher/rooms/:room_id/members
func (h *RoomHandler) Members(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	members, err := h.roomService.Members(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}

// UploadQuiz godoc
// POST /api/v1/teacher/rooms/:room_id/quiz
// Normalizes and stores the uploaded questions, replacing any quiz the
// room held before. Rejected once the quiz has started.
func (h *RoomHandler) UploadQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req model.UploadQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.roomService.UploadQuiz(c.Request.Context(), claims.UserID, roomID, req)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// SetDuration godoc
// PATCH /api/v1/teacher/rooms/:room_id/quiz/duration
func (h *RoomHandler) SetDuration(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req model.ExtendQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.roomService.SetDuration(c.Request.Context(), claims.UserID, roomID, req.Minutes); err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"duration_minutes": req.Minutes})
}

// StartQuiz godoc
// POST /api/v1/teacher/rooms/:room_id/start
// Stamps the quiz start time. An optional minutes field overrides the
// duration for this run.
func (h *RoomHandler) StartQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req model.StartQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.StartQuiz(c.Request.Context(), claims.UserID, roomID, req)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// ExtendQuiz godoc
// POST /api/v1/teacher/rooms/:room_id/extend
func (h *RoomHandler) ExtendQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req model.ExtendQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.ExtendQuiz(c.Request.Context(), claims.UserID, roomID, req.Minutes)
	if err != nil {
		failServiceError(c, err)
		return
	}

	remaining, err := h.roomService.RemainingSeconds(c.Request.Context(), room)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room, "remaining_seconds": remaining})
}

// CloseRoom godoc
// POST /api/v1/teacher/rooms/:room_id/close
// Finalizes outstanding submissions, then marks the room inactive.
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	// Ownership is checked before finalizing so a foreign teacher cannot
	// force-submit someone else's room.
	if _, err := h.roomService.GetOwnedRoom(c.Request.Context(), claims.UserID, roomID); err != nil {
		failServiceError(c, err)
		return
	}
	if err := h.submissionService.FinalizeRoom(c.Request.Context(), roomID); err != nil {
		failServiceError(c, err)
		return
	}
	if err := h.roomService.CloseRoom(c.Request.Context(), claims.UserID, roomID); err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"closed": true})
}

// Report godoc
// GET /api/v1/teacher/rooms/:room_id/report
// Per-member status and scores, plus the live countdown.
func (h *RoomHandler) Report(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	report, err := h.reportService.RoomReport(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		failServiceError(c, err)
		return
	}
	remaining, err := h.roomService.RemainingSeconds(c.Request.Context(), report.Room)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report, "remaining_seconds": remaining})
}

// StudentSheet godoc
// GET /api/v1/teacher/rooms/:room_id/students/:student_id/sheet
func (h *RoomHandler) StudentSheet(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	studentID, err := parseIntParam(c, "student_id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sheet, err := h.reportService.TeacherSheet(c.Request.Context(), claims.UserID, roomID, studentID)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sheet": sheet})
}
