package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizroomhq/quizroom-backend/internal/middleware"
	"github.com/quizroomhq/quizroom-backend/internal/model"
	"github.com/quizroomhq/quizroom-backend/internal/response"
	"github.com/quizroomhq/quizroom-backend/internal/service"
	"github.com/quizroomhq/quizroom-backend/internal/validator"
)

// StudentHandler handles student-side room and quiz endpoints.
type StudentHandler struct {
	roomService       *service.RoomService
	submissionService *service.SubmissionService
	reportService     *service.ReportService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(
	roomService *service.RoomService,
	submissionService *service.SubmissionService,
	reportService *service.ReportService,
) *StudentHandler {
	return &StudentHandler{
		roomService:       roomService,
		submissionService: submissionService,
		reportService:     reportService,
	}
}

// JoinRoom godoc
// POST /api/v1/student/rooms/join
// Joins the room behind a code. Joining twice is a no-op.
func (h *StudentHandler) JoinRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.JoinRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// ListRooms godoc
// GET /api/v1/student/rooms
// Lists the rooms the student has joined.
func (h *StudentHandler) ListRooms(c *gin.Context) {
	claims := middleware.GetClaims(c)

	rooms, err := h.roomService.ListJoined(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// TakeQuiz godoc
// GET /api/v1/student/rooms/:room_id/quiz
// Opens the quiz: the first successful call stamps the student's start
// time. An elapsed window finalizes the room and returns an expired
// session with HTTP 200, not an error.
func (h *StudentHandler) TakeQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	session, err := h.submissionService.TakeQuiz(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Submit godoc
// POST /api/v1/student/rooms/:room_id/submit
// Grades and records the answers. A late submission comes back with
// expired=true and a zero score recorded by the finalizer.
func (h *StudentHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.submissionService.Submit(c.Request.Context(), claims.UserID, roomID, req.Answers)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": outcome})
}

// Result godoc
// GET /api/v1/student/rooms/:room_id/result
func (h *StudentHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	result, err := h.submissionService.Result(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Sheet godoc
// GET /api/v1/student/rooms/:room_id/sheet
// The student's own graded answer sheet.
func (h *StudentHandler) Sheet(c *gin.Context) {
	claims := middleware.GetClaims(c)
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	sheet, err := h.submissionService.StudentSheet(c.Request.Context(), claims.UserID, roomID)
	if err != nil {
		failServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sheet": sheet})
}

// Overview godoc
// GET /api/v1/student/results
// Cross-room results overview for the student's dashboard.
func (h *StudentHandler) Overview(c *gin.Context) {
	claims := middleware.GetClaims(c)

	rows, err := h.reportService.StudentOverview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": rows})
}
