package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizroomhq/quizroom-backend/internal/quiz"
	"github.com/quizroomhq/quizroom-backend/internal/response"
	"github.com/quizroomhq/quizroom-backend/internal/service"
)

// failServiceError maps service-layer errors onto HTTP statuses and error
// codes. Every handler funnels non-validation errors through here so the
// mapping stays in one place.
func failServiceError(c *gin.Context, err error) {
	var normErr *quiz.NormalizeError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
	case errors.Is(err, service.ErrRollRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrRollRequired)
	case errors.Is(err, service.ErrRoomNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotRoomOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNotRoomMember):
		response.Fail(c, http.StatusForbidden, response.ErrNotRoomMember)
	case errors.Is(err, service.ErrRoomClosed):
		response.Fail(c, http.StatusConflict, response.ErrRoomClosed)
	case errors.Is(err, service.ErrRoomCodeTaken):
		response.Fail(c, http.StatusConflict, response.ErrRoomCodeTaken)
	case errors.Is(err, service.ErrQuizNotAssigned):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotAssigned)
	case errors.Is(err, service.ErrQuizNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotStarted)
	case errors.Is(err, service.ErrQuizAlreadyStarted):
		response.Fail(c, http.StatusConflict, response.ErrQuizAlreadyStarted)
	case errors.Is(err, service.ErrQuizNotRunning):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotRunning)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrResultNotReady):
		response.Fail(c, http.StatusConflict, response.ErrResultNotReady)
	case errors.Is(err, service.ErrSheetNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSheetNotFound)
	case errors.As(err, &normErr):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuizJSON,
			map[string]string{"questions": normErr.Error()})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseIntParam reads a positive integer path param.
func parseIntParam(c *gin.Context, name string) (int, error) {
	return strconv.Atoi(c.Param(name))
}
