package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduquizhq/eduquiz-api/internal/service"
	appErrors "github.com/eduquizhq/eduquiz-api/pkg/errors"
	"github.com/eduquizhq/eduquiz-api/pkg/response"
)

// AttemptHandler exposes the quiz attempt lifecycle: start, submit,
// retrieve, list, and teacher-side result export.
type AttemptHandler struct {
	attempts *service.AttemptService
}

// NewAttemptHandler constructs handler.
func NewAttemptHandler(attempts *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// Start godoc
// @Summary Start a quiz attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Param payload body service.StartAttemptRequest true "Attempt payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attempts/start [post]
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.attempts.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Submit godoc
// @Summary Submit answers for an attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body service.SubmitAttemptRequest true "Answers payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.attempts.Submit(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Get an attempt
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attempts/{id} [get]
func (h *AttemptHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attempt, err := h.attempts.Get(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

// ListMineByQuiz godoc
// @Summary List the caller's attempts at a quiz
// @Tags Attempts
// @Produce json
// @Param quizId path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Router /attempts/my/quiz/{quizId} [get]
func (h *AttemptHandler) ListMineByQuiz(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attempts, err := h.attempts.ListMineByQuiz(c.Request.Context(), claims.UserID, c.Param("quizId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// ListMineByModule godoc
// @Summary List the caller's attempts in a module
// @Tags Attempts
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /attempts/my/module/{moduleId} [get]
func (h *AttemptHandler) ListMineByModule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attempts, err := h.attempts.ListMineByModule(c.Request.Context(), claims.UserID, c.Param("moduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// ResultsByQuiz godoc
// @Summary List submitted attempts at a quiz
// @Tags Attempts
// @Produce json
// @Param quizId path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Router /attempts/results/quiz/{quizId} [get]
func (h *AttemptHandler) ResultsByQuiz(c *gin.Context) {
	attempts, err := h.attempts.ListSubmittedByQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// ResultsByModule godoc
// @Summary List submitted attempts in a module
// @Tags Attempts
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /attempts/results/module/{moduleId} [get]
func (h *AttemptHandler) ResultsByModule(c *gin.Context) {
	attempts, err := h.attempts.ListSubmittedByModule(c.Request.Context(), c.Param("moduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// ExportResults godoc
// @Summary Download submitted quiz results as CSV or PDF
// @Tags Attempts
// @Produce octet-stream
// @Param quizId path string true "Quiz ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /attempts/results/quiz/{quizId}/export [get]
func (h *AttemptHandler) ExportResults(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	out, err := h.attempts.ExportResults(c.Request.Context(), c.Param("quizId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Content)
}
