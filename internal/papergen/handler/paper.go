// Package handler exposes the paper-generation service over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/papergen/internal/papergen/biz"
	"github.com/kart-io/papergen/internal/papergen/store"
)

// Response is the uniform envelope for all endpoints.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaperHandler handles paper endpoints.
type PaperHandler struct {
	svc biz.PaperService
}

// NewPaperHandler creates a PaperHandler.
func NewPaperHandler(svc biz.PaperService) *PaperHandler {
	return &PaperHandler{svc: svc}
}

type generateRequest struct {
	Seed int64 `json:"seed"`
}

// Generate runs a full generation. A partial paper (slots dropped after
// drafting failures) is still a success response; the run report carries
// the failures.
func (h *PaperHandler) Generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	paper, err := h.svc.GeneratePaper(c.Request.Context(), req.Seed)
	if err != nil {
		logger.Errorw("paper generation failed", "error", err)
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: paper})
}

// Get fetches a persisted paper by id.
func (h *PaperHandler) Get(c *gin.Context) {
	paper, err := h.svc.GetPaper(c.Request.Context(), c.Param("id"))
	if err != nil {
		paperError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: paper})
}

// Coverage fetches a paper's coverage report.
func (h *PaperHandler) Coverage(c *gin.Context) {
	report, err := h.svc.GetCoverage(c.Request.Context(), c.Param("id"))
	if err != nil {
		paperError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: report})
}

// Review runs the quality-review pass over a persisted paper.
func (h *PaperHandler) Review(c *gin.Context) {
	paper, report, err := h.svc.ReviewPaper(c.Request.Context(), c.Param("id"))
	if err != nil {
		paperError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: gin.H{
		"paper":  paper,
		"review": report,
	}})
}

type reviseRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

// Revise redrafts one question from reviewer feedback. A failed revision
// still returns 200: the question comes back unrevised with the error
// annotated on it.
func (h *PaperHandler) Revise(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		badRequest(c, "question number must be an integer")
		return
	}

	var req reviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "feedback is required")
		return
	}

	question, err := h.svc.ReviseQuestion(c.Request.Context(), c.Param("id"), number, req.Feedback)
	if err != nil {
		paperError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: question})
}

// Revisions lists a paper's revision history.
func (h *PaperHandler) Revisions(c *gin.Context) {
	recs, err := h.svc.ListRevisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		paperError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: recs})
}

// Health reports liveness.
func (h *PaperHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: msg})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: err.Error()})
}

func paperError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrPaperNotFound) {
		c.JSON(http.StatusNotFound, Response{Code: http.StatusNotFound, Message: err.Error()})
		return
	}
	internalError(c, err)
}
