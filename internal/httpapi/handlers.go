package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/usecase"
)

// bindOptionalJSON decodes the body into dst; an empty body leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.Wrap(domain.ErrValidation, "http", "decode body", err.Error(), nil)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ingest(c *gin.Context) {
	var req usecase.IngestRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.deps.Ingestor.Ingest(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) lifecycle(c *gin.Context) {
	var req usecase.LifecycleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.deps.Lifecycle.Apply(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) summarize(c *gin.Context) {
	var req usecase.SummarizeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.deps.Summarizer.Summarize(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) compose(c *gin.Context) {
	var req usecase.ComposeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.deps.Composer.Compose(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) send(c *gin.Context) {
	var req usecase.SendRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.deps.Distributor.Send(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		if result.TotalSubscribers > 0 {
			// Mail went out but the send record failed; report both.
			c.JSON(errorStatus(err), gin.H{"success": false, "error": err.Error(), "sent_count": result.SentCount,
				"total_subscribers": result.TotalSubscribers, "errors": result.Errors})
			return
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) runScheduler(c *gin.Context) {
	result, err := s.deps.Orchestrator.Run(c.Request.Context())
	s.respondRun(c, result, err)
}

func (s *Server) resumeScheduler(c *gin.Context) {
	var req struct {
		SummaryID string `json:"summaryId"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	if strings.TrimSpace(req.SummaryID) == "" {
		abortWithError(c, domain.Wrap(domain.ErrValidation, "http", "resume", "summaryId is required", nil))
		return
	}
	result, err := s.deps.Orchestrator.Resume(c.Request.Context(), req.SummaryID)
	s.respondRun(c, result, err)
}

// respondRun renders a run result as JSON, or as a page for browsers.
func (s *Server) respondRun(c *gin.Context, result usecase.RunResult, err error) {
	status := http.StatusOK
	if err != nil {
		status = errorStatus(err)
	}
	if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML {
		c.HTML(status, "run.html", runPage{SiteName: s.deps.SiteName, Result: result})
		return
	}
	c.JSON(status, result)
}

func (s *Server) signup(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	result, err := s.deps.Registry.Signup(c.Request.Context(), req.Email)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) confirm(c *gin.Context) {
	status, err := s.deps.Registry.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		s.logger.Error("confirmation failed", "error", err)
		c.HTML(http.StatusInternalServerError, "message.html", s.page("Something went wrong",
			"We could not confirm your subscription right now. Please try again later."))
		return
	}

	switch status {
	case usecase.ConfirmConfirmed:
		c.HTML(http.StatusOK, "message.html", s.page("Subscription confirmed",
			"Thanks! You will receive "+s.deps.SiteName+" in your inbox."))
	case usecase.ConfirmAlreadyConfirmed:
		c.HTML(http.StatusOK, "message.html", s.page("Already confirmed",
			"Your subscription was already confirmed. No further action is needed."))
	default:
		c.HTML(http.StatusBadRequest, "message.html", s.page("Invalid link",
			"This confirmation link is invalid or has expired."))
	}
}

func (s *Server) unsubscribe(c *gin.Context) {
	status, err := s.deps.Registry.Unsubscribe(c.Request.Context(), c.Query("token"))
	if err != nil {
		s.logger.Error("unsubscribe failed", "error", err)
		c.HTML(http.StatusInternalServerError, "message.html", s.page("Something went wrong",
			"We could not process your request right now. Please try again later."))
		return
	}

	if status == usecase.UnsubscribeDone {
		c.HTML(http.StatusOK, "message.html", s.page("You have been unsubscribed",
			"You will no longer receive "+s.deps.SiteName+". Sorry to see you go."))
		return
	}
	c.HTML(http.StatusBadRequest, "message.html", s.page("Invalid link",
		"This unsubscribe link is invalid."))
}
