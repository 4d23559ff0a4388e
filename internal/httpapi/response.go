package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/docwatch/internal/paging"
	"github.com/Leganyst/docwatch/internal/service"
)

// envelope is the body of every response.
type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondPage[T, U any](c *gin.Context, message string, page paging.Page[T], fn func(T) U) {
	mapped := paging.Map(page, fn)
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: message,
		Data:    mapped.Items,
		Pagination: &pagination{
			Page:       mapped.Page,
			Limit:      mapped.Limit,
			Total:      mapped.Total,
			TotalPages: mapped.TotalPages,
			HasNext:    mapped.HasNext,
			HasPrev:    mapped.HasPrev,
		},
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// statusFor maps service error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Server errors carry a generic message in
// production and the wrapped error text otherwise.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		fail(c, status, service.Reason(err))
		return
	}
	s.logger.Error("http.handler.failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	_ = c.Error(err)
	if s.production {
		fail(c, status, "internal server error")
		return
	}
	fail(c, status, err.Error())
}
