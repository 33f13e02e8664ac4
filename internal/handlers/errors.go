package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/raterly/backend/internal/services"
	"github.com/raterly/backend/pkg/response"
)

// serviceError maps the service error taxonomy onto HTTP responses.
func serviceError(c *gin.Context, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		blocked    *services.BlockedContentError
		abuse      *services.AbuseGateError
	)
	switch {
	case errors.As(err, &validation):
		response.BadRequest(c, validation.Error())
	case errors.As(err, &notFound):
		response.NotFound(c, notFound.Error())
	case errors.As(err, &blocked):
		response.Unprocessable(c, blocked.Error())
	case errors.As(err, &abuse):
		response.Unprocessable(c, abuse.Error())
	default:
		response.ServerError(c, err.Error())
	}
}
