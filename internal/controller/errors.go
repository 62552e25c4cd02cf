package controller

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"campus-store/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrReviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrReviewExists),
		errors.Is(err, service.ErrDuplicateCheckout):
		return http.StatusConflict
	case errors.Is(err, service.ErrUpstreamAuth),
		errors.Is(err, service.ErrUpstreamRequest),
		errors.Is(err, service.ErrUpstreamRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// El middleware de auth deja userID e isAdmin en el contexto.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:  c.GetString("userID"),
		IsAdmin: c.GetBool("isAdmin"),
	}
}
