package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
)

type checkCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) CheckCode(c *gin.Context) {
	var req checkCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "code is required"))
		return
	}

	resp, err := s.codeSvc.Validate(c.Request.Context(), codedomain.ValidateCodeRequest{Code: req.Code})
	if err != nil {
		// Lookups report an unusable code as absent rather than explaining
		// which way it is unusable.
		switch {
		case errors.Is(err, codedomain.ErrCodeNotFound),
			errors.Is(err, codedomain.ErrCodeExpired),
			errors.Is(err, codedomain.ErrCodeExhausted):
			AbortWithError(c, markNotFound(err))
		default:
			AbortWithError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
