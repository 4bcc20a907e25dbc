package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
	generationdomain "github.com/textcraft/creditgate/internal/generation/domain"
	obsmiddleware "github.com/textcraft/creditgate/internal/observability/logger"
	"go.uber.org/zap"
)

type generateRequest struct {
	Model       string          `json:"model"`
	Contents    json.RawMessage `json:"contents"`
	Config      json.RawMessage `json:"config"`
	PrepaidCode string          `json:"prepaidCode"`
}

type generateResponse struct {
	Text      string `json:"text"`
	Remaining *int   `json:"remaining,omitempty"`
}

// Generate proxies one completion to the upstream provider. When the caller
// presents a prepaid code the debit happens after the upstream call
// succeeds, so a failed generation never consumes credit.
func (s *Server) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Model) == "" || len(req.Contents) == 0 {
		AbortWithError(c, newValidationError("request", "invalid_request", `request must include "model" and "contents"`))
		return
	}

	ctx := c.Request.Context()
	code := strings.TrimSpace(req.PrepaidCode)

	if code != "" {
		if _, err := s.codeSvc.Validate(ctx, codedomain.ValidateCodeRequest{Code: code}); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.generationSvc.Generate(ctx, generationdomain.GenerateRequest{
		Model:    req.Model,
		Contents: req.Contents,
		Config:   req.Config,
	})
	if err != nil {
		s.recordGeneration(c, "error")
		AbortWithError(c, err)
		return
	}
	s.recordGeneration(c, "ok")

	out := generateResponse{Text: resp.Text}
	if code != "" {
		debited, err := s.codeSvc.Debit(ctx, codedomain.DebitCodeRequest{Code: code})
		if err != nil {
			// The generation already happened; losing the debit race is
			// absorbed rather than charged back to the caller.
			s.recordDebit(c, "error")
			obsmiddleware.FromContext(ctx).Warn("debit after generation failed",
				zap.String("code", code),
				zap.Error(err),
			)
		} else {
			s.recordDebit(c, "ok")
			remaining := debited.Remaining
			out.Remaining = &remaining
		}
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) recordGeneration(c *gin.Context, result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordGeneration(c.Request.Context(), result)
	}
}

func (s *Server) recordDebit(c *gin.Context, result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordDebit(c.Request.Context(), result)
	}
}
