package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	apperrors "github.com/jrsteele09/go-oidc-provider/internal/errors"
	"github.com/jrsteele09/go-oidc-provider/internal/metrics"
	"github.com/rs/zerolog/hlog"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Stack   string `json:"stack,omitempty"` // only outside PROD
}

// writeError is the only place errors are turned into responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperrors.From(err)
	metrics.Errors.WithLabelValues(string(e.Code)).Inc()

	logger := hlog.FromRequest(r)
	if e.Status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", string(e.Code)).Msg("request failed")
	} else {
		logger.Debug().Str("code", string(e.Code)).Msg(e.Message)
	}

	body := ErrorResponse{Error: string(e.Code), Message: e.Message, Status: e.Status}
	if !s.config.IsProduction() && e.Err != nil {
		body.Stack = fmt.Sprintf("%+v", e.Err)
	}
	render.Status(r, e.Status)
	render.JSON(w, r, body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
