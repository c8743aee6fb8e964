package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrEmptyUserID  = errors.New("user_id must not be empty")
)

type ErrorResponse struct {
	Error string `json:"error" description:"Error message"`
	Code  int    `json:"code" description:"HTTP status code"`
}

func HandleError(resp *restful.Response, err error, code int) {
	resp.WriteHeaderAndEntity(code, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

// Logger logs every request with method, path, status and duration.
func Logger(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)

	log.Info().
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Request handled")
}

// RecoverPanic turns handler panics into 500 responses.
func RecoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("path", req.Request.URL.Path).
				Msg("Handler panicked")
			HandleError(resp, errors.New("internal server error"), http.StatusInternalServerError)
		}
	}()

	chain.ProcessFilter(req, resp)
}
