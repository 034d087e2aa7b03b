package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dopamine-dashboard/internal/domain"
)

type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeError maps domain errors onto HTTP statuses. Unclassified errors are logged
// and reported without detail.
func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, errorBody) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		body := errorBody{Message: ve.Message, Error: "VALIDATION_ERROR"}
		if len(ve.Fields) > 0 {
			body.Fields = make(map[string]string, len(ve.Fields))
			for _, f := range ve.Fields {
				body.Fields[f.Field] = f.Message
			}
		}
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: err.Error(), Error: "NOT_FOUND"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Message: err.Error(), Error: "UNAUTHORIZED"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorBody{Message: err.Error(), Error: "FORBIDDEN"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorBody{Message: err.Error(), Error: "CONFLICT"}
	default:
		return http.StatusInternalServerError, errorBody{Message: "internal server error", Error: "INTERNAL"}
	}
}

// bindJSON decodes the request body, reporting malformed JSON as a validation error.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}
