package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"klunkaz/pkg/registry"
)

type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func SendAPIResponse(c *gin.Context, code int, success bool, message string, data any) {
	resp := APIResponse{
		Success:   success,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	c.JSON(code, resp)
}

// StatusFor maps a registry error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrSettlement):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// SendError answers with the status for err. Registry rejections carry their
// reason to the client, anything unexpected is reported generically.
func SendError(c *gin.Context, err error) {
	code := StatusFor(err)
	message := err.Error()
	switch code {
	case http.StatusInternalServerError:
		message = "internal server error"
	case http.StatusPaymentRequired:
		message = registry.ErrSettlement.Error()
	}
	_ = c.Error(err)
	SendAPIResponse(c, code, false, message, nil)
}
