package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/gistflow/internal/domain/studyguide"
	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var statusByCode = map[string]int{
	studyguide.CodeInvalidInput:       http.StatusBadRequest,
	studyguide.CodeMissingCredentials: http.StatusServiceUnavailable,
	studyguide.CodeLLMAuth:            http.StatusBadGateway,
	studyguide.CodeLLMQuota:           http.StatusBadGateway,
	studyguide.CodeLLMRateLimited:     http.StatusTooManyRequests,
	studyguide.CodeLLMServer:          http.StatusBadGateway,
	studyguide.CodeLLMNoResponse:      http.StatusGatewayTimeout,
	studyguide.CodeLLMError:           http.StatusBadGateway,
	studyguide.CodeExportFailed:       http.StatusInternalServerError,
}

// fromDomainError keeps the domain code and user facing message and picks
// the matching status.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return &HTTPError{
			Status:  http.StatusInternalServerError,
			Code:    "internal_error",
			Message: "something went wrong",
			Err:     err,
		}
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
