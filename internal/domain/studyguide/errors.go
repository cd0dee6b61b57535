package studyguide

import (
	"context"
	"errors"
	"net/http"

	"github.com/yanqian/gistflow/internal/infra/llm/openrouter"
	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

// Error codes surfaced to callers.
const (
	CodeInvalidInput       = "invalid_input"
	CodeMissingCredentials = "missing_credentials"
	CodeLLMAuth            = "llm_auth_failed"
	CodeLLMQuota           = "llm_quota_exceeded"
	CodeLLMRateLimited     = "llm_rate_limited"
	CodeLLMServer          = "llm_server_error"
	CodeLLMNoResponse      = "llm_no_response"
	CodeLLMError           = "llm_error"
	CodeExportFailed       = "export_failed"
)

// classifyLLMError maps a collaborator failure to a user facing category,
// keeping the transport error as the cause.
func classifyLLMError(err error) error {
	if errors.Is(err, openrouter.ErrMissingAPIKey) {
		return apperrors.Wrap(CodeMissingCredentials, "LLM API key is not configured", err)
	}
	if errors.Is(err, openrouter.ErrNoResponse) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(CodeLLMNoResponse, "No response received from the LLM provider - check your internet connection", err)
	}

	var statusErr *openrouter.StatusError
	if !errors.As(err, &statusErr) {
		return apperrors.Wrap(CodeLLMError, "LLM request failed", err)
	}
	switch code := statusErr.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.Wrap(CodeLLMAuth, "Authentication failed - invalid API key", err)
	case code == http.StatusPaymentRequired:
		return apperrors.Wrap(CodeLLMQuota, "Payment required - check your account balance", err)
	case code == http.StatusTooManyRequests:
		return apperrors.Wrap(CodeLLMRateLimited, "Rate limit exceeded - please try again later", err)
	case code >= http.StatusInternalServerError:
		return apperrors.Wrap(CodeLLMServer, "LLM provider server error - please try again later", err)
	default:
		return apperrors.Wrap(CodeLLMError, "LLM request failed", err)
	}
}
