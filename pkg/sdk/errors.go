package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes the service returns in the "error" field.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeTwoFactorRequired  = "two_factor_required"
	ErrorCodeInvalidGrant       = "invalid_grant"
	ErrorCodeServerError        = "server_error"
)

// APIError is an error response from the service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsTwoFactorRequired reports whether err is the service asking for a
// one-time code.
func IsTwoFactorRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == ErrorCodeTwoFactorRequired
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ErrorCodeServerError
		apiErr.Description = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return apiErr
}
