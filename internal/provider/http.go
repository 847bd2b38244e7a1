package provider

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/raine/room-design-studio/internal/design"
)

// handleError turns transport errors and failing responses (>399 status
// code) into errors. Resty reports failing responses with a nil error.
// apiMessage is the message decoded from the provider's error body, if any.
func handleError(provider string, res *resty.Response, err error, apiMessage string) error {
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	if res.IsError() {
		msg := apiMessage
		if msg == "" {
			msg = fmt.Sprintf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
		}
		return &design.ProviderError{Stage: "image", Provider: provider, Message: msg}
	}
	return nil
}
