package chat

import (
	"errors"
	"net/http"

	"github.com/xhad/ragchat/pkg/backend"
)

const (
	NoAnswerText          = "I don't have an answer to that question."
	GenericErrorText      = "Sorry, something went wrong. Please try again."
	GatewayErrorText      = "The server is temporarily unavailable or the request took too long. Try again with a simpler question, or check that the backend is running."
	ConnectivityErrorText = "Cannot communicate with the server. Check your connection and that the backend is running."
	UploadErrorText       = "Error: Something went wrong while loading the file."
	UploadSuccessFormat   = "%s loaded successfully and is now queryable."
)

// queryFailureText picks the notice for a failed query: backend message
// first, then gateway, then connectivity, then the generic fallback.
func queryFailureText(err error) string {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return "Error: " + msg
		}
		if httpErr.StatusCode == http.StatusBadGateway {
			return GatewayErrorText
		}
		return GenericErrorText
	}

	var netErr *backend.NetworkError
	if errors.As(err, &netErr) {
		return ConnectivityErrorText
	}
	return GenericErrorText
}

func uploadFailureText(err error) string {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		if reason := httpErr.Reason(); reason != "" {
			return "Error: " + reason
		}
	}
	return UploadErrorText
}
