package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Backend config
	if c.Backend.URL != "" {
		if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "backend.url",
				Message: "invalid backend URL",
			})
		}
	} else if c.Backend.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.host",
			Message: "backend host is required",
		})
	}

	if c.Backend.Scheme != "http" && c.Backend.Scheme != "https" {
		errors = append(errors, ValidationError{
			Field:   "backend.scheme",
			Message: "scheme must be http or https",
		})
	}

	if c.Backend.Port < 1 || c.Backend.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "backend.port",
			Message: "port must be between 1 and 65535",
		})
	}

	endpoints := []struct{ field, value string }{
		{"backend.chat_endpoint", c.Backend.ChatEndpoint},
		{"backend.load_endpoint", c.Backend.LoadEndpoint},
	}
	for _, ep := range endpoints {
		if !strings.HasPrefix(ep.value, "/") {
			errors = append(errors, ValidationError{
				Field:   ep.field,
				Message: fmt.Sprintf("endpoint must start with '/': %q", ep.value),
			})
		}
	}

	if c.Backend.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.timeout",
			Message: "timeout must be positive",
		})
	}

	// Validate Log config
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown log level: %s", c.Log.Level),
		})
	}

	// Validate Server config
	if c.Server.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Server.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.burst",
			Message: "burst must be positive",
		})
	}

	if c.UI.AcceptExtension != "" && !strings.HasPrefix(c.UI.AcceptExtension, ".") {
		errors = append(errors, ValidationError{
			Field:   "ui.accept_extension",
			Message: fmt.Sprintf("invalid extension format: %s", c.UI.AcceptExtension),
		})
	}

	return errors
}
