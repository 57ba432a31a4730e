package constants

import "github.com/go-playground/validator/v10"

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	RequestIDKey ContextKey = "requestID"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X .../pkg/constants.Version=...".
var Version = "1.0.0"

const ServiceName = "Cloud Optimization Dashboard"
