// Package observability builds the service's structured zap logger.
package observability
