package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/coffee-shop/services"
	"github.com/upb/coffee-shop/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	message := ""
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteUnprocessable(w, utils.MessageUnprocessable, services.GetErrorDetails(err))

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message)

	case services.IsInternalError(err):
		// Internal details never reach the client
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w)
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}

	if domainErr != nil {
		logger.Debug("handled service error",
			zap.String("type", string(domainErr.Type)),
			zap.String("message", domainErr.Message),
			zap.Any("details", domainErr.Details))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var details map[string]interface{}
	if fields := utils.GetValidationFields(err); fields != nil {
		details = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
	}

	if err := utils.WriteUnprocessable(w, utils.MessageUnprocessable, details); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
