package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	employeedomain "github.com/stellapay/stellapay/internal/employee/domain"
	payrolldomain "github.com/stellapay/stellapay/internal/payroll/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, payrolldomain.ErrConcurrentModification):
		return http.StatusConflict, errorPayload{
			Type:    "concurrent_modification",
			Message: "payroll was modified concurrently, refetch and retry",
		}
	case errors.Is(err, payrolldomain.ErrOperationInFlight):
		return http.StatusConflict, errorPayload{
			Type:    "operation_in_flight",
			Message: "another settlement operation is pending on this payroll",
		}
	case errors.Is(err, employeedomain.ErrDuplicateWallet):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "wallet address already registered for this employer",
		}
	case payrolldomain.IsInvariantViolation(err),
		errors.Is(err, employeedomain.ErrInvalidSalary),
		errors.Is(err, employeedomain.ErrMissingWallet),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "request",
					Code:    errorCode(err),
					Message: err.Error(),
				},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, payrolldomain.ErrPayrollNotFound),
		errors.Is(err, employeedomain.ErrEmployeeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func errorCode(err error) string {
	for _, target := range []error{
		payrolldomain.ErrInvalidTransition,
		payrolldomain.ErrInvalidAmount,
		payrolldomain.ErrRecipientSumMismatch,
		payrolldomain.ErrNoRecipients,
		payrolldomain.ErrFundingExceedsTotal,
		payrolldomain.ErrNotFullyFunded,
		payrolldomain.ErrNoFundsAvailable,
		payrolldomain.ErrNoUnpaidRecipients,
		payrolldomain.ErrUnknownRecipient,
		payrolldomain.ErrNotCancellable,
		payrolldomain.ErrNotTerminal,
		payrolldomain.ErrAlreadyArchived,
		employeedomain.ErrInvalidSalary,
		employeedomain.ErrMissingWallet,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid_request"
}

// classifyErrorForLog feeds the request logger an error family and code
// without leaking stack detail into access logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	family := "client_error"
	if status >= http.StatusInternalServerError {
		family = "server_error"
	}
	return family, payload.Type
}
