package domain

import "errors"

var (
	ErrPayrollNotFound         = errors.New("payroll_not_found")
	ErrConcurrentModification  = errors.New("concurrent_modification")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrRecipientSumMismatch    = errors.New("recipient_sum_mismatch")
	ErrNoRecipients            = errors.New("no_recipients")
	ErrFundingExceedsTotal     = errors.New("funding_exceeds_total")
	ErrOperationInFlight       = errors.New("operation_in_flight")
	ErrNotFullyFunded          = errors.New("not_fully_funded")
	ErrNoFundsAvailable        = errors.New("no_funds_available")
	ErrNoUnpaidRecipients      = errors.New("no_unpaid_recipients")
	ErrUnknownRecipient        = errors.New("unknown_recipient")
	ErrNotCancellable          = errors.New("not_cancellable")
	ErrNotTerminal             = errors.New("not_terminal")
	ErrAlreadyArchived         = errors.New("already_archived")
)

// IsInvariantViolation reports whether err is a business-rule rejection that
// must be raised synchronously with no state written and no version bump.
func IsInvariantViolation(err error) bool {
	for _, target := range []error{
		ErrInvalidTransition,
		ErrInvalidAmount,
		ErrRecipientSumMismatch,
		ErrNoRecipients,
		ErrFundingExceedsTotal,
		ErrNotFullyFunded,
		ErrNoFundsAvailable,
		ErrNoUnpaidRecipients,
		ErrUnknownRecipient,
		ErrNotCancellable,
		ErrNotTerminal,
		ErrAlreadyArchived,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
