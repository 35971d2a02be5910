package spending

import "errors"

var (
	ErrUnauthorized          = errors.New("spending: unauthorized")
	ErrInvalidAddress        = errors.New("spending: invalid address")
	ErrInvalidAmount         = errors.New("spending: invalid amount")
	ErrInvalidCategory       = errors.New("spending: invalid category")
	ErrMerchantAlreadyExists = errors.New("spending: merchant already exists")
	ErrMerchantNotActive     = errors.New("spending: merchant not active")
	ErrNotWhitelisted        = errors.New("spending: recipient not whitelisted")
	ErrInsufficientAllowance = errors.New("spending: insufficient category allowance")
	ErrDailyLimitExceeded    = errors.New("spending: daily limit exceeded")
	ErrInsufficientBalance   = errors.New("spending: insufficient balance")
	ErrControllerNotSet      = errors.New("spending: controller account not designated")
)

// IsPolicyRejection reports whether the error is an expected spend rejection
// rather than an internal failure. Rejections leave the durable audit trail
// the fraud-review pipeline consumes; internal failures do not.
func IsPolicyRejection(err error) bool {
	for _, candidate := range []error{
		ErrInvalidAmount,
		ErrMerchantNotActive,
		ErrNotWhitelisted,
		ErrInsufficientAllowance,
		ErrDailyLimitExceeded,
		ErrInsufficientBalance,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
