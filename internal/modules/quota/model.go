package quota

import "errors"

// ErrQuotaExceeded is returned when an owner has no generations left this month.
var ErrQuotaExceeded = errors.New("monthly generation quota exceeded")

// DefaultAllowance is the number of generations granted per month.
const DefaultAllowance = 30
