package types

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed      bool   // whether the request is admitted
	Remaining    int64  // quota left in the current window
	RetryAfterMs int64  // suggested retry delay (milliseconds)
	Reason       string // machine-readable outcome reason
	Err          error  // underlying error, if any
}
