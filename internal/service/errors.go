package service

import "errors"

var (
	// ErrMissingV2 is returned when a submission arrives without a v2 code.
	ErrMissingV2 = errors.New("v2 is required")
	// ErrMoreThanOneRecord is raised when a cascade step finds several
	// candidates; the coordinator converts it into the create-new path
	// instead of guessing between them.
	ErrMoreThanOneRecord = errors.New("more than one record found")
	// ErrAlreadyRegistered reports a v3/v2 uniqueness violation at insert
	// time: another writer won the race between match and persist.
	ErrAlreadyRegistered = errors.New("document already registered")
	// ErrRegistration covers every other storage failure during persist;
	// the transaction is rolled back in full.
	ErrRegistration = errors.New("registration failed")
	// ErrGenerator is returned when the identifier generator itself fails.
	ErrGenerator = errors.New("v3 generator failed")
)

// exceptionType maps an error to the stable kind string reported in results.
func exceptionType(err error) string {
	switch {
	case errors.Is(err, ErrMissingV2):
		return "missing_required_field"
	case errors.Is(err, ErrMoreThanOneRecord):
		return "ambiguous_match"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrGenerator):
		return "generator_failure"
	default:
		return "storage_failure"
	}
}
