package optimize

import "fmt"

// OptimizationFailedError reports a structural inconsistency an optimizer
// pass cannot safely proceed past, such as a call naming a word absent from
// the program.  Policy decisions that merely decline to transform something
// are not failures.
type OptimizationFailedError struct {
	Pass    string
	Message string
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization failed in %s pass: %s", e.Pass, e.Message)
}

func failf(pass, format string, args ...interface{}) error {
	return &OptimizationFailedError{Pass: pass, Message: fmt.Sprintf(format, args...)}
}
