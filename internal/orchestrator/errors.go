package orchestrator

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ host string }

func (e tooBusyError) Error() string { return "too busy: " + e.host }

// ErrTooBusy returns a backpressure error for the given host.
func ErrTooBusy(host string) error { return tooBusyError{host: host} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// modelNotFoundError signals a model id absent from the catalog.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error for a model id not present in the catalog.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// deploymentNotFoundError signals an unknown deployment id.
type deploymentNotFoundError struct{ id string }

func (e deploymentNotFoundError) Error() string { return "deployment not found: " + e.id }

// ErrDeploymentNotFound returns an error for an unknown deployment id.
func ErrDeploymentNotFound(id string) error { return deploymentNotFoundError{id: id} }

// IsDeploymentNotFound reports whether err indicates an unknown deployment.
func IsDeploymentNotFound(err error) bool {
	_, ok := err.(deploymentNotFoundError)
	return ok
}

// conflictError signals an api_name already held by an active deployment,
// or a terminate on an already-terminated deployment.
type conflictError struct{ msg string }

func (e conflictError) Error() string { return e.msg }

// ErrConflict returns a 409-mapped error with the given message.
func ErrConflict(msg string) error { return conflictError{msg: msg} }

// IsConflict reports whether err indicates a conflicting request (409).
func IsConflict(err error) bool {
	_, ok := err.(conflictError)
	return ok
}

// capacityError signals the host budget cannot fit the model even after
// eviction. Mapped to 429 like queue backpressure.
type capacityError struct{ host string }

func (e capacityError) Error() string { return "insufficient capacity on host: " + e.host }

// ErrCapacityExceeded returns an error for an exhausted host budget.
func ErrCapacityExceeded(host string) error { return capacityError{host: host} }

// IsCapacityExceeded reports whether err indicates an exhausted host budget.
func IsCapacityExceeded(err error) bool {
	_, ok := err.(capacityError)
	return ok
}
