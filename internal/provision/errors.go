package provision

// authError signals the SSH server rejected our credentials.
type authError struct{ msg string }

func (e authError) Error() string { return e.msg }

// ErrAuthFailure returns an error for rejected SSH credentials.
func ErrAuthFailure(msg string) error { return authError{msg: msg} }

// IsAuthFailure reports whether err indicates rejected SSH credentials.
func IsAuthFailure(err error) bool {
	_, ok := err.(authError)
	return ok
}

// unreachableError signals we could not reach the target host at all.
type unreachableError struct{ msg string }

func (e unreachableError) Error() string { return e.msg }

// ErrUnreachable returns an error for an unreachable target host.
func ErrUnreachable(msg string) error { return unreachableError{msg: msg} }

// IsUnreachable reports whether err indicates an unreachable target host.
func IsUnreachable(err error) bool {
	_, ok := err.(unreachableError)
	return ok
}

// remoteError signals the host was reachable but provisioning failed on it.
type remoteError struct{ msg string }

func (e remoteError) Error() string { return e.msg }

// ErrRemoteFailure returns an error for a failure on the target host.
func ErrRemoteFailure(msg string) error { return remoteError{msg: msg} }

// IsRemoteFailure reports whether err indicates a failure on the target.
func IsRemoteFailure(err error) bool {
	_, ok := err.(remoteError)
	return ok
}
