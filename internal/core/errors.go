package core

import "fmt"

// ValidationError reports rejected template or connection input. The
// caller re-prompts; nothing was written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// DecryptionError reports ciphertext that is corrupt or was encrypted
// under a different key.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string { return "decryption failed: " + e.Err.Error() }
func (e *DecryptionError) Unwrap() error { return e.Err }

// CredentialError reports that a stored credential could not be
// recovered for use; execution is blocked until an admin re-enters it.
type CredentialError struct {
	ConnectionName string
	Err            error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential for connection %q unusable: %v", e.ConnectionName, e.Err)
}
func (e *CredentialError) Unwrap() error { return e.Err }

// ConnectionNotFound reports a template whose target connection no
// longer exists.
type ConnectionNotFound struct {
	ConnectionID int64
}

func (e *ConnectionNotFound) Error() string {
	return fmt.Sprintf("connection %d not found", e.ConnectionID)
}

// ConnectionFailed reports a network or authentication failure
// reaching the target engine. Not retried; the caller may retry.
type ConnectionFailed struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionFailed) Error() string {
	return fmt.Sprintf("failed to connect to %s:%d: %v", e.Host, e.Port, e.Err)
}
func (e *ConnectionFailed) Unwrap() error { return e.Err }

// MissingParameterError reports a declared parameter with no supplied
// value.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter: %s", e.Name)
}

// ParameterError reports supplied parameter values that cannot be
// bound (missing or unconvertible to the declared type).
type ParameterError struct {
	Err error
}

func (e *ParameterError) Error() string { return "parameter error: " + e.Err.Error() }
func (e *ParameterError) Unwrap() error { return e.Err }

// DriverError reports that the target engine rejected the bound
// statement. The driver's message is passed through verbatim.
type DriverError struct {
	Err error
}

func (e *DriverError) Error() string { return "driver error: " + e.Err.Error() }
func (e *DriverError) Unwrap() error { return e.Err }

// AuthorizationError reports an actor whose role is not authorized for
// the requested template.
type AuthorizationError struct {
	Actor    string
	Template string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s is not authorized to execute %q", e.Actor, e.Template)
}
