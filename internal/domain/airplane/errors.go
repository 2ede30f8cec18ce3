package airplane

import "errors"

var (
	// ErrShellUnavailable means the privileged shell could not be started.
	ErrShellUnavailable = errors.New("privileged shell unavailable")
	// ErrSessionClosed means the privileged shell exited or was closed.
	ErrSessionClosed = errors.New("privileged session closed")
	// ErrSettingNotFound means the settings store has no value for a key.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrPermissionDenied means the elevated settings write was rejected.
	ErrPermissionDenied = errors.New("permission denied")
)
