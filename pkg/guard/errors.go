package guard

import "errors"

// Mitigation action errors. Neither is fatal: a clear failure still
// opens the notification so the user is informed, a restore failure
// keeps the surface mitigated until the episode resolves.
var (
	ErrClearFailure   = errors.New("clear could not be confirmed")
	ErrRestoreFailure = errors.New("restore could not be confirmed")
)
