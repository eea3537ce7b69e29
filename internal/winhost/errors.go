package winhost

import "errors"

// ErrEventSource is returned by Install when the service was created but
// its event log source could not be registered.
var ErrEventSource = errors.New("event log source not installed")
