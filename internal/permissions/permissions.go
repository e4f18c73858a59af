package permissions

import "errors"

// ErrMicrophoneDenied means audio capture is not authorized for this process.
var ErrMicrophoneDenied = errors.New("permissions: microphone access not granted")
