package hotkey

import "errors"

var ErrUnsupported = errors.New("hotkey: global hotkeys not supported on this platform")

// Manager grabs session toggle accelerators such as "Alt+Space" system-wide.
// The callback fires with pressed=true on key down and false on key up, on
// the manager's event goroutine, so it must not block. Unregistering an
// accelerator that is not held is a no-op.
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}
