//go:build !linux && !darwin

package hotkey

// New reports ErrUnsupported; the tray and terminal UI still toggle sessions.
func New() (Manager, error) {
	return nil, ErrUnsupported
}
