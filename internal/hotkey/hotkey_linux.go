//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/XKBlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;

static int openDisplay() {
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
        if (displayPtr != NULL) {
            // Held keys repeat as KeyPress only, without synthetic releases
            XkbSetDetectableAutoRepeat(displayPtr, True, NULL);
        }
    }
    return displayPtr != NULL;
}

static int keycodeFor(const char* name) {
    if (!openDisplay()) return 0;
    KeySym sym = XStringToKeysym(name);
    if (sym == NoSymbol) return 0;
    return XKeysymToKeycode(displayPtr, sym);
}

static int grabKey(int keycode, unsigned int modifiers) {
    if (!openDisplay()) return 0;

    Window root = DefaultRootWindow(displayPtr);
    // Also grab with NumLock (Mod2) and CapsLock so the combo fires regardless
    unsigned int extra[4] = {0, Mod2Mask, LockMask, Mod2Mask | LockMask};
    for (int i = 0; i < 4; i++) {
        XGrabKey(displayPtr, keycode, modifiers | extra[i], root, False, GrabModeAsync, GrabModeAsync);
    }
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);
    return 1;
}

static void ungrabKey(int keycode, unsigned int modifiers) {
    if (displayPtr == NULL) return;

    Window root = DefaultRootWindow(displayPtr);
    unsigned int extra[4] = {0, Mod2Mask, LockMask, Mod2Mask | LockMask};
    for (int i = 0; i < 4; i++) {
        XUngrabKey(displayPtr, keycode, modifiers | extra[i], root);
    }
    XSync(displayPtr, False);
}

static int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unsafe"
)

type grab struct {
	keycode   int
	modifiers uint
	callback  func(bool)
}

type linuxManager struct {
	mu    sync.Mutex
	grabs map[string]grab
	stop  chan struct{}
	once  sync.Once
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	mgr := &linuxManager{
		grabs: make(map[string]grab),
		stop:  make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	name := C.CString(x11KeyName(a.Key))
	defer C.free(unsafe.Pointer(name))

	keycode := int(C.keycodeFor(name))
	if keycode == 0 {
		return fmt.Errorf("hotkey: unknown key %q", a.Key)
	}
	modifiers := x11Modifiers(a.Mods)

	if C.grabKey(C.int(keycode), C.uint(modifiers)) == 0 {
		return fmt.Errorf("failed to grab key %s", a)
	}

	m.mu.Lock()
	m.grabs[a.String()] = grab{keycode: keycode, modifiers: modifiers, callback: callback}
	m.mu.Unlock()
	return nil
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			if C.checkEvent(&keycode, &pressed) == 0 {
				continue
			}
			m.mu.Lock()
			var cbs []func(bool)
			for _, g := range m.grabs {
				if g.keycode == int(keycode) {
					cbs = append(cbs, g.callback)
				}
			}
			m.mu.Unlock()
			for _, cb := range cbs {
				cb(pressed == 1)
			}
		}
	}
}

func (m *linuxManager) Unregister(accel string) error {
	a, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	g, ok := m.grabs[a.String()]
	delete(m.grabs, a.String())
	m.mu.Unlock()

	if ok {
		C.ungrabKey(C.int(g.keycode), C.uint(g.modifiers))
	}
	return nil
}

func (m *linuxManager) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func x11Modifiers(mods Modifier) uint {
	var out uint
	if mods&ModShift != 0 {
		out |= 1 // ShiftMask
	}
	if mods&ModCtrl != 0 {
		out |= 4 // ControlMask
	}
	if mods&ModAlt != 0 {
		out |= 8 // Mod1Mask
	}
	if mods&ModSuper != 0 {
		out |= 64 // Mod4Mask
	}
	return out
}

func x11KeyName(key string) string {
	switch key {
	case "enter", "return":
		return "Return"
	case "esc", "escape":
		return "Escape"
	case "tab":
		return "Tab"
	case "backspace":
		return "BackSpace"
	}
	if len(key) > 1 && key[0] == 'f' && strings.Trim(key[1:], "0123456789") == "" {
		return "F" + key[1:]
	}
	return key
}
