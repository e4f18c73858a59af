//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

extern void goHotkeyCallback(int pressed);

static EventHotKeyRef hotKeyRef = NULL;
static int handlerInstalled = 0;

static OSStatus hotkeyHandler(EventHandlerCallRef nextHandler, EventRef theEvent, void* userData) {
    UInt32 eventKind = GetEventKind(theEvent);
    int pressed = (eventKind == kEventHotKeyPressed) ? 1 : 0;

    goHotkeyCallback(pressed);

    return noErr;
}

static int registerHotkey(UInt32 keyCode, UInt32 modifiers) {
    if (!handlerInstalled) {
        EventTypeSpec eventTypes[2];
        eventTypes[0].eventClass = kEventClassKeyboard;
        eventTypes[0].eventKind = kEventHotKeyPressed;
        eventTypes[1].eventClass = kEventClassKeyboard;
        eventTypes[1].eventKind = kEventHotKeyReleased;

        EventHandlerUPP handlerUPP = NewEventHandlerUPP(hotkeyHandler);
        InstallApplicationEventHandler(handlerUPP, 2, eventTypes, NULL, NULL);
        handlerInstalled = 1;
    }

    EventHotKeyID hotKeyID;
    hotKeyID.signature = 'msk1';
    hotKeyID.id = 1;

    OSStatus status = RegisterEventHotKey(keyCode, modifiers, hotKeyID, GetApplicationEventTarget(), 0, &hotKeyRef);

    return (status == noErr) ? 1 : 0;
}

static void unregisterHotkey() {
    if (hotKeyRef != NULL) {
        UnregisterEventHotKey(hotKeyRef);
        hotKeyRef = NULL;
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// Carbon supports a single registered combination per manager here.
type darwinManager struct {
	mu       sync.Mutex
	accel    string
	callback func(bool)
}

var (
	globalMu      sync.Mutex
	globalManager *darwinManager
)

// New creates a new macOS hotkey manager using Carbon
func New() (Manager, error) {
	return &darwinManager{}, nil
}

//export goHotkeyCallback
func goHotkeyCallback(pressed C.int) {
	globalMu.Lock()
	m := globalManager
	globalMu.Unlock()
	if m == nil {
		return
	}

	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(pressed == 1)
	}
}

func (m *darwinManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}
	keyCode, ok := darwinKeyCodes[a.Key]
	if !ok {
		return fmt.Errorf("hotkey: unknown key %q", a.Key)
	}

	m.mu.Lock()
	if m.accel != "" {
		m.mu.Unlock()
		return fmt.Errorf("hotkey: %s already registered", m.accel)
	}
	m.accel = a.String()
	m.callback = callback
	m.mu.Unlock()

	globalMu.Lock()
	globalManager = m
	globalMu.Unlock()

	if C.registerHotkey(C.UInt32(keyCode), C.UInt32(carbonModifiers(a.Mods))) == 0 {
		m.mu.Lock()
		m.accel, m.callback = "", nil
		m.mu.Unlock()
		return fmt.Errorf("failed to register hotkey %s", a)
	}
	return nil
}

func (m *darwinManager) Unregister(accel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accel == "" {
		return nil
	}
	C.unregisterHotkey()
	m.accel, m.callback = "", nil
	return nil
}

func (m *darwinManager) Close() error {
	m.Unregister("")

	globalMu.Lock()
	if globalManager == m {
		globalManager = nil
	}
	globalMu.Unlock()
	return nil
}

func carbonModifiers(mods Modifier) uint32 {
	var out uint32
	if mods&ModSuper != 0 {
		out |= 0x100 // cmdKey
	}
	if mods&ModShift != 0 {
		out |= 0x200 // shiftKey
	}
	if mods&ModAlt != 0 {
		out |= 0x800 // optionKey
	}
	if mods&ModCtrl != 0 {
		out |= 0x1000 // controlKey
	}
	return out
}

// ANSI virtual key codes.
var darwinKeyCodes = map[string]uint32{
	"a": 0, "s": 1, "d": 2, "f": 3, "h": 4, "g": 5, "z": 6, "x": 7, "c": 8, "v": 9,
	"b": 11, "q": 12, "w": 13, "e": 14, "r": 15, "y": 16, "t": 17,
	"1": 18, "2": 19, "3": 20, "4": 21, "6": 22, "5": 23, "9": 25, "7": 26, "8": 28, "0": 29,
	"o": 31, "u": 32, "i": 34, "p": 35, "l": 37, "j": 38, "k": 40, "n": 45, "m": 46,
	"enter": 36, "return": 36, "tab": 48, "space": 49, "backspace": 51, "esc": 53, "escape": 53,
	"f1": 122, "f2": 120, "f3": 99, "f4": 118, "f5": 96, "f6": 97,
	"f7": 98, "f8": 100, "f9": 101, "f10": 109, "f11": 103, "f12": 111,
}
