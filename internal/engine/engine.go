package engine

import "errors"

// Engine is the call surface of the native audio/identification engine.
//
// Lifecycle calls (Create*/Delete*/InitIdentify/StartPlay/StopPlay) are only
// ever issued by the session controller. The Mask* readers are side-effect
// free and safe to call at any time, including while no session is active.
type Engine interface {
	// ProbeRecording reports whether capture is supported on this device.
	ProbeRecording() bool

	CreateEngine(sampleRate, frameSize int) error
	DeleteEngine()

	CreatePlayer() error
	DeletePlayer()

	CreateRecorder() error
	DeleteRecorder()

	InitIdentify(workDir string) error
	DeleteIdentify()

	StartPlay() error
	StopPlay()

	MaskText() string
	MaskStatus() Status
	// MaskTime returns the elapsed detection time in milliseconds.
	MaskTime() int
}

// ParamQuerier is implemented by engines that can report the device's
// native sample rate and frames per buffer.
type ParamQuerier interface {
	NativeParams() (sampleRate, framesPerBuffer int, err error)
}

// Display texts reported through MaskText.
const (
	TextIdle      = "Press start to identify"
	TextListening = "Listening..."
	TextTimedOut  = "Timed out"
)

var (
	ErrNotCreated     = errors.New("engine: not created")
	ErrNoPlayer       = errors.New("engine: player not created")
	ErrNoRecorder     = errors.New("engine: recorder not created")
	ErrNotIdentifying = errors.New("engine: identify not initialised")
)
