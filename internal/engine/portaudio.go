package engine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudioOpts configures the PortAudio-backed engine.
type PortAudioOpts struct {
	InputDevice  string // empty selects the default input device
	OutputDevice string // empty selects the default output device
	// InputChannels captured and averaged down to mono; 0 or 1 means mono.
	InputChannels int
	// Monitor plays captured audio back through the output stream; otherwise
	// the player renders silence.
	Monitor  bool
	Identify IdentifyOpts
}

// PortAudio implements Engine on top of PortAudio streams. Identification
// is delegated to a Matcher.
type PortAudio struct {
	opts    PortAudioOpts
	matcher Matcher
	log     zerolog.Logger
	mask    maskState

	mu         sync.Mutex
	created    bool
	sampleRate int
	frameSize  int
	player     *paStream
	recorder   *paStream
	ident      *identifier
	cancel     context.CancelFunc
	loops      sync.WaitGroup
}

type paStream struct {
	stream   *portaudio.Stream
	buffer   []float32
	channels int
}

// NewPortAudio returns an engine that captures from and plays to the
// configured devices.
func NewPortAudio(opts PortAudioOpts, matcher Matcher, log zerolog.Logger) *PortAudio {
	return &PortAudio{
		opts:    opts,
		matcher: matcher,
		log:     log.With().Str("component", "engine.portaudio").Logger(),
	}
}

func (p *PortAudio) ProbeRecording() bool {
	if err := portaudio.Initialize(); err != nil {
		p.log.Warn().Err(err).Msg("PortAudio unavailable")
		return false
	}
	defer portaudio.Terminate()

	dev, err := findDevice(p.opts.InputDevice, true)
	if err != nil {
		p.log.Warn().Err(err).Msg("No capture device")
		return false
	}
	return dev.MaxInputChannels > 0
}

// NativeParams reports the default output device's sample rate. PortAudio
// has no notion of a native buffer size, so framesPerBuffer is always 0.
func (p *PortAudio) NativeParams() (int, int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, 0, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	dev, err := findDevice(p.opts.OutputDevice, false)
	if err != nil {
		return 0, 0, err
	}
	return int(dev.DefaultSampleRate), 0, nil
}

func (p *PortAudio) CreateEngine(sampleRate, frameSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	p.created = true
	p.sampleRate = sampleRate
	p.frameSize = frameSize
	p.log.Debug().Int("sample_rate", sampleRate).Int("frame_size", frameSize).Msg("Engine created")
	return nil
}

func (p *PortAudio) DeleteEngine() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.created {
		return
	}
	portaudio.Terminate()
	p.created = false
}

func (p *PortAudio) CreatePlayer() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.created {
		return ErrNotCreated
	}
	dev, err := findDevice(p.opts.OutputDevice, false)
	if err != nil {
		return err
	}

	buffer := make([]float32, p.frameSize)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(p.sampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	p.player = &paStream{stream: stream, buffer: buffer, channels: 1}
	return nil
}

func (p *PortAudio) DeletePlayer() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player != nil {
		p.player.stream.Close()
		p.player = nil
	}
}

func (p *PortAudio) CreateRecorder() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return ErrNoPlayer
	}
	dev, err := findDevice(p.opts.InputDevice, true)
	if err != nil {
		return err
	}

	channels := max(p.opts.InputChannels, 1)
	if dev.MaxInputChannels > 0 && channels > dev.MaxInputChannels {
		channels = dev.MaxInputChannels
	}

	buffer := make([]float32, p.frameSize*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(p.sampleRate),
		FramesPerBuffer: p.frameSize,
	}, buffer)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	p.recorder = &paStream{stream: stream, buffer: buffer, channels: channels}
	return nil
}

func (p *PortAudio) DeleteRecorder() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.recorder != nil {
		p.recorder.stream.Close()
		p.recorder = nil
	}
}

func (p *PortAudio) InitIdentify(workDir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.matcher == nil {
		return fmt.Errorf("engine: no matcher configured")
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}

	p.mask.reset()
	p.ident = newIdentifier(p.matcher, &p.mask, p.log.With().Str("work_dir", workDir).Logger(), p.sampleRate, p.opts.Identify)
	return nil
}

func (p *PortAudio) DeleteIdentify() {
	p.mu.Lock()
	ident := p.ident
	p.ident = nil
	p.mu.Unlock()

	if ident != nil {
		ident.stop()
	}
	p.mask.finish()
}

func (p *PortAudio) StartPlay() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.player == nil:
		return ErrNoPlayer
	case p.recorder == nil:
		return ErrNoRecorder
	case p.ident == nil:
		return ErrNotIdentifying
	}

	if err := p.recorder.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	if err := p.player.stream.Start(); err != nil {
		p.recorder.stream.Stop()
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	// Bounded monitor buffer between capture and playback
	monitor := make(chan []float32, 4)

	p.loops.Add(2)
	go p.captureLoop(ctx, p.recorder, p.ident, monitor)
	go p.playLoop(ctx, p.player, monitor)
	return nil
}

func (p *PortAudio) StopPlay() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	player, recorder := p.player, p.recorder
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if recorder != nil {
		recorder.stream.Stop()
	}
	if player != nil {
		player.stream.Stop()
	}
	p.loops.Wait()
}

func (p *PortAudio) MaskText() string   { return p.mask.text() }
func (p *PortAudio) MaskStatus() Status { return p.mask.status() }
func (p *PortAudio) MaskTime() int      { return p.mask.time() }

func (p *PortAudio) captureLoop(ctx context.Context, rec *paStream, ident *identifier, monitor chan<- []float32) {
	defer p.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := rec.stream.Read(); err != nil {
			if ctx.Err() == nil {
				p.log.Error().Err(err).Msg("Capture read failed")
			}
			return
		}
		samples := downmixInterleaved(rec.buffer, rec.channels, len(rec.buffer)/max(rec.channels, 1))
		ident.feed(samples)

		if p.opts.Monitor {
			select {
			case monitor <- samples:
			default:
				// Drop if playback is behind
			}
		}
	}
}

func (p *PortAudio) playLoop(ctx context.Context, out *paStream, monitor <-chan []float32) {
	defer p.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case samples := <-monitor:
			copy(out.buffer, samples)
		default:
			clear(out.buffer)
		}
		if err := out.stream.Write(); err != nil {
			if ctx.Err() == nil {
				p.log.Error().Err(err).Msg("Playback write failed")
			}
			return
		}
	}
}

// findDevice resolves a device by name, or the default device when name is
// empty.
func findDevice(name string, input bool) (*portaudio.DeviceInfo, error) {
	if name == "" {
		var (
			dev *portaudio.DeviceInfo
			err error
		)
		if input {
			dev, err = portaudio.DefaultInputDevice()
		} else {
			dev, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get default device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name != name {
			continue
		}
		if input && d.MaxInputChannels > 0 || !input && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

// Devices lists capture-capable device names.
func Devices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}
