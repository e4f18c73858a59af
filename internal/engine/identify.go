package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Match is a recognised song and the position within it at the end of the
// submitted clip.
type Match struct {
	SongID   string
	Position time.Duration
}

// Matcher identifies a clip of mono samples. ok is false when the clip did
// not match anything.
type Matcher interface {
	Match(ctx context.Context, samples []float32, sampleRate int) (m Match, ok bool, err error)
}

// IdentifyOpts configures the identification loop of a session.
type IdentifyOpts struct {
	Timeout    time.Duration
	ClipLength time.Duration
}

// identifier accumulates captured frames into clips and submits each full
// clip to the matcher until a match is found or the timeout elapses.
type identifier struct {
	matcher    Matcher
	mask       *maskState
	log        zerolog.Logger
	sampleRate int
	opts       IdentifyOpts

	frames chan []float32
	cancel context.CancelFunc
	done   chan struct{}
}

func newIdentifier(matcher Matcher, mask *maskState, log zerolog.Logger, sampleRate int, opts IdentifyOpts) *identifier {
	ctx, cancel := context.WithCancel(context.Background())
	id := &identifier{
		matcher:    matcher,
		mask:       mask,
		log:        log,
		sampleRate: sampleRate,
		opts:       opts,
		frames:     make(chan []float32, 16),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go id.run(ctx)
	return id
}

// feed hands a frame to the loop, dropping it if the loop is busy matching.
func (id *identifier) feed(samples []float32) {
	select {
	case id.frames <- samples:
	default:
	}
}

func (id *identifier) stop() {
	id.cancel()
	<-id.done
}

func (id *identifier) run(ctx context.Context) {
	defer close(id.done)

	clipSamples := int(id.opts.ClipLength.Seconds() * float64(id.sampleRate))
	if clipSamples <= 0 {
		clipSamples = id.sampleRate * 5
	}
	clip := make([]float32, 0, clipSamples)
	var captured int

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-id.frames:
			clip = append(clip, frame...)
			captured += len(frame)
		}

		elapsed := time.Duration(float64(captured) / float64(id.sampleRate) * float64(time.Second))

		if len(clip) >= clipSamples {
			m, ok, err := id.matcher.Match(ctx, clip, id.sampleRate)
			switch {
			case err != nil && ctx.Err() != nil:
				return
			case err != nil:
				id.log.Warn().Err(err).Msg("Match attempt failed")
			case ok:
				if id.mask.setFound(m.SongID, int(m.Position.Milliseconds())) {
					id.log.Info().Str("song", m.SongID).Dur("position", m.Position).Msg("Match found")
				}
				return
			}
			clip = clip[:0]
		}

		if id.opts.Timeout > 0 && elapsed >= id.opts.Timeout {
			if id.mask.setTimeout() {
				id.log.Info().Dur("elapsed", elapsed).Msg("Identification timed out")
			}
			return
		}
	}
}
