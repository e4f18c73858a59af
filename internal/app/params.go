package app

import (
	"github.com/petems/mask-tray/internal/engine"
	"github.com/petems/mask-tray/internal/session"
	"github.com/rs/zerolog"
)

const (
	fallbackSampleRate = 48000
	fallbackFrameSize  = 4800
)

// ResolveSession fills unset audio parameters from the engine's native
// values, then from fixed fallbacks.
func ResolveSession(sampleRate, frameSize int, workDir string, eng engine.Engine, log zerolog.Logger) session.SessionConfig {
	if sampleRate <= 0 || frameSize <= 0 {
		if q, ok := eng.(engine.ParamQuerier); ok {
			rate, frames, err := q.NativeParams()
			if err != nil {
				log.Warn().Err(err).Msg("Failed to query native audio parameters")
			} else {
				if sampleRate <= 0 {
					sampleRate = rate
				}
				if frameSize <= 0 {
					frameSize = frames
				}
			}
		}
	}
	if sampleRate <= 0 {
		sampleRate = fallbackSampleRate
	}
	if frameSize <= 0 {
		frameSize = fallbackFrameSize
	}

	return session.SessionConfig{
		SampleRate: sampleRate,
		FrameSize:  frameSize,
		WorkDir:    workDir,
	}
}
