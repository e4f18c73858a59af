package session

import "time"

// DefaultVideoDelay is the lead-in added to the engine-reported position so
// the companion video lines up with what is playing.
const DefaultVideoDelay = 2500 * time.Millisecond

// AssetResolver maps an identified song to its companion asset.
type AssetResolver interface {
	Lookup(songID string) (string, bool)
}

// Dispatcher turns terminal poll results into stop reasons. It holds no
// state and touches no engine resources.
type Dispatcher struct {
	Assets     AssetResolver
	VideoDelay time.Duration
}

// Reason returns the stop reason for res. ok is false for ResultNone.
func (d Dispatcher) Reason(res Result) (reason StopReason, ok bool) {
	switch res.Kind {
	case ResultFound:
		var asset string
		if d.Assets != nil {
			asset, _ = d.Assets.Lookup(res.SongID)
		}
		return Found(res.SongID, asset, res.Elapsed+d.VideoDelay), true
	case ResultTimeout:
		return Timeout(), true
	default:
		return StopReason{}, false
	}
}
