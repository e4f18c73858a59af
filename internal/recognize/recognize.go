package recognize

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/petems/mask-tray/internal/engine"
	"github.com/rs/zerolog"
)

// Client submits clips to an HTTP recognition service. The service accepts
// a 16-bit mono PCM WAV body at its identify URL and answers with
// {"found": bool, "song_id": string, "offset_ms": int}.
type Client struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

type response struct {
	Found    bool   `json:"found"`
	SongID   string `json:"song_id"`
	OffsetMs int64  `json:"offset_ms"`
}

func New(url string, log zerolog.Logger) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "recognize").Logger(),
	}
}

// Match implements engine.Matcher.
func (c *Client) Match(ctx context.Context, samples []float32, sampleRate int) (engine.Match, bool, error) {
	body := EncodeWAV(samples, sampleRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return engine.Match{}, false, err
	}
	req.Header.Set("Content-Type", "audio/wav")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return engine.Match{}, false, fmt.Errorf("failed to call recognition service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return engine.Match{}, false, err
	}
	if resp.StatusCode != http.StatusOK {
		return engine.Match{}, false, fmt.Errorf("recognition service returned status %d", resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return engine.Match{}, false, fmt.Errorf("failed to parse response: %w", err)
	}

	c.log.Debug().
		Bool("found", r.Found).
		Str("song", r.SongID).
		Int("samples", len(samples)).
		Dur("took", time.Since(start)).
		Msg("Recognition response")

	if !r.Found || r.SongID == "" {
		return engine.Match{}, false, nil
	}
	return engine.Match{
		SongID:   r.SongID,
		Position: time.Duration(r.OffsetMs) * time.Millisecond,
	}, true, nil
}

// Health checks the service's /health endpoint next to the identify URL.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognition service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// WaitReady polls Health until it succeeds or timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := c.Health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.New("timeout waiting for recognition service")
		case <-ticker.C:
		}
	}
}

func (c *Client) healthURL() string {
	if i := strings.LastIndex(c.url, "/"); i > len("https://") {
		return c.url[:i] + "/health"
	}
	return strings.TrimRight(c.url, "/") + "/health"
}

// EncodeWAV renders mono float samples as a 16-bit PCM WAV file.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataLen := len(samples) * 2

	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(&buf, binary.LittleEndian, int16(math.Round(float64(s)*math.MaxInt16)))
	}
	return buf.Bytes()
}
