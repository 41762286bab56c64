package detection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"
)

// Source supplies detection frames to the monitor loop. Next blocks until
// the next frame is available, the source is exhausted (io.EOF) or the
// context is cancelled.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// FileSource reads frames from a JSONL file, one frame per line. Each line is
// a JSON array of events; an empty array is a frame with no detections. This
// is the replay format used for testing the pipeline without a camera.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
	// Interval paces playback, zero replays as fast as possible.
	Interval time.Duration
}

// NewFileSource opens a JSONL events file for replay.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &FileSource{f: f, scanner: scanner}, nil
}

// Next returns the next frame from the file, or io.EOF when exhausted.
func (s *FileSource) Next(ctx context.Context) (Frame, error) {
	if s.Interval > 0 {
		select {
		case <-time.After(s.Interval):
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return Frame{}, fmt.Errorf("failed to read events file: %w", err)
		}
		return Frame{}, io.EOF
	}

	var events []Event
	if err := json.Unmarshal(s.scanner.Bytes(), &events); err != nil {
		return Frame{}, fmt.Errorf("malformed events line: %w", err)
	}

	now := time.Now()
	for i := range events {
		if events[i].Time.IsZero() {
			events[i].Time = now
		}
	}
	return Frame{Events: events, Time: now}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// SliceSource replays a fixed slice of frames, used in tests.
type SliceSource struct {
	frames []Frame
	pos    int
}

// NewSliceSource creates a source over the given frames.
func NewSliceSource(frames []Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns the next frame, or io.EOF when exhausted.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	if frame.Time.IsZero() {
		frame.Time = time.Now()
	}
	return frame, nil
}

// Close implements Source.
func (s *SliceSource) Close() error { return nil }

// SimulatedSource generates random pet and person sightings, used by the
// watch command when no camera collaborator is wired up.
type SimulatedSource struct {
	Labels   []string
	Interval time.Duration

	rng     *rand.Rand
	current string // subject currently "in view", empty when none
	left    int    // frames remaining for the current subject
}

// NewSimulatedSource creates a source emitting streaks of the given labels.
func NewSimulatedSource(labels []string, interval time.Duration) *SimulatedSource {
	if len(labels) == 0 {
		labels = []string{"Miso", "Ozzy", "Person"}
	}
	return &SimulatedSource{
		Labels:   labels,
		Interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next produces the next simulated frame. Subjects appear for random streaks
// of 3-20 frames with gaps in between, which exercises the persistence
// tracker and cooldown gate realistically.
func (s *SimulatedSource) Next(ctx context.Context) (Frame, error) {
	if s.Interval > 0 {
		select {
		case <-time.After(s.Interval):
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}

	now := time.Now()
	if s.left == 0 {
		if s.current == "" && s.rng.Intn(4) == 0 {
			s.current = s.Labels[s.rng.Intn(len(s.Labels))]
			s.left = 3 + s.rng.Intn(18)
		} else {
			s.current = ""
			s.left = 1 + s.rng.Intn(5)
		}
	}
	s.left--

	frame := Frame{Time: now}
	if s.current != "" {
		frame.Events = []Event{{
			Label:      s.current,
			Confidence: 0.5 + s.rng.Float64()*0.5,
			Box:        Box{X: s.rng.Intn(500), Y: s.rng.Intn(380), W: 100, H: 100},
			Time:       now,
		}}
	}
	return frame, nil
}

// Close implements Source.
func (s *SimulatedSource) Close() error {
	return nil
}
