package perception

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/holo-globe/model"
)

// Source produces gesture frames. Next returns io.EOF once a finite source
// is exhausted.
type Source interface {
	Next(ctx context.Context) (model.GestureFrame, error)
}

// ReplaySource plays back recorded frames stored as JSON lines, one
// model.GestureFrame per line. Blank lines are ignored.
type ReplaySource struct {
	lines [][]byte
	pos   int
	loop  bool
}

// NewReplaySource reads the whole recording from r. With loop set, playback
// restarts at the first frame instead of returning io.EOF.
func NewReplaySource(r io.Reader, loop bool) (*ReplaySource, error) {
	src := &ReplaySource{loop: loop}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		src.lines = append(src.lines, append([]byte(nil), line...))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return src, nil
}

// OpenReplay opens a recording on disk. A missing file is reported as
// FailureDeviceNotFound.
func OpenReplay(path string, loop bool) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Classify(fmt.Errorf("open replay %s: %w", path, err))
	}
	defer f.Close()
	return NewReplaySource(f, loop)
}

// Len returns the number of recorded frames.
func (s *ReplaySource) Len() int { return len(s.lines) }

// Next decodes the next frame. A line that does not decode yields an error
// wrapping ErrMalformedFrame and playback moves past it.
func (s *ReplaySource) Next(ctx context.Context) (model.GestureFrame, error) {
	if err := ctx.Err(); err != nil {
		return model.GestureFrame{}, err
	}
	if s.pos >= len(s.lines) {
		if !s.loop || len(s.lines) == 0 {
			return model.GestureFrame{}, io.EOF
		}
		s.pos = 0
	}

	line := s.lines[s.pos]
	n := s.pos + 1
	s.pos++

	var f model.GestureFrame
	if err := json.Unmarshal(line, &f); err != nil {
		return model.GestureFrame{}, fmt.Errorf("%w: line %d: %v", ErrMalformedFrame, n, err)
	}
	return f, nil
}
