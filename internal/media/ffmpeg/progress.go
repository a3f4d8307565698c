package ffmpeg

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Progress is one ffmpeg progress block.
type Progress struct {
	// Percent is 0-100 when the input duration is known, otherwise -1.
	Percent float64
	OutTime time.Duration
	Speed   float64
	Done    bool
}

// ProgressFunc receives progress updates in order.
type ProgressFunc func(Progress)

// progressParser is an io.Writer fed with ffmpeg's -progress output. A block
// ends with a "progress=continue" or "progress=end" line.
type progressParser struct {
	duration float64
	emit     ProgressFunc
	buf      []byte
	current  Progress
}

func newProgressParser(durationSeconds float64, emit ProgressFunc) *progressParser {
	return &progressParser{duration: durationSeconds, emit: emit, current: Progress{Percent: -1}}
}

func (p *progressParser) Write(data []byte) (int, error) {
	p.buf = append(p.buf, data...)
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(string(p.buf[:idx]))
		p.buf = p.buf[idx+1:]
		p.handleLine(line)
	}
	return len(data), nil
}

func (p *progressParser) handleLine(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "out_time_us", "out_time_ms":
		// out_time_ms is reported in microseconds as well.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.OutTime = time.Duration(us) * time.Microsecond
			p.current.Percent = p.percent()
		}
	case "speed":
		if speed, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			p.current.Speed = speed
		}
	case "progress":
		if value == "end" {
			p.current.Done = true
			if p.duration > 0 {
				p.current.Percent = 100
			}
		}
		if p.emit != nil {
			p.emit(p.current)
		}
	}
}

func (p *progressParser) percent() float64 {
	if p.duration <= 0 {
		return -1
	}
	pct := p.current.OutTime.Seconds() / p.duration * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	data  []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.data = append(t.data, p...)
	if over := len(t.data) - t.limit; over > 0 {
		t.data = t.data[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.data))
}
