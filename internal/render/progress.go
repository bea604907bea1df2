package render

import (
	"strconv"
	"strings"
	"time"
)

// Progress is one block of ffmpeg -progress output.
type Progress struct {
	OutTime time.Duration
	Frame   int64
	Speed   string
	Done    bool
}

// progressParser accumulates key=value lines until a progress= line closes
// the block.
type progressParser struct {
	current Progress
}

// feed consumes one line and returns a completed block when the line ends one.
func (p *progressParser) feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// ffmpeg reports microseconds under both keys.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.OutTime = time.Duration(us) * time.Microsecond
		}
	case "frame":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.Frame = n
		}
	case "speed":
		p.current.Speed = value
	case "progress":
		block := p.current
		block.Done = value == "end"
		return block, true
	}
	return Progress{}, false
}

// Percent converts output time into a completion percentage of total
// seconds. It stays below 100 until ffmpeg reports the end.
func (p Progress) Percent(totalSeconds float64) float64 {
	if p.Done {
		return 100
	}
	if totalSeconds <= 0 {
		return -1
	}
	pct := p.OutTime.Seconds() / totalSeconds * 100
	if pct > 99.9 {
		pct = 99.9
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// Message renders the progress line stored on the job.
func (p Progress) Message() string {
	if p.Done {
		return "Finalizing"
	}
	msg := "Rendering " + formatClock(p.OutTime)
	if p.Speed != "" && p.Speed != "N/A" {
		msg += " at " + p.Speed
	}
	return msg
}

func formatClock(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	return pad2(h) + ":" + pad2(m) + ":" + pad2(s)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
