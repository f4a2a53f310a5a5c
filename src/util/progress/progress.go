package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Reader wraps an io.Reader and periodically writes progress updates to out.
type Reader struct {
	r           io.Reader
	out         io.Writer
	label       string
	total       int64
	read        int64
	started     time.Time
	mu          sync.Mutex
	lastPrinted time.Time
	done        bool
}

// NewReader creates a new progress Reader. If total is 0, percentage is omitted.
// A nil out counts bytes without printing.
func NewReader(r io.Reader, total int64, label string, out io.Writer) *Reader {
	return &Reader{r: r, out: out, label: label, total: total, started: time.Now()}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		now := time.Now()
		if now.Sub(p.lastPrinted) >= 500*time.Millisecond {
			p.print()
			p.lastPrinted = now
		}
		p.mu.Unlock()
	}
	if err == io.EOF {
		p.mu.Lock()
		if !p.done && p.out != nil {
			p.print() // final
			fmt.Fprint(p.out, "\n")
		}
		p.done = true
		p.mu.Unlock()
	}
	return n, err
}

// BytesRead returns how many bytes passed through so far.
func (p *Reader) BytesRead() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read
}

func (p *Reader) print() {
	if p.out == nil {
		return
	}
	rate := ""
	if secs := time.Since(p.started).Seconds(); secs >= 1 {
		rate = fmt.Sprintf(", %s/s", HumanBytes(int64(float64(p.read)/secs)))
	}
	if p.total > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		fmt.Fprintf(p.out, "\r[%s] %.1f%% (%s/%s%s)", p.label, pct, HumanBytes(p.read), HumanBytes(p.total), rate)
	} else {
		fmt.Fprintf(p.out, "\r[%s] %s%s", p.label, HumanBytes(p.read), rate)
	}
}

// HumanBytes formats n with binary units, e.g. 1536 -> "1.5 KiB".
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
