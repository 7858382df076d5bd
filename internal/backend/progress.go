package backend

import (
	"fmt"
	"io"
	"time"
)

const progressInterval = 200 * time.Millisecond

// progressReader reports transfer progress as a single, continuously rewritten line.
type progressReader struct {
	r     io.Reader
	out   io.Writer
	name  string
	total int64
	read  int64

	now      func() time.Time
	lastDraw time.Time
}

func newProgressReader(r io.Reader, out io.Writer, name string, total int64) *progressReader {
	return &progressReader{
		r:     r,
		out:   out,
		name:  name,
		total: total,
		now:   time.Now,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if t := p.now(); t.Sub(p.lastDraw) >= progressInterval {
			p.lastDraw = t
			p.draw()
		}
	}
	return n, err
}

// finish draws the final state and terminates the line.
func (p *progressReader) finish() {
	p.draw()
	fmt.Fprintln(p.out)
}

func (p *progressReader) draw() {
	if p.total > 0 {
		fmt.Fprintf(p.out, "\r%s: %s / %s (%d%%)", p.name, humanBytes(p.read), humanBytes(p.total), p.read*100/p.total)
		return
	}
	fmt.Fprintf(p.out, "\r%s: %s", p.name, humanBytes(p.read))
}

func humanBytes(n int64) string {
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
