package cli

import "strings"

const (
	asciiNUL       = 0x00
	asciiBackspace = 0x08
	asciiESC       = 0x1b
)

// Normalizer cleans raw terminal bytes into plain text. Runs of CR and LF
// collapse into a single "\n", backspaces and NULs are dropped, and every
// ESC is dropped along with the two bytes that follow it. State carries
// across calls so sequences split between reads are handled.
type Normalizer struct {
	escRemaining int
	inBreak      bool
}

// Normalize returns the cleaned text of one chunk
func (n *Normalizer) Normalize(chunk []byte) string {
	var b strings.Builder
	b.Grow(len(chunk))
	for _, c := range chunk {
		if n.escRemaining > 0 {
			n.escRemaining--
			continue
		}
		switch c {
		case asciiESC:
			n.escRemaining = 2
			continue
		case asciiNUL, asciiBackspace:
			continue
		case '\r', '\n':
			if !n.inBreak {
				b.WriteByte('\n')
				n.inBreak = true
			}
			continue
		}
		n.inBreak = false
		b.WriteByte(c)
	}
	return b.String()
}
