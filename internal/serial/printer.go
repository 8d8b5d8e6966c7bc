// Package serial provides the one-way diagnostics text stream: a UART opener
// and the Printer the controller reports through.
package serial

import (
	"io"
	"sync"

	"github.com/sweeney/relay-timer/internal/logic"
)

// FormFeed clears the attached display before each report.
const FormFeed = 0x0C

// Diagnostic messages.
const (
	MsgOutOfRange  = "OUT OF RANGE"
	MsgStoreError  = "EEPROM error!"
	MsgNoStorePing = "Unable to ping EEPROM"
)

// Printer writes clear-prefixed status lines to a text sink. Write errors are
// dropped: the stream has no acknowledgment and nothing depends on it.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter wraps w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Message clears the display and writes s.
func (p *Printer) Message(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, FormFeed)
	buf = append(buf, s...)
	_, _ = p.w.Write(buf)
}

// Delay clears the display and writes the delay as "<seconds>.<tenths>s".
func (p *Printer) Delay(millis uint32) {
	p.Message(logic.FormatDelay(millis))
}
