package astisdt

import (
	"fmt"

	"github.com/asticode/go-astikit"
)

// PSITableID represents a PSI table id
// Page: 28 | Chapter: 5.1.3 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type PSITableID uint8

// PSI table ids
const (
	PSITableIDSDTActual PSITableID = 0x42
	PSITableIDSDTOther  PSITableID = 0x46
	PSITableIDNull      PSITableID = 0xff
)

// String implements the Stringer interface
func (t PSITableID) String() string {
	switch t {
	case PSITableIDSDTActual:
		return "SDT actual"
	case PSITableIDSDTOther:
		return "SDT other"
	case PSITableIDNull:
		return "Null"
	}
	return fmt.Sprintf("0x%.2x", uint8(t))
}

// SDTConsumer is called once per accepted section. The section is only valid for the duration
// of the call.
type SDTConsumer func(s ActualOther[*SDTSection])

// Router routes validated SDT section bodies to a consumer based on their table id
type Router struct {
	c SDTConsumer
	l astikit.CompleteLogger
}

// NewRouter creates a new router
func NewRouter(c SDTConsumer, opts ...func(*Router)) (r *Router) {
	// Init
	r = &Router{
		c: c,
		l: newLogger(nil),
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}
	return
}

// RouterOptLogger returns the option to set the logger
func RouterOptLogger(l astikit.StdLogger) func(*Router) {
	return func(r *Router) {
		r.l = newLogger(l)
	}
}

// Route routes a section body (table header and CRC32 excluded).
// Sections with an unexpected table id are dropped with a warning and no error is returned.
func (r *Router) Route(tableID PSITableID, data []byte) (err error) {
	// Check table id
	var other bool
	switch tableID {
	case PSITableIDSDTActual:
	case PSITableIDSDTOther:
		other = true
	default:
		r.l.Warnf("astisdt: expected SDT table id 0x%.2x or 0x%.2x, got 0x%.2x, dropping %d byte(s)",
			uint8(PSITableIDSDTActual), uint8(PSITableIDSDTOther), uint8(tableID), len(data))
		return
	}

	// Create section
	var s *SDTSection
	if s, err = NewSDTSection(data); err != nil {
		err = fmt.Errorf("astisdt: creating SDT section failed: %w", err)
		return
	}

	// Consume
	if other {
		r.c(NewOther(s))
	} else {
		r.c(NewActual(s))
	}
	return
}
