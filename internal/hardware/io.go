package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ButtonIO reads the three push buttons through the Linux GPIO character
// device. The buttons sit behind pull-ups, so a pressed button pulls its
// line low.
type ButtonIO struct {
	chip *gpiocdev.Chip
	pb1  *gpiocdev.Line
	pb2  *gpiocdev.Line
	pb3  *gpiocdev.Line
}

// NewButtonIO opens chipName and requests the three button lines as inputs
// with pull-ups enabled.
func NewButtonIO(chipName string, pb1Line, pb2Line, pb3Line int) (*ButtonIO, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("countdown-timer"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	b := &ButtonIO{chip: chip}
	for _, req := range []struct {
		offset int
		dst    **gpiocdev.Line
		name   string
	}{
		{pb1Line, &b.pb1, "PB1"},
		{pb2Line, &b.pb2, "PB2"},
		{pb3Line, &b.pb3, "PB3"},
	} {
		line, err := chip.RequestLine(req.offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s line %d: %w", req.name, req.offset, err)
		}
		*req.dst = line
	}

	return b, nil
}

// ReadButtons samples all three lines and returns their pressed states.
func (b *ButtonIO) ReadButtons() (pb1, pb2, pb3 bool, err error) {
	v1, err := b.pb1.Value()
	if err != nil {
		return false, false, false, fmt.Errorf("read PB1: %w", err)
	}
	v2, err := b.pb2.Value()
	if err != nil {
		return false, false, false, fmt.Errorf("read PB2: %w", err)
	}
	v3, err := b.pb3.Value()
	if err != nil {
		return false, false, false, fmt.Errorf("read PB3: %w", err)
	}

	// Active low: pressed pulls the line to ground.
	return v1 == 0, v2 == 0, v3 == 0, nil
}

// Close releases the requested lines and the chip.
func (b *ButtonIO) Close() error {
	var errs []error
	for _, line := range []*gpiocdev.Line{b.pb1, b.pb2, b.pb3} {
		if line != nil {
			if err := line.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
