package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// SysfsPwm drives the brightness LED through the kernel PWM sysfs interface.
// Duty is expressed in percent; the period is fixed at construction. Output
// enable is tracked separately from duty so blinking forces the LED off
// without losing the configured brightness.
type SysfsPwm struct {
	mu sync.Mutex

	chipPath string
	channel  int
	periodNs int

	running bool
	enabled bool
	dutyPct int

	pulsePhaseMs int
}

// NewSysfsPwm creates a PWM handle on the given pwmchip sysfs directory.
// Nothing is written to sysfs until Init.
func NewSysfsPwm(chipPath string, channel, periodNs int) *SysfsPwm {
	return &SysfsPwm{
		chipPath: chipPath,
		channel:  channel,
		periodNs: periodNs,
	}
}

func (p *SysfsPwm) channelPath(file string) string {
	return filepath.Join(p.chipPath, fmt.Sprintf("pwm%d", p.channel), file)
}

func writeSysfs(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Init exports the channel if needed and programs the period. The output
// starts disabled at 0% duty.
func (p *SysfsPwm) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(filepath.Join(p.chipPath, fmt.Sprintf("pwm%d", p.channel))); os.IsNotExist(err) {
		exportPath := filepath.Join(p.chipPath, "export")
		if err := writeSysfs(exportPath, strconv.Itoa(p.channel)); err != nil {
			return fmt.Errorf("export pwm channel %d: %w", p.channel, err)
		}
	}

	if err := writeSysfs(p.channelPath("period"), strconv.Itoa(p.periodNs)); err != nil {
		return err
	}

	p.running = false
	p.enabled = true
	p.dutyPct = 0
	return p.apply()
}

// apply writes the effective duty and enable state. Caller holds mu.
func (p *SysfsPwm) apply() error {
	effective := 0
	if p.running && p.enabled {
		effective = p.dutyPct
	}
	dutyNs := p.periodNs / 100 * effective
	if err := writeSysfs(p.channelPath("duty_cycle"), strconv.Itoa(dutyNs)); err != nil {
		return err
	}

	enable := "0"
	if p.running {
		enable = "1"
	}
	return writeSysfs(p.channelPath("enable"), enable)
}

// Start enables the PWM signal at the configured duty.
func (p *SysfsPwm) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	return p.apply()
}

// Stop disables the PWM signal and turns the LED off.
func (p *SysfsPwm) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return p.apply()
}

// SetDutyCycle sets the brightness in percent, clamped to 0..100.
func (p *SysfsPwm) SetDutyCycle(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dutyPct = percent
	return p.apply()
}

// GetDutyCycle returns the configured brightness in percent.
func (p *SysfsPwm) GetDutyCycle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dutyPct
}

// SetOutputEnabled gates the output without touching the configured duty.
// With enabled false the LED is forced dark; re-enabling restores the
// previous brightness.
func (p *SysfsPwm) SetOutputEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
	return p.apply()
}

// IsOutputEnabled reports whether the output gate is open.
func (p *SysfsPwm) IsOutputEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// ResetPulse restarts the breathing effect at full brightness.
func (p *SysfsPwm) ResetPulse() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pulsePhaseMs = 0
	p.dutyPct = 100
	return p.apply()
}

// UpdatePulse advances the breathing effect. The brightness follows a
// triangle wave over periodMs, starting bright, dimming to dark at the half
// period and rising back.
func (p *SysfsPwm) UpdatePulse(elapsedMs, periodMs int) error {
	if periodMs <= 0 {
		return fmt.Errorf("pulse period must be positive, got %d", periodMs)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pulsePhaseMs = (p.pulsePhaseMs + elapsedMs) % periodMs
	half := periodMs / 2
	if p.pulsePhaseMs < half {
		p.dutyPct = 100 - 100*p.pulsePhaseMs/half
	} else {
		p.dutyPct = 100 * (p.pulsePhaseMs - half) / half
	}
	return p.apply()
}
