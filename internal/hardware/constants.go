package hardware

const (
	// GPIO defaults. Buttons sit behind external pull-ups, so the lines
	// read low while pressed.
	DefaultGpioChip = "gpiochip0"
	DefaultPB1Line  = 17
	DefaultPB2Line  = 27
	DefaultPB3Line  = 22

	// Sysfs PWM defaults for the brightness output.
	DefaultPwmChipPath = "/sys/class/pwm/pwmchip0"
	DefaultPwmChannel  = 0
	DefaultPwmPeriodNs = 2000000 // 500 Hz, above the flicker threshold

	// IIO ADC defaults for the brightness potentiometer.
	DefaultAdcDevice  = "iio:device0"
	DefaultAdcChannel = 0
	AdcMaxRaw         = 4095 // 12-bit converter

	// Pulse effect shown while idle.
	PulsePeriodMs  = 2000
	PulseUpdateMs  = 20
	DefaultDutyPct = 50
)
