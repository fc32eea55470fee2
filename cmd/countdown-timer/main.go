package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"countdown-timer/internal/core"
	"countdown-timer/internal/hardware"
	"countdown-timer/internal/logger"
	"countdown-timer/internal/messaging"
	"countdown-timer/internal/terminal"
)

func main() {
	// Service log level
	var serviceLogLevel int
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")

	var redisHost string
	var redisPort int
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis server host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis server port")

	var ttyPath string
	flag.StringVar(&ttyPath, "tty", "/dev/ttyS0", "Serial console device")

	var gpioChip string
	var pb1Line, pb2Line, pb3Line int
	flag.StringVar(&gpioChip, "gpiochip", hardware.DefaultGpioChip, "GPIO chip for the push buttons")
	flag.IntVar(&pb1Line, "pb1", hardware.DefaultPB1Line, "PB1 line offset")
	flag.IntVar(&pb2Line, "pb2", hardware.DefaultPB2Line, "PB2 line offset")
	flag.IntVar(&pb3Line, "pb3", hardware.DefaultPB3Line, "PB3 line offset")

	var pwmChip string
	var pwmChannel int
	flag.StringVar(&pwmChip, "pwm", hardware.DefaultPwmChipPath, "PWM chip sysfs path")
	flag.IntVar(&pwmChannel, "pwm-channel", hardware.DefaultPwmChannel, "PWM channel")

	var adcDevice string
	var adcChannel int
	flag.StringVar(&adcDevice, "adc", hardware.DefaultAdcDevice, "IIO device for the potentiometer, empty to disable")
	flag.IntVar(&adcChannel, "adc-channel", hardware.DefaultAdcChannel, "ADC channel")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting countdown timer...")

	buttonIO, err := hardware.NewButtonIO(gpioChip, pb1Line, pb2Line, pb3Line)
	if err != nil {
		l.Fatalf("Failed to open buttons: %v", err)
	}

	pwm := hardware.NewSysfsPwm(pwmChip, pwmChannel, hardware.DefaultPwmPeriodNs)

	var pot core.BrightnessReader
	if adcDevice != "" {
		pot = hardware.NewAdcReader(adcDevice, adcChannel)
	}

	console, err := terminal.Open(ttyPath)
	if err != nil {
		l.Fatalf("Failed to open console %s: %v", ttyPath, err)
	}
	go console.Run()

	redis := messaging.NewRedisClient(redisHost, redisPort, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	system := core.NewTimerSystem(buttonIO, pwm, pot, console, redis, l)
	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	cancel()
	system.Shutdown()
	l.Infof("Shutdown complete")
}
