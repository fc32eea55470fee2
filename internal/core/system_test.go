package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"countdown-timer/internal/events"
	"countdown-timer/internal/fsm"
	"countdown-timer/internal/logger"
	"countdown-timer/internal/messaging"
	"countdown-timer/internal/terminal"
	"countdown-timer/internal/types"
)

// Mock ButtonReader
type mockButtonIO struct {
	mu            sync.Mutex
	pb1, pb2, pb3 bool
	closed        bool
}

func (m *mockButtonIO) ReadButtons() (bool, bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pb1, m.pb2, m.pb3, nil
}

func (m *mockButtonIO) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Mock PwmController
type mockPwm struct {
	mu             sync.Mutex
	running        bool
	enabled        bool
	duty           int
	resetPulses    int
	pulseUpdates   int
	enabledHistory []bool
}

func newMockPwm() *mockPwm {
	return &mockPwm{}
}

func (m *mockPwm) Init() error {
	return nil
}

func (m *mockPwm) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	return nil
}

func (m *mockPwm) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *mockPwm) SetDutyCycle(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duty = percent
	return nil
}

func (m *mockPwm) GetDutyCycle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty
}

func (m *mockPwm) SetOutputEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
	m.enabledHistory = append(m.enabledHistory, enabled)
	return nil
}

func (m *mockPwm) IsOutputEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *mockPwm) ResetPulse() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetPulses++
	m.duty = 100
	return nil
}

func (m *mockPwm) UpdatePulse(elapsedMs, periodMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulseUpdates++
	return nil
}

func (m *mockPwm) lastEnabled(n int) []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.enabledHistory) < n {
		n = len(m.enabledHistory)
	}
	return append([]bool(nil), m.enabledHistory[len(m.enabledHistory)-n:]...)
}

// Mock BrightnessReader
type mockPot struct {
	mu  sync.Mutex
	pct int
}

func (m *mockPot) ReadPercent() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pct, nil
}

// Mock Console
type mockConsole struct {
	mu       sync.Mutex
	writes   []string
	commands chan terminal.Command
}

func newMockConsole() *mockConsole {
	return &mockConsole{commands: make(chan terminal.Command, 16)}
}

func (m *mockConsole) Commands() <-chan terminal.Command {
	return m.commands
}

func (m *mockConsole) Write(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, s)
	return nil
}

func (m *mockConsole) WriteLine(s string) error {
	return m.Write(s + "\r\n")
}

func (m *mockConsole) EchoBackspace() error {
	return m.Write("\b \b")
}

func (m *mockConsole) Close() error {
	return nil
}

func (m *mockConsole) contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Contains(strings.Join(m.writes, ""), substr)
}

// Mock MessagingClient
type mockMessagingClient struct {
	mu sync.Mutex

	callbacks messaging.Callbacks

	publishedPhases    []types.Phase
	publishedRemaining []uint16
	publishedTotals    []uint16
	buttonEvents       []string
}

func newMockMessagingClient() *mockMessagingClient {
	return &mockMessagingClient{}
}

func (m *mockMessagingClient) SetCallbacks(callbacks messaging.Callbacks) { m.callbacks = callbacks }
func (m *mockMessagingClient) Connect() error                            { return nil }
func (m *mockMessagingClient) StartListening() error                     { return nil }
func (m *mockMessagingClient) Close() error                              { return nil }

func (m *mockMessagingClient) PublishTimerPhase(phase types.Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedPhases = append(m.publishedPhases, phase)
	return nil
}

func (m *mockMessagingClient) PublishRemaining(remaining uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedRemaining = append(m.publishedRemaining, remaining)
	return nil
}

func (m *mockMessagingClient) PublishTotal(total uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedTotals = append(m.publishedTotals, total)
	return nil
}

func (m *mockMessagingClient) PublishButtonEvent(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttonEvents = append(m.buttonEvents, event)
	return nil
}

func (m *mockMessagingClient) GetTimerPhase() (types.Phase, error) {
	return types.PhaseWaiting, nil
}

// Test helper
func newTestTimerSystem(t *testing.T) (*TimerSystem, *mockPwm, *mockConsole, *mockMessagingClient) {
	t.Helper()
	l := logger.NewLogger(nil, logger.LogLevelError)
	io := &mockButtonIO{}
	pwm := newMockPwm()
	console := newMockConsole()
	redis := newMockMessagingClient()

	system := NewTimerSystem(io, pwm, &mockPot{pct: 50}, console, redis, l)
	system.completionDisplay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := system.initFSM(ctx); err != nil {
		cancel()
		t.Fatalf("initFSM failed: %v", err)
	}
	t.Cleanup(func() {
		system.stopPulse()
		cancel()
	})
	return system, pwm, console, redis
}

func typeEntry(s *TimerSystem, entry string) {
	for i := 0; i < len(entry); i++ {
		s.handleConsoleCommand(terminal.Command{Type: terminal.CommandChar, Char: entry[i]})
	}
	s.handleConsoleCommand(terminal.Command{Type: terminal.CommandEnter})
}

func enterTime(t *testing.T, s *TimerSystem, entry string) {
	t.Helper()
	if err := s.sendEvent(fsm.EvPB1Click); err != nil {
		t.Fatalf("PB1 click: %v", err)
	}
	typeEntry(s, entry)
}

func countdownRecord(s *TimerSystem) types.CountdownRecord {
	s.countdownGuard.Acquire()
	defer s.countdownGuard.Release()
	return s.countdown
}

// ===== Phase flow tests =====

func TestInitialPhaseIsWaiting(t *testing.T) {
	system, _, _, _ := newTestTimerSystem(t)

	if got := system.currentPhase(); got != types.PhaseWaiting {
		t.Errorf("initial phase = %s, want %s", got, types.PhaseWaiting)
	}
}

func TestTimeEntryAccepted(t *testing.T) {
	system, _, console, redis := newTestTimerSystem(t)

	enterTime(t, system, "05:30")

	if got := system.currentPhase(); got != types.PhaseReady {
		t.Fatalf("phase = %s, want %s", got, types.PhaseReady)
	}
	rec := countdownRecord(system)
	if rec.TotalSeconds != 330 || rec.RemainingSeconds != 330 {
		t.Errorf("record = %+v, want total and remaining 330", rec)
	}
	if !console.contains("Time set! Press PB2+PB3 to start (long press to clear).") {
		t.Error("confirmation message not written")
	}

	redis.mu.Lock()
	totals := append([]uint16(nil), redis.publishedTotals...)
	redis.mu.Unlock()
	if len(totals) != 1 || totals[0] != 330 {
		t.Errorf("published totals = %v, want [330]", totals)
	}
}

func TestEntryWithoutColonRejected(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	enterTime(t, system, "99")

	if got := system.currentPhase(); got != types.PhaseEnteringTime {
		t.Errorf("phase = %s, want %s", got, types.PhaseEnteringTime)
	}
	if !console.contains("Invalid format. Use MM:SS") {
		t.Error("format error message not written")
	}
}

func TestEntrySecondsOutOfRangeRejected(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	enterTime(t, system, "01:75")

	if got := system.currentPhase(); got != types.PhaseEnteringTime {
		t.Errorf("phase = %s, want %s", got, types.PhaseEnteringTime)
	}
	if !console.contains("Invalid time.") {
		t.Error("value error message not written")
	}
}

func TestEntryZeroTotalRejected(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	enterTime(t, system, "00:00")

	if got := system.currentPhase(); got != types.PhaseEnteringTime {
		t.Errorf("phase = %s, want %s", got, types.PhaseEnteringTime)
	}
	if !console.contains("Invalid time.") {
		t.Error("value error message not written")
	}
}

func TestEntryBackspaceEditsBuffer(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	if err := system.sendEvent(fsm.EvPB1Click); err != nil {
		t.Fatal(err)
	}
	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandChar, Char: '0'})
	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandChar, Char: '9'})
	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandBackspace})
	typeEntry(system, "5:30")

	if got := system.currentPhase(); got != types.PhaseReady {
		t.Fatalf("phase = %s, want %s", got, types.PhaseReady)
	}
	if rec := countdownRecord(system); rec.TotalSeconds != 330 {
		t.Errorf("total = %d, want 330", rec.TotalSeconds)
	}
	if !console.contains("\b \b") {
		t.Error("backspace echo not written")
	}
}

func TestEntryRejectsNonDigitCharacters(t *testing.T) {
	system, _, _, _ := newTestTimerSystem(t)

	if err := system.sendEvent(fsm.EvPB1Click); err != nil {
		t.Fatal(err)
	}
	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandChar, Char: 'x'})
	typeEntry(system, "00:10")

	if rec := countdownRecord(system); rec.TotalSeconds != 10 {
		t.Errorf("total = %d, want 10 (stray character must be ignored)", rec.TotalSeconds)
	}
}

func TestComboLongPressClearsConfiguredTime(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	enterTime(t, system, "01:00")
	if err := system.sendEvent(fsm.EvComboLongPress); err != nil {
		t.Fatalf("combo long press: %v", err)
	}

	if got := system.currentPhase(); got != types.PhaseEnteringTime {
		t.Errorf("phase = %s, want %s", got, types.PhaseEnteringTime)
	}
	if rec := countdownRecord(system); rec.TotalSeconds != 0 {
		t.Errorf("total = %d, want 0 after clear", rec.TotalSeconds)
	}
	if !console.contains("Time cleared. Re-enter value.") {
		t.Error("clear message not written")
	}
}

func TestStartPauseResumeAbort(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	enterTime(t, system, "00:30")

	if err := system.sendEvent(fsm.EvComboClick); err != nil {
		t.Fatalf("combo click: %v", err)
	}
	if got := system.currentPhase(); got != types.PhaseCounting {
		t.Fatalf("phase = %s, want %s", got, types.PhaseCounting)
	}
	if !console.contains("[COUNTDOWN STARTED]") {
		t.Error("start banner not written")
	}

	if err := system.sendEvent(fsm.EvPB3Click); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := system.currentPhase(); got != types.PhasePaused {
		t.Fatalf("phase = %s, want %s", got, types.PhasePaused)
	}

	if err := system.sendEvent(fsm.EvPB3Click); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := system.currentPhase(); got != types.PhaseCounting {
		t.Fatalf("phase = %s, want %s", got, types.PhaseCounting)
	}

	if err := system.sendEvent(fsm.EvPB3LongPress); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if got := system.currentPhase(); got != types.PhaseWaiting {
		t.Fatalf("phase = %s, want %s", got, types.PhaseWaiting)
	}
	if rec := countdownRecord(system); rec.TotalSeconds != 0 || rec.RemainingSeconds != 0 {
		t.Errorf("record = %+v, want cleared after abort", rec)
	}
	if !console.contains("Countdown aborted.") {
		t.Error("abort message not written")
	}
}

func TestCountdownRunsToCompletionAndReturns(t *testing.T) {
	system, _, console, redis := newTestTimerSystem(t)

	enterTime(t, system, "00:03")
	if err := system.sendEvent(fsm.EvComboClick); err != nil {
		t.Fatal(err)
	}

	ledOn := false
	for i := 0; i < 3; i++ {
		ledOn = system.countdownTick(ledOn)
	}

	if got := system.currentPhase(); got != types.PhaseCompleted {
		t.Fatalf("phase after expiry = %s, want %s", got, types.PhaseCompleted)
	}
	if !console.contains("COUNTDOWN COMPLETE!") {
		t.Error("completion banner not written")
	}

	redis.mu.Lock()
	remaining := append([]uint16(nil), redis.publishedRemaining...)
	redis.mu.Unlock()
	want := []uint16{2, 1, 0}
	if len(remaining) != len(want) {
		t.Fatalf("published remaining = %v, want %v", remaining, want)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Fatalf("published remaining = %v, want %v", remaining, want)
		}
	}

	// The completion display interval expires on its own.
	deadline := time.Now().Add(2 * time.Second)
	for system.currentPhase() != types.PhaseWaiting {
		if time.Now().After(deadline) {
			t.Fatal("did not return to waiting after the completion display interval")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if rec := countdownRecord(system); rec.TotalSeconds != 0 {
		t.Errorf("record = %+v, want cleared after completion", rec)
	}
}

func TestPauseFreezesCountdownBetweenTicks(t *testing.T) {
	system, _, _, _ := newTestTimerSystem(t)

	enterTime(t, system, "00:05")
	if err := system.sendEvent(fsm.EvComboClick); err != nil {
		t.Fatal(err)
	}

	system.countdownTick(false)
	if rec := countdownRecord(system); rec.RemainingSeconds != 4 {
		t.Fatalf("remaining = %d, want 4", rec.RemainingSeconds)
	}

	if err := system.sendEvent(fsm.EvPB3Click); err != nil {
		t.Fatal(err)
	}
	system.countdownTick(false)
	if rec := countdownRecord(system); rec.RemainingSeconds != 4 {
		t.Errorf("remaining = %d, want 4 while paused", rec.RemainingSeconds)
	}

	if err := system.sendEvent(fsm.EvPB3Click); err != nil {
		t.Fatal(err)
	}
	system.countdownTick(false)
	if rec := countdownRecord(system); rec.RemainingSeconds != 3 {
		t.Errorf("remaining = %d, want 3 after resume", rec.RemainingSeconds)
	}
}

func TestComboClickInWaitingReportsNoTimeSet(t *testing.T) {
	system, _, console, redis := newTestTimerSystem(t)

	system.dispatchButtonEvent(events.ButtonEvent{
		Button: events.ButtonPB2AndPB3,
		Kind:   events.KindClick,
	})

	if got := system.currentPhase(); got != types.PhaseWaiting {
		t.Errorf("phase = %s, want %s", got, types.PhaseWaiting)
	}
	if !console.contains("[ERROR: No time set]") {
		t.Error("error message not written")
	}

	redis.mu.Lock()
	published := len(redis.buttonEvents)
	redis.mu.Unlock()
	if published != 1 {
		t.Errorf("published %d button events, want 1", published)
	}
}

func TestRemoteCommands(t *testing.T) {
	system, _, _, _ := newTestTimerSystem(t)

	if err := system.handleRemoteCommand("start"); err == nil {
		t.Error("start accepted while waiting")
	}

	enterTime(t, system, "00:10")
	if err := system.handleRemoteCommand("start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := system.currentPhase(); got != types.PhaseCounting {
		t.Fatalf("phase = %s, want %s", got, types.PhaseCounting)
	}

	if err := system.handleRemoteCommand("pause"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := system.handleRemoteCommand("pause"); err == nil {
		t.Error("pause accepted while already paused")
	}
	if err := system.handleRemoteCommand("resume"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := system.handleRemoteCommand("abort"); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if got := system.currentPhase(); got != types.PhaseWaiting {
		t.Errorf("phase = %s, want %s", got, types.PhaseWaiting)
	}

	if err := system.handleRemoteCommand("bogus"); err == nil {
		t.Error("unknown command accepted")
	}
}

func TestDisplayToggles(t *testing.T) {
	system, pwm, console, _ := newTestTimerSystem(t)

	enterTime(t, system, "00:30")
	if err := system.sendEvent(fsm.EvComboClick); err != nil {
		t.Fatal(err)
	}

	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandToggleInfo, Char: 'i'})
	if !console.contains("Extended info: ON") {
		t.Error("info toggle feedback not written")
	}
	system.countdownTick(false)
	if !console.contains("remaining=") {
		t.Error("extended info not shown in countdown line")
	}

	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandToggleBlinkMode, Char: 'b'})
	if !console.contains("LED mode: solid") {
		t.Error("blink toggle feedback not written")
	}

	// In solid mode the output stays enabled across consecutive ticks.
	ledOn := system.countdownTick(false)
	system.countdownTick(ledOn)
	last := pwm.lastEnabled(2)
	if len(last) != 2 || !last[0] || !last[1] {
		t.Errorf("output enable history = %v, want held on in solid mode", last)
	}
}

func TestToggleIgnoredOutsideCountingAndPaused(t *testing.T) {
	system, _, console, _ := newTestTimerSystem(t)

	system.handleConsoleCommand(terminal.Command{Type: terminal.CommandToggleInfo, Char: 'i'})
	if console.contains("Extended info") {
		t.Error("toggle acted while waiting")
	}

	system.countdownGuard.Acquire()
	extended := system.display.ShowExtendedInfo
	system.countdownGuard.Release()
	if extended {
		t.Error("display settings changed while waiting")
	}
}
