package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/ledger"
	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

// State is the challenge lifecycle phase.
type State string

const (
	StateIdle            State = "idle"
	StateSpinning        State = "spinning"
	StateChallengeActive State = "challenge_active"
	StateShowingResult   State = "showing_result"
)

// Outcome is the terminal resolution of an attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

var (
	ErrChallengeActive = errors.New("challenge already active")
	ErrWheelSpinning   = errors.New("wheel is already spinning")
	ErrShowingResult   = errors.New("result is being shown")
	ErrNoChallenges    = errors.New("wheel has no challenges")
)

// Result is broadcast to presentation surfaces on a terminal transition.
// Stats are the totals captured before the donation was appended.
type Result struct {
	Outcome      Outcome               `json:"result"`
	Challenge    types.ActiveChallenge `json:"challenge"`
	Donation     float64               `json:"donation"`
	SessionStats types.Stats           `json:"session_stats"`
	TotalStats   types.Stats           `json:"total_stats"`
}

// Notifier receives presentation-direction events. Implementations must
// not block; sends are fire-and-forget and a dropped update is corrected
// by the next per-second tick.
type Notifier interface {
	SpinStarted(pool []types.Challenge, selected types.Challenge, spinDuration time.Duration)
	ChallengeStarted(instance types.ActiveChallenge)
	ChallengeUpdated(instance types.ActiveChallenge)
	ResultShown(result Result)
	OverlayHidden()
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) SpinStarted([]types.Challenge, types.Challenge, time.Duration) {}
func (NopNotifier) ChallengeStarted(types.ActiveChallenge)                        {}
func (NopNotifier) ChallengeUpdated(types.ActiveChallenge)                        {}
func (NopNotifier) ResultShown(Result)                                            {}
func (NopNotifier) OverlayHidden()                                                {}

// Options tune the engine's timing. Zero values use the defaults.
type Options struct {
	TickInterval          time.Duration // countdown resolution, default 1s
	WinnerDisplayDuration time.Duration // hold after the spin animation, default 5.8s
	RearmDelay            time.Duration // gap between overlay hide and the next accepted spin, default 1s
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.WinnerDisplayDuration <= 0 {
		o.WinnerDisplayDuration = 5800 * time.Millisecond
	}
	if o.RearmDelay <= 0 {
		o.RearmDelay = time.Second
	}
}

// Engine owns the single active challenge slot and drives the lifecycle
// spin -> select -> countdown -> resolve -> settle -> reset. All guards
// run under one mutex; at most one countdown timer is live, cancelled at
// exactly one place on every terminal transition.
type Engine struct {
	mu     sync.Mutex
	state  State
	active *types.ActiveChallenge

	stopTick   chan struct{}
	spinTimer  *time.Timer
	holdTimer  *time.Timer
	rearmTimer *time.Timer

	notifier Notifier
	ledger   *ledger.Ledger
	settings *settings.SettingsManager
	opts     Options
}

// New constructs the engine. A nil notifier discards events.
func New(notifier Notifier, donationLedger *ledger.Ledger, sm *settings.SettingsManager, opts Options) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	opts.applyDefaults()
	return &Engine{
		state:    StateIdle,
		notifier: notifier,
		ledger:   donationLedger,
		settings: sm,
		opts:     opts,
	}
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the phase and a copy of the active instance, if any.
// Late-joining overlay surfaces use it to catch up.
func (e *Engine) Snapshot() (State, *types.ActiveChallenge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return e.state, nil
	}
	instance := *e.active
	return e.state, &instance
}

// SpinActiveWheel spins whichever wheel is currently active.
func (e *Engine) SpinActiveWheel() error {
	wheel, err := localdb.GetActiveWheel()
	if err != nil {
		return err
	}
	return e.spin(wheel)
}

// Spin selects a random challenge from the wheel and starts the spin
// presentation. Valid only while idle; a busy engine rejects the request
// with a usage error, an empty wheel with ErrNoChallenges.
func (e *Engine) Spin(wheelID string) error {
	wheel, err := localdb.GetWheel(wheelID)
	if err != nil {
		return err
	}
	return e.spin(wheel)
}

func (e *Engine) spin(wheel *types.Wheel) error {
	if len(wheel.Challenges) == 0 {
		return ErrNoChallenges
	}

	ds := e.settings.GetDonationSettings()

	e.mu.Lock()
	switch e.state {
	case StateChallengeActive:
		e.mu.Unlock()
		return ErrChallengeActive
	case StateSpinning:
		e.mu.Unlock()
		return ErrWheelSpinning
	case StateShowingResult:
		e.mu.Unlock()
		return ErrShowingResult
	}

	// Uniform pick over the pool; duplicate entries weight the draw on
	// purpose. The super roll is independent of the pick.
	idx, err := randomIndex(len(wheel.Challenges))
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to pick challenge: %w", err)
	}
	selected := wheel.Challenges[idx]

	roll, err := randomPercent()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to roll super chance: %w", err)
	}
	isSuper := roll < ds.SuperChance

	e.state = StateSpinning
	spinDuration := ds.AnimationDuration + e.opts.WinnerDisplayDuration
	e.spinTimer = time.AfterFunc(spinDuration, func() {
		e.startChallenge(selected, isSuper)
	})
	pool := append([]types.Challenge(nil), wheel.Challenges...)
	e.mu.Unlock()

	logger.Info("Wheel spinning",
		zap.String("wheel", wheel.Name),
		zap.String("challenge", selected.Title),
		zap.Bool("is_super", isSuper))

	e.notifier.SpinStarted(pool, selected, spinDuration)
	return nil
}

func (e *Engine) startChallenge(challenge types.Challenge, isSuper bool) {
	e.mu.Lock()
	if e.state != StateSpinning {
		// spin was cancelled by shutdown
		e.mu.Unlock()
		return
	}

	e.active = &types.ActiveChallenge{
		Challenge:     challenge,
		StartTime:     time.Now(),
		Progress:      0,
		IsPaused:      false,
		TimeRemaining: challenge.TimeLimit,
		IsSuper:       isSuper,
	}
	e.state = StateChallengeActive
	e.startTimerLocked()
	instance := *e.active
	e.mu.Unlock()

	logger.Info("Challenge started",
		zap.String("challenge", challenge.Title),
		zap.Int("time_limit", challenge.TimeLimit),
		zap.Bool("is_super", isSuper))

	e.notifier.ChallengeStarted(instance)
}

// startTimerLocked launches the countdown goroutine. The channel is the
// timer's single cancellation handle.
func (e *Engine) startTimerLocked() {
	stop := make(chan struct{})
	e.stopTick = stop

	go func() {
		ticker := time.NewTicker(e.opts.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.tick()
			}
		}
	}()
}

// stopTimerLocked is the only place the countdown is cancelled.
func (e *Engine) stopTimerLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// tick fires once per interval. Paused instances make it a no-op; the
// countdown reaching zero is a timeout failure.
func (e *Engine) tick() {
	e.mu.Lock()
	if e.state != StateChallengeActive || e.active == nil || e.active.IsPaused {
		e.mu.Unlock()
		return
	}

	e.active.TimeRemaining--
	instance := *e.active
	timedOut := e.active.TimeRemaining <= 0
	e.mu.Unlock()

	e.notifier.ChallengeUpdated(instance)

	if timedOut {
		logger.Info("Challenge timed out", zap.String("challenge", instance.Challenge.Title))
		e.Fail()
	}
}

// AdjustProgress shifts the progress counter, clamped at zero. Collect
// challenges complete on reaching the target; max challenges fail on
// exceeding it; survive challenges only answer to the timer. A paused or
// missing instance ignores the call.
func (e *Engine) AdjustProgress(delta int) {
	e.mu.Lock()
	if e.state != StateChallengeActive || e.active == nil || e.active.IsPaused {
		e.mu.Unlock()
		return
	}

	progress := e.active.Progress + delta
	if progress < 0 {
		progress = 0
	}
	e.active.Progress = progress
	instance := *e.active
	e.mu.Unlock()

	logger.Debug("Progress adjusted",
		zap.Int("progress", instance.Progress),
		zap.Int("target", instance.Challenge.Target),
		zap.String("type", string(instance.Challenge.Type)))

	e.notifier.ChallengeUpdated(instance)

	if instance.Challenge.Target > 0 {
		switch instance.Challenge.Type {
		case types.ChallengeTypeCollect:
			if instance.Progress >= instance.Challenge.Target {
				e.Complete()
			}
		case types.ChallengeTypeMax:
			if instance.Progress > instance.Challenge.Target {
				e.Fail()
			}
		}
	}
}

// TogglePause flips the pause flag. The countdown keeps firing but does
// nothing while paused.
func (e *Engine) TogglePause() {
	e.mu.Lock()
	if e.state != StateChallengeActive || e.active == nil {
		e.mu.Unlock()
		return
	}
	e.active.IsPaused = !e.active.IsPaused
	instance := *e.active
	e.mu.Unlock()

	logger.Info("Challenge pause toggled", zap.Bool("is_paused", instance.IsPaused))
	e.notifier.ChallengeUpdated(instance)
}

// Complete resolves the attempt as a success. No donation is created.
// Without an active instance the call is a no-op.
func (e *Engine) Complete() {
	e.mu.Lock()
	instance, ok := e.endActiveLocked()
	e.mu.Unlock()
	if !ok {
		return
	}

	logger.Info("Challenge completed", zap.String("challenge", instance.Challenge.Title))

	result := Result{Outcome: OutcomeSuccess, Challenge: instance}
	if e.ledger != nil {
		sessionStats, totalStats, err := e.ledger.Stats()
		if err != nil {
			logger.Error("Failed to read stats for result", zap.Error(err))
		} else {
			result.SessionStats = sessionStats
			result.TotalStats = totalStats
		}
	}
	e.notifier.ResultShown(result)
	e.scheduleReset()
}

// Fail resolves the attempt as a failure (manual or timeout), settles the
// donation into today's session, and broadcasts the result with the
// pre-donation totals. Without an active instance the call is a no-op.
func (e *Engine) Fail() {
	e.mu.Lock()
	instance, ok := e.endActiveLocked()
	e.mu.Unlock()
	if !ok {
		return
	}

	ds := e.settings.GetDonationSettings()
	amount := ds.BaseAmount
	if instance.IsSuper {
		amount *= 2
	}

	result := Result{Outcome: OutcomeFailure, Challenge: instance, Donation: amount}
	if e.ledger != nil {
		sessionStats, totalStats, err := e.ledger.Stats()
		if err != nil {
			logger.Error("Failed to read stats before donation", zap.Error(err))
		} else {
			result.SessionStats = sessionStats
			result.TotalStats = totalStats
		}

		if _, err := e.ledger.AddDonation(instance.Challenge.Title, amount); err != nil {
			// in-memory resolution stands even if persistence failed
			logger.Error("Failed to record donation", zap.Error(err))
		}
	}

	logger.Info("Challenge failed",
		zap.String("challenge", instance.Challenge.Title),
		zap.Float64("donation", amount),
		zap.Bool("is_super", instance.IsSuper))

	e.notifier.ResultShown(result)
	e.scheduleReset()
}

// endActiveLocked clears the active slot on a terminal transition and
// cancels the countdown. Reports false when no instance was active.
func (e *Engine) endActiveLocked() (types.ActiveChallenge, bool) {
	if e.state != StateChallengeActive || e.active == nil {
		return types.ActiveChallenge{}, false
	}
	instance := *e.active
	e.stopTimerLocked()
	e.active = nil
	e.state = StateShowingResult
	return instance, true
}

// scheduleReset hides the overlay after the result hold and re-arms
// spinning a short delay later, so a hotkey mash cannot race the fading
// overlay.
func (e *Engine) scheduleReset() {
	hold := e.settings.GetDonationSettings().ResultDisplayDuration

	e.mu.Lock()
	e.holdTimer = time.AfterFunc(hold, func() {
		e.notifier.OverlayHidden()

		e.mu.Lock()
		e.rearmTimer = time.AfterFunc(e.opts.RearmDelay, func() {
			e.mu.Lock()
			if e.state == StateShowingResult {
				e.state = StateIdle
			}
			e.mu.Unlock()
			logger.Debug("Engine re-armed for next spin")
		})
		e.mu.Unlock()
	})
	e.mu.Unlock()
}

// Stop cancels every pending timer and resets the engine. Used on
// shutdown; in-flight attempts are abandoned without a result.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range []*time.Timer{e.spinTimer, e.holdTimer, e.rearmTimer} {
		if t != nil {
			t.Stop()
		}
	}
	e.stopTimerLocked()
	e.active = nil
	e.state = StateIdle
}
