package engine

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/ledger"
	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/settings"
	"github.com/nantokaworks/challenge-wheel/internal/types"
)

// recordingNotifier captures engine events for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	spins   []types.Challenge
	results []Result
	hidden  int
}

func (n *recordingNotifier) SpinStarted(pool []types.Challenge, selected types.Challenge, spinDuration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spins = append(n.spins, selected)
}
func (n *recordingNotifier) ChallengeStarted(types.ActiveChallenge) {}
func (n *recordingNotifier) ChallengeUpdated(types.ActiveChallenge) {}
func (n *recordingNotifier) ResultShown(result Result) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
}
func (n *recordingNotifier) OverlayHidden() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hidden++
}

func (n *recordingNotifier) lastResult(t *testing.T) Result {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.results) == 0 {
		t.Fatalf("no result was shown")
	}
	return n.results[len(n.results)-1]
}

func (n *recordingNotifier) resultCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

type testRig struct {
	engine   *Engine
	notifier *recordingNotifier
	ledger   *ledger.Ledger
	settings *settings.SettingsManager
	wheel    *types.Wheel
}

func newTestRig(t *testing.T, challenges ...types.Challenge) *testRig {
	t.Helper()

	localdb.DBClient = nil
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to setup test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		localdb.DBClient = nil
	})

	wheel := &types.Wheel{Name: "Testrad", Challenges: challenges}
	if err := localdb.InsertWheel(wheel); err != nil {
		t.Fatalf("failed to insert wheel: %v", err)
	}

	sm := settings.NewSettingsManager(db)
	// keep the spin presentation near-instant in tests
	if err := sm.SetSetting("ANIMATION_DURATION", "0"); err != nil {
		t.Fatalf("failed to shorten animation: %v", err)
	}

	notifier := &recordingNotifier{}
	eng := New(notifier, ledger.New(), sm, Options{
		TickInterval:          10 * time.Millisecond,
		WinnerDisplayDuration: 10 * time.Millisecond,
		RearmDelay:            10 * time.Millisecond,
	})
	t.Cleanup(eng.Stop)

	return &testRig{engine: eng, notifier: notifier, ledger: ledger.New(), settings: sm, wheel: wheel}
}

// forceSelection pins both random draws for the duration of the test.
func forceSelection(t *testing.T, index, percent int) {
	t.Helper()

	origIndex, origPercent := randomIndex, randomPercent
	randomIndex = func(max int) (int, error) { return index, nil }
	randomPercent = func() (int, error) { return percent, nil }
	t.Cleanup(func() {
		randomIndex = origIndex
		randomPercent = origPercent
	})
}

func waitForState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state mismatch: got=%s want=%s", e.State(), want)
}

func waitForCondition(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func collectChallenge(target, timeLimit int) types.Challenge {
	return types.Challenge{Title: "Sammeln", Type: types.ChallengeTypeCollect, Target: target, TimeLimit: timeLimit}
}

func maxChallenge(target, timeLimit int) types.Challenge {
	return types.Challenge{Title: "Maximal", Type: types.ChallengeTypeMax, Target: target, TimeLimit: timeLimit}
}

func surviveChallenge(timeLimit int) types.Challenge {
	return types.Challenge{Title: "Überleben", Type: types.ChallengeTypeSurvive, TimeLimit: timeLimit}
}

func TestSpin_EmptyWheel(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.engine.Spin(rig.wheel.ID); !errors.Is(err, ErrNoChallenges) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSpin_RejectedWhileBusy(t *testing.T) {
	rig := newTestRig(t, collectChallenge(10, 300))
	forceSelection(t, 0, 99)

	// widen the spin window so the second call lands inside it
	if err := rig.settings.SetSetting("ANIMATION_DURATION", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rig.engine.SpinActiveWheel(); !errors.Is(err, ErrWheelSpinning) {
		t.Fatalf("unexpected error during spin: %v", err)
	}

	waitForState(t, rig.engine, StateChallengeActive)
	if err := rig.engine.SpinActiveWheel(); !errors.Is(err, ErrChallengeActive) {
		t.Fatalf("unexpected error during challenge: %v", err)
	}

	rig.engine.Fail()
	if err := rig.engine.SpinActiveWheel(); !errors.Is(err, ErrShowingResult) {
		t.Fatalf("unexpected error during result: %v", err)
	}
}

func TestCollectChallenge_CompletesOnTarget(t *testing.T) {
	rig := newTestRig(t, collectChallenge(2, 300))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	rig.engine.AdjustProgress(1)
	if rig.engine.State() != StateChallengeActive {
		t.Fatalf("challenge ended below target")
	}
	rig.engine.AdjustProgress(1)

	waitForState(t, rig.engine, StateShowingResult)
	result := rig.notifier.lastResult(t)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome mismatch: got=%s want=%s", result.Outcome, OutcomeSuccess)
	}
	if result.Donation != 0 {
		t.Fatalf("success must not settle a donation: got=%.2f", result.Donation)
	}

	_, lifetime, err := rig.ledger.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 0 {
		t.Fatalf("success created a donation: got=%+v", lifetime)
	}
}

func TestMaxChallenge_FailsAboveTarget(t *testing.T) {
	rig := newTestRig(t, maxChallenge(3, 600))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	for i := 0; i < 3; i++ {
		rig.engine.AdjustProgress(1)
	}
	if rig.engine.State() != StateChallengeActive {
		t.Fatalf("reaching the target exactly must not fail a max challenge")
	}

	rig.engine.AdjustProgress(1) // 4 > 3

	waitForState(t, rig.engine, StateShowingResult)
	result := rig.notifier.lastResult(t)
	if result.Outcome != OutcomeFailure {
		t.Fatalf("outcome mismatch: got=%s want=%s", result.Outcome, OutcomeFailure)
	}
	if result.Donation != 5.00 {
		t.Fatalf("donation mismatch: got=%.2f want=5.00", result.Donation)
	}

	_, lifetime, err := rig.ledger.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 1 || lifetime.Amount != 5.00 {
		t.Fatalf("ledger mismatch: got=%+v", lifetime)
	}
}

func TestSurviveChallenge_TimeoutFails(t *testing.T) {
	rig := newTestRig(t, surviveChallenge(30))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)
	waitForState(t, rig.engine, StateShowingResult)

	result := rig.notifier.lastResult(t)
	if result.Outcome != OutcomeFailure {
		t.Fatalf("outcome mismatch: got=%s want=%s", result.Outcome, OutcomeFailure)
	}
	if result.Challenge.TimeRemaining > 0 {
		t.Fatalf("timeout must drain the countdown: got=%d", result.Challenge.TimeRemaining)
	}
}

func TestSuperChallenge_DoublesDonation(t *testing.T) {
	rig := newTestRig(t, maxChallenge(0, 600))
	forceSelection(t, 0, 9) // roll 9 < default chance 10 -> super

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	_, active := rig.engine.Snapshot()
	if active == nil || !active.IsSuper {
		t.Fatalf("challenge should be super")
	}

	rig.engine.Fail()
	result := rig.notifier.lastResult(t)
	if result.Donation != 10.00 {
		t.Fatalf("super donation mismatch: got=%.2f want=10.00", result.Donation)
	}
}

func TestSuperRoll_AtChanceBoundary(t *testing.T) {
	rig := newTestRig(t, maxChallenge(0, 600))
	forceSelection(t, 0, 10) // roll 10 is NOT below chance 10

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	_, active := rig.engine.Snapshot()
	if active == nil || active.IsSuper {
		t.Fatalf("roll equal to the chance must not be super")
	}
}

func TestPause_FreezesCountdownAndProgress(t *testing.T) {
	rig := newTestRig(t, collectChallenge(5, 300))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	rig.engine.TogglePause()
	_, active := rig.engine.Snapshot()
	if active == nil || !active.IsPaused {
		t.Fatalf("challenge should be paused")
	}
	remaining := active.TimeRemaining

	// paused: neither the countdown nor progress may move
	time.Sleep(50 * time.Millisecond)
	rig.engine.AdjustProgress(1)
	_, active = rig.engine.Snapshot()
	if active.TimeRemaining != remaining {
		t.Fatalf("countdown moved while paused: got=%d want=%d", active.TimeRemaining, remaining)
	}
	if active.Progress != 0 {
		t.Fatalf("progress moved while paused: got=%d", active.Progress)
	}

	rig.engine.TogglePause()
	waitForCondition(t, "countdown to resume", func() bool {
		_, a := rig.engine.Snapshot()
		return a != nil && a.TimeRemaining < remaining
	})
}

func TestAdjustProgress_ClampedAtZero(t *testing.T) {
	rig := newTestRig(t, collectChallenge(5, 300))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	rig.engine.AdjustProgress(-3)
	_, active := rig.engine.Snapshot()
	if active.Progress != 0 {
		t.Fatalf("progress must clamp at zero: got=%d", active.Progress)
	}
}

func TestTerminalCalls_AreIdempotent(t *testing.T) {
	rig := newTestRig(t, maxChallenge(3, 600))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	rig.engine.Fail()
	rig.engine.Fail()
	rig.engine.Complete()

	if got := rig.notifier.resultCount(); got != 1 {
		t.Fatalf("result count mismatch: got=%d want=1", got)
	}

	_, lifetime, err := rig.ledger.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 1 {
		t.Fatalf("double settlement: got=%+v", lifetime)
	}
}

func TestResultStats_ExcludeFreshDonation(t *testing.T) {
	rig := newTestRig(t, maxChallenge(0, 600))
	forceSelection(t, 0, 99)

	// 既存の寄付を1件用意しておく
	if _, err := rig.ledger.AddDonation("Früher", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)
	rig.engine.Fail()

	result := rig.notifier.lastResult(t)
	if result.TotalStats.Challenges != 1 || result.TotalStats.Amount != 5 {
		t.Fatalf("result stats must predate the settled donation: got=%+v", result.TotalStats)
	}

	_, lifetime, err := rig.ledger.Stats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lifetime.Challenges != 2 {
		t.Fatalf("donation not settled: got=%+v", lifetime)
	}
}

func TestResetCycle_RearmsAfterResultHold(t *testing.T) {
	rig := newTestRig(t, maxChallenge(0, 600))
	forceSelection(t, 0, 99)

	// shortest legal result hold
	if err := rig.settings.SetSetting("RESULT_DISPLAY_DURATION", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)
	rig.engine.Fail()

	waitForState(t, rig.engine, StateIdle)
	waitForCondition(t, "overlay hide broadcast", func() bool {
		rig.notifier.mu.Lock()
		defer rig.notifier.mu.Unlock()
		return rig.notifier.hidden == 1
	})

	// idle again: the next spin is accepted
	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error after re-arm: %v", err)
	}
}

func TestComplete_StatsUnavailableStillShowsResult(t *testing.T) {
	rig := newTestRig(t, collectChallenge(1, 300))
	forceSelection(t, 0, 99)

	if err := rig.engine.SpinActiveWheel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForState(t, rig.engine, StateChallengeActive)

	// 統計の読み出しを失敗させる
	localdb.GetDB().Close()

	rig.engine.AdjustProgress(1)
	waitForState(t, rig.engine, StateShowingResult)

	result := rig.notifier.lastResult(t)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome mismatch: got=%s want=%s", result.Outcome, OutcomeSuccess)
	}
	if result.SessionStats.Challenges != 0 || result.TotalStats.Challenges != 0 {
		t.Fatalf("stats must be zero when unavailable: got=%+v/%+v", result.SessionStats, result.TotalStats)
	}
}

func TestSuperRoll_RateMatchesConfiguredChance(t *testing.T) {
	rig := newTestRig(t, surviveChallenge(300))

	if err := rig.settings.SetSetting("SUPER_CHANCE", "25"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	origIndex, origPercent := randomIndex, randomPercent
	randomIndex = func(max int) (int, error) { return 0, nil }
	t.Cleanup(func() {
		randomIndex = origIndex
		randomPercent = origPercent
	})

	// 全100通りのロールを一巡させ、スーパー判定の件数を数える
	supers := 0
	for roll := 0; roll < 100; roll++ {
		r := roll
		randomPercent = func() (int, error) { return r, nil }

		if err := rig.engine.SpinActiveWheel(); err != nil {
			t.Fatalf("roll %d: unexpected error: %v", roll, err)
		}
		waitForState(t, rig.engine, StateChallengeActive)

		_, active := rig.engine.Snapshot()
		if active == nil {
			t.Fatalf("roll %d: no active challenge", roll)
		}
		if active.IsSuper {
			supers++
		}

		rig.engine.Stop()
	}

	if supers != 25 {
		t.Fatalf("super count mismatch: got=%d want=25", supers)
	}
}
