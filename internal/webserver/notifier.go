package webserver

import (
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/engine"
	"github.com/nantokaworks/challenge-wheel/internal/types"
)

// WSNotifier pushes engine events to every connected overlay surface
// through the WebSocket hub. Messages are fire-and-forget; a missed
// update is healed by the next per-second challenge update.
type WSNotifier struct{}

// NewWSNotifier returns a notifier backed by the package hub.
func NewWSNotifier() WSNotifier {
	return WSNotifier{}
}

type spinPayload struct {
	Challenges        []types.Challenge `json:"challenges"`
	SelectedChallenge types.Challenge   `json:"selected_challenge"`
	Settings          spinSettings      `json:"settings"`
}

type spinSettings struct {
	SpinDuration float64 `json:"spin_duration"` // seconds, animation + winner hold
}

func (WSNotifier) SpinStarted(pool []types.Challenge, selected types.Challenge, spinDuration time.Duration) {
	BroadcastWSMessage("spin", spinPayload{
		Challenges:        pool,
		SelectedChallenge: selected,
		Settings:          spinSettings{SpinDuration: spinDuration.Seconds()},
	})
}

func (WSNotifier) ChallengeStarted(instance types.ActiveChallenge) {
	BroadcastWSMessage("update-challenge", instance)
}

func (WSNotifier) ChallengeUpdated(instance types.ActiveChallenge) {
	BroadcastWSMessage("update-challenge", instance)
}

func (WSNotifier) ResultShown(result engine.Result) {
	BroadcastWSMessage("show-result", result)
}

func (WSNotifier) OverlayHidden() {
	BroadcastWSMessage("hide-overlay", struct{}{})
}
