package ledger

import (
	"time"

	"github.com/nantokaworks/challenge-wheel/internal/localdb"
	"github.com/nantokaworks/challenge-wheel/internal/shared/logger"
	"github.com/nantokaworks/challenge-wheel/internal/types"
	"go.uber.org/zap"
)

// Ledger groups donation records into daily sessions and derives the
// running totals. Aggregates are never stored; they are recomputed from
// the donation rows on demand.
type Ledger struct {
	now func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// AddDonation appends a donation to today's session, creating the session
// on first use.
func (l *Ledger) AddDonation(challengeTitle string, amount float64) (*types.Donation, error) {
	session, err := localdb.GetOrCreateSession(l.now())
	if err != nil {
		return nil, err
	}

	donation := types.Donation{
		ChallengeTitle: challengeTitle,
		Amount:         amount,
		Date:           l.now(),
	}
	if err := localdb.InsertDonation(session.ID, &donation); err != nil {
		return nil, err
	}

	logger.Info("Donation recorded",
		zap.String("challenge", challengeTitle),
		zap.Float64("amount", amount))
	return &donation, nil
}

// Stats returns today's aggregate and the lifetime aggregate.
func (l *Ledger) Stats() (session types.Stats, lifetime types.Stats, err error) {
	today, err := localdb.GetOrCreateSession(l.now())
	if err != nil {
		return types.Stats{}, types.Stats{}, err
	}

	session, err = localdb.GetSessionStats(today.ID)
	if err != nil {
		return types.Stats{}, types.Stats{}, err
	}

	lifetime, err = localdb.GetLifetimeStats()
	if err != nil {
		return types.Stats{}, types.Stats{}, err
	}

	return session, lifetime, nil
}

// DeleteDonation removes one donation regardless of which session holds it.
func (l *Ledger) DeleteDonation(id string) error {
	return localdb.DeleteDonation(id)
}

// ResetTodaySession clears every donation of today's session.
func (l *Ledger) ResetTodaySession() error {
	session, err := localdb.GetOrCreateSession(l.now())
	if err != nil {
		return err
	}
	return localdb.ClearSessionDonations(session.ID)
}

// Sessions returns every session with its donations, oldest first.
func (l *Ledger) Sessions() ([]types.Session, error) {
	return localdb.GetAllSessions()
}
