package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/nantokaworks/challenge-wheel/internal/types"
)

const dateLayout = "02.01.2006 15:04"
const sessionDateLayout = "02.01.2006"

type exportRow struct {
	donation    types.Donation
	sessionDate string
}

// ExportCSV writes the full donation history as CSV, newest first.
// Fields containing separators or quotes are escaped by encoding/csv.
func (l *Ledger) ExportCSV(w io.Writer) error {
	sessions, err := l.Sessions()
	if err != nil {
		return err
	}

	rows := []exportRow{}
	for _, session := range sessions {
		sessionDate := session.Date.Format(sessionDateLayout)
		for _, donation := range session.Donations {
			rows = append(rows, exportRow{donation: donation, sessionDate: sessionDate})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].donation.Date.After(rows[j].donation.Date)
	})

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Datum", "Challenge", "Betrag", "Session"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.donation.Date.Format(dateLayout),
			row.donation.ChallengeTitle,
			fmt.Sprintf("%.2f", row.donation.Amount),
			row.sessionDate,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
