// Package matchexport writes completed matches to a spreadsheet.
package matchexport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/xuri/excelize/v2"
)

// Header is the first row of every export.
var Header = []string{"Round", "Identifier", "Player 1", "Score 1", "Player 2", "Score 2", "Winner", "Completed"}

// ErrNoMatches is returned when the tournament has nothing to export.
var ErrNoMatches = errors.New("no completed matches")

// Source lists completed matches.
type Source interface {
	ListCompletedByTournament(ctx context.Context, db bun.IDB, tournamentID uuid.UUID) ([]*matchdb.Match, error)
}

// Exporter renders a tournament's completed matches as xlsx.
type Exporter struct {
	source Source
	db     bun.IDB
}

// NewExporter returns an Exporter reading from source.
func NewExporter(source Source, db bun.IDB) *Exporter {
	return &Exporter{source: source, db: db}
}

// Export writes the tournament's completed matches to w.
func (e *Exporter) Export(ctx context.Context, tournamentID uuid.UUID, w io.Writer) (int, error) {
	matches, err := e.source.ListCompletedByTournament(ctx, e.db, tournamentID)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, ErrNoMatches
	}
	if err := WriteMatches(w, matches); err != nil {
		return 0, err
	}
	return len(matches), nil
}

// WriteMatches renders matches to w, one row per match.
func WriteMatches(w io.Writer, matches []*matchdb.Match) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := setRow(f, sheet, 1, toCells(Header)); err != nil {
		return err
	}

	for i, m := range matches {
		if err := setRow(f, sheet, i+2, matchRow(m)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func matchRow(m *matchdb.Match) []any {
	row := []any{m.RoundText, m.Identifier}
	for _, slot := range []int{1, 2} {
		p := m.PlayerBySlot(slot)
		if p == nil {
			row = append(row, "", "")
			continue
		}
		var score any = ""
		if p.ReportedScore != nil {
			score = *p.ReportedScore
		}
		row = append(row, p.PlayerName, score)
	}

	winner := ""
	if p := m.Winner(); p != nil {
		winner = p.PlayerName
	}
	return append(row, winner, m.UpdatedAt.UTC().Format("2006-01-02 15:04"))
}
