// Package export renders the round journal as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/game"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ContentType is the MIME type of BuildJournalCSV output.
const ContentType = "text/csv; charset=utf-8"

var journalHeader = []string{
	"date", "round_id", "word", "definition", "winner", "points",
	"wildcard", "choice", "player_count", "opponent_count",
}

// BuildJournalCSV writes entries with a header row. The output starts with a
// UTF-8 BOM and uses CRLF line endings so spreadsheets open it cleanly.
func BuildJournalCSV(entries []game.JournalEntry) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.Write(utf8BOM); err != nil {
		return nil, err
	}

	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true

	if err := writer.Write(journalHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.Date.UTC().Format(time.RFC3339),
			e.RoundID,
			e.Word,
			e.Definition,
			string(e.Winner),
			strconv.Itoa(e.PointsEarned),
			strconv.FormatBool(e.IsWildcard),
			strconv.Itoa(e.PlayerChoice),
			strconv.Itoa(e.PlayerCount),
			strconv.Itoa(e.OpponentCount),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ExportFilename(now time.Time) string {
	return fmt.Sprintf("lexicon-journal-%s.csv", now.Format("20060102"))
}

// SortEntriesForExport orders entries by completion time, oldest first.
func SortEntriesForExport(entries []game.JournalEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].RoundID < entries[j].RoundID
		}
		return entries[i].Date.Before(entries[j].Date)
	})
}
