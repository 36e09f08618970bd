package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/game"
)

func sampleEntries() []game.JournalEntry {
	return []game.JournalEntry{
		{
			RoundID:       "r2",
			Word:          "laconic",
			Definition:    "using very few words, \"terse\"",
			Winner:        game.WinnerOpponent,
			PointsEarned:  -10,
			IsWildcard:    true,
			PlayerChoice:  1,
			PlayerCount:   0,
			OpponentCount: 0,
			Date:          time.Date(2025, 4, 3, 9, 30, 0, 0, time.UTC),
		},
		{
			RoundID:       "r1",
			Word:          "ubiquitous",
			Definition:    "found everywhere",
			Winner:        game.WinnerPlayer,
			PointsEarned:  10,
			PlayerChoice:  0,
			PlayerCount:   3,
			OpponentCount: 1,
			Date:          time.Date(2025, 4, 2, 18, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
		},
	}
}

func TestBuildJournalCSV(t *testing.T) {
	data, err := BuildJournalCSV(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, utf8BOM) {
		t.Fatalf("expected UTF-8 BOM prefix")
	}
	if !bytes.Contains(data, []byte("\r\n")) {
		t.Fatalf("expected CRLF line endings")
	}

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(journalHeader, ",") {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][3] != "using very few words, \"terse\"" {
		t.Fatalf("definition not quoted correctly: %q", records[1][3])
	}
	if records[1][5] != "-10" || records[1][6] != "true" {
		t.Fatalf("unexpected wildcard loss row %v", records[1])
	}
	if records[2][0] != "2025-04-02T16:00:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", records[2][0])
	}
}

func TestBuildJournalCSVEmpty(t *testing.T) {
	data, err := BuildJournalCSV(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(bytes.TrimPrefix(data, utf8BOM)); got != strings.Join(journalHeader, ",")+"\r\n" {
		t.Fatalf("expected header only, got %q", got)
	}
}

func TestSortEntriesForExport(t *testing.T) {
	entries := sampleEntries()
	SortEntriesForExport(entries)
	if entries[0].RoundID != "r1" || entries[1].RoundID != "r2" {
		t.Fatalf("unexpected order %s, %s", entries[0].RoundID, entries[1].RoundID)
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename(time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC))
	if got != "lexicon-journal-20250403.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
