package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader matches the report format learners already import into
// spreadsheets. Column order is part of the contract.
var csvHeader = []string{
	"Time", "Chapter", "Sentence", "User Speech",
	"Pronunciation", "Intonation", "Speed", "Total Score",
}

// WriteCSV renders the attempt log as a CSV report. Text fields are quoted
// by the csv writer as needed; timestamps are local wall-clock times.
func WriteCSV(w io.Writer, attempts []Attempt) error {
	// UTF-8 BOM so spreadsheet applications pick up the encoding.
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("results: write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("results: write header: %w", err)
	}
	for _, a := range attempts {
		record := []string{
			a.Timestamp.Local().Format("15:04:05"),
			a.ChapterTitle,
			a.SentenceText,
			a.RecognizedText,
			formatScore(a.Scores.Pronunciation),
			formatScore(a.Scores.Intonation),
			formatScore(a.Scores.Speed),
			formatScore(a.Scores.TotalSync),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("results: write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("results: flush csv: %w", err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
