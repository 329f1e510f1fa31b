// Package export renders qualified leads and run statistics as JSON, CSV,
// or a human-readable table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want json, csv, or table)", s)
	}
}

// Report is the exported envelope: the qualified leads plus run statistics.
type Report struct {
	Leads []model.ScoredLead `json:"leads"`
	Stats model.RunStats     `json:"stats"`
}

// Write renders the report in the given format.
func Write(w io.Writer, format Format, report Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatCSV:
		return WriteCSV(w, report.Leads)
	case FormatTable:
		return WriteTable(w, report)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(report), "export: encode json")
}

var csvHeader = []string{
	"url", "name", "position", "company", "location", "industry",
	"experience_years", "company_size", "score", "matched_skills", "reasons",
}

// WriteCSV writes one row per lead. Multi-valued fields are joined with "; ".
func WriteCSV(w io.Writer, leads []model.ScoredLead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, lead := range leads {
		row := []string{
			lead.Profile.URL,
			lead.Profile.Name,
			lead.Profile.CurrentPosition,
			lead.Profile.CurrentCompany,
			lead.Profile.Location,
			lead.Profile.Industry,
			strconv.Itoa(lead.Profile.ExperienceYears),
			lead.Profile.CompanySize,
			strconv.FormatFloat(lead.TotalScore, 'f', 2, 64),
			strings.Join(lead.Breakdown.MatchedSkills, "; "),
			strings.Join(lead.QualificationReasons, "; "),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteTable writes an aligned table of leads followed by a stats summary.
func WriteTable(w io.Writer, report Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tNAME\tPOSITION\tCOMPANY\tLOCATION")
	fmt.Fprintln(tw, "-----\t----\t--------\t-------\t--------")
	for _, lead := range report.Leads {
		fmt.Fprintf(tw, "%.1f\t%s\t%s\t%s\t%s\n",
			lead.TotalScore,
			truncate(lead.Profile.Name, 25),
			truncate(lead.Profile.CurrentPosition, 30),
			truncate(lead.Profile.CurrentCompany, 25),
			truncate(lead.Profile.Location, 25),
		)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "export: flush table")
	}

	s := report.Stats
	fmt.Fprintf(w, "\n%d requested, %d fetched, %d failed, %d qualified (%.1f%% of fetched), avg score %.1f, elapsed %s\n",
		s.TotalRequested, s.Succeeded, s.Failed, s.Qualified,
		s.QualificationRate(), s.AverageScore, s.Elapsed.Round(time.Millisecond),
	)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
