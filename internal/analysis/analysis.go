package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/ai"
	"github.com/facetrace/attendance/internal/attendance"
	"github.com/facetrace/attendance/internal/logger"
)

// Clamp bounds for the summary window, in days.
const (
	MinWindowDays = 1
	MaxWindowDays = 30
)

// DayCount holds per-status counts for one calendar day.
type DayCount struct {
	Day     string `json:"day"` // YYYY-MM-DD
	Weekday string `json:"weekday"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Excused int    `json:"excused"`
}

// Summary aggregates the ledger over a trailing window of calendar days
// ending yesterday.
type Summary struct {
	WindowDays   int        `json:"window_days"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	PerDay       []DayCount `json:"per_day"`
	TotalPresent int        `json:"total_present"`
	TotalAbsent  int        `json:"total_absent"`
	TotalExcused int        `json:"total_excused"`
	ActivePeople int        `json:"active_people"`
}

// Insight is a narrative reading of a summary. Source names the backend
// that produced the text: "heuristic" or an AI model name.
type Insight struct {
	Summary *Summary `json:"summary"`
	Text    string   `json:"text"`
	Source  string   `json:"source"`
}

// Analyzer computes attendance aggregates and narrative insights. The AI
// provider is optional; without one, insights fall back to a local
// heuristic narrative.
type Analyzer struct {
	ledger   *attendance.Ledger
	provider ai.Provider
	log      *zap.SugaredLogger
}

func NewAnalyzer(ledger *attendance.Ledger, provider ai.Provider, log *zap.SugaredLogger) *Analyzer {
	return &Analyzer{
		ledger:   ledger,
		provider: provider,
		log:      logger.Named(log, "analysis"),
	}
}

// clampWindow bounds the requested window to [MinWindowDays, MaxWindowDays].
func clampWindow(days int) int {
	if days < MinWindowDays {
		return MinWindowDays
	}
	if days > MaxWindowDays {
		return MaxWindowDays
	}
	return days
}

// Summary aggregates the window of `days` calendar days ending with the
// day before now. Today is excluded since it is still accumulating.
func (a *Analyzer) Summary(days int, now time.Time) (*Summary, error) {
	days = clampWindow(days)
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := end.AddDate(0, 0, -days)

	records, err := a.ledger.ListRange(start, end)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*DayCount{}
	people := map[string]bool{}
	sum := &Summary{
		WindowDays: days,
		From:       start.Format("2006-01-02"),
		To:         end.AddDate(0, 0, -1).Format("2006-01-02"),
	}
	for _, rec := range records {
		day := rec.Timestamp.Format("2006-01-02")
		dc, ok := byDay[day]
		if !ok {
			dc = &DayCount{Day: day, Weekday: rec.Timestamp.Weekday().String()}
			byDay[day] = dc
		}
		switch rec.Status {
		case attendance.StatusPresent:
			dc.Present++
			sum.TotalPresent++
			people[rec.IdentityID] = true
		case attendance.StatusAbsent:
			dc.Absent++
			sum.TotalAbsent++
		case attendance.StatusExcused:
			dc.Excused++
			sum.TotalExcused++
		}
	}
	sum.ActivePeople = len(people)

	for _, dc := range byDay {
		sum.PerDay = append(sum.PerDay, *dc)
	}
	sort.Slice(sum.PerDay, func(i, j int) bool { return sum.PerDay[i].Day < sum.PerDay[j].Day })
	return sum, nil
}

// Insights builds a narrative for the summary window. When useAI is set
// and a provider is configured, the narrative comes from the AI backend;
// any AI failure falls back to the local heuristic so the endpoint never
// fails on a flaky upstream.
func (a *Analyzer) Insights(ctx context.Context, days int, now time.Time, useAI bool) (*Insight, error) {
	sum, err := a.Summary(days, now)
	if err != nil {
		return nil, err
	}

	insight := &Insight{
		Summary: sum,
		Text:    heuristicNarrative(sum),
		Source:  "heuristic",
	}

	if useAI && a.provider != nil {
		text, err := a.provider.GenerateInsight(ctx, renderReport(sum))
		if err != nil {
			a.log.Warnw("AI insight failed, using heuristic narrative", logger.FieldError, err)
			return insight, nil
		}
		insight.Text = text
		insight.Source = a.provider.Name()
	}
	return insight, nil
}

// renderReport serializes a summary as the plain-text report fed to the
// AI provider.
func renderReport(sum *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance report %s to %s (%d days, %d active people)\n",
		sum.From, sum.To, sum.WindowDays, sum.ActivePeople)
	fmt.Fprintf(&b, "Totals: %d present, %d absent, %d excused\n",
		sum.TotalPresent, sum.TotalAbsent, sum.TotalExcused)
	for _, dc := range sum.PerDay {
		fmt.Fprintf(&b, "%s (%s): present=%d absent=%d excused=%d\n",
			dc.Day, dc.Weekday, dc.Present, dc.Absent, dc.Excused)
	}
	return b.String()
}

// heuristicNarrative produces a short local narrative: overall volume,
// trend between window halves, and the strongest and weakest weekdays.
func heuristicNarrative(sum *Summary) string {
	if len(sum.PerDay) == 0 {
		return fmt.Sprintf("No attendance records between %s and %s.", sum.From, sum.To)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d present marks across %d days from %d people.",
		sum.TotalPresent, len(sum.PerDay), sum.ActivePeople))

	if n := len(sum.PerDay); n >= 4 {
		half := n / 2
		firstAvg := averagePresent(sum.PerDay[:half])
		secondAvg := averagePresent(sum.PerDay[n-half:])
		switch {
		case secondAvg > firstAvg*1.1:
			parts = append(parts, fmt.Sprintf("Attendance is trending up (%.1f to %.1f present per day).", firstAvg, secondAvg))
		case secondAvg < firstAvg*0.9:
			parts = append(parts, fmt.Sprintf("Attendance is trending down (%.1f to %.1f present per day).", firstAvg, secondAvg))
		default:
			parts = append(parts, fmt.Sprintf("Attendance is stable at around %.1f present per day.", secondAvg))
		}
	}

	if best, worst, ok := weekdayExtremes(sum.PerDay); ok {
		parts = append(parts, fmt.Sprintf("Strongest weekday is %s, weakest is %s.", best, worst))
	}
	if sum.TotalAbsent > sum.TotalPresent {
		parts = append(parts, "Absences outnumber present marks; worth a closer look.")
	}
	return strings.Join(parts, " ")
}

func averagePresent(days []DayCount) float64 {
	if len(days) == 0 {
		return 0
	}
	total := 0
	for _, dc := range days {
		total += dc.Present
	}
	return float64(total) / float64(len(days))
}

// weekdayExtremes returns the weekdays with the highest and lowest average
// present count. Reports ok=false when fewer than two distinct weekdays
// are in the window.
func weekdayExtremes(days []DayCount) (best, worst string, ok bool) {
	totals := map[string]int{}
	counts := map[string]int{}
	for _, dc := range days {
		totals[dc.Weekday] += dc.Present
		counts[dc.Weekday]++
	}
	if len(totals) < 2 {
		return "", "", false
	}

	weekdays := make([]string, 0, len(totals))
	for wd := range totals {
		weekdays = append(weekdays, wd)
	}
	sort.Strings(weekdays) // deterministic pick on equal averages

	bestAvg, worstAvg := -1.0, -1.0
	for _, wd := range weekdays {
		avg := float64(totals[wd]) / float64(counts[wd])
		if bestAvg < 0 || avg > bestAvg {
			bestAvg, best = avg, wd
		}
		if worstAvg < 0 || avg < worstAvg {
			worstAvg, worst = avg, wd
		}
	}
	return best, worst, true
}
