package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"srtvoice/internal/fitting"
	"srtvoice/internal/subtitle"
)

const maxTextWidth = 40

func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func RenderTable(r *Report, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle(fmt.Sprintf("%s (%s)", r.Source, r.RunID))

	tw.AppendHeader(table.Row{"#", "Start", "Window", "Avail", "Raw", "Final", "Over", "Place", "Outcome", "Text"})
	for _, c := range r.Cues {
		tw.AppendRow(table.Row{
			c.Index,
			subtitle.FormatTimestamp(c.StartMS),
			fmt.Sprintf("%d-%d", c.WindowStartMS, c.WindowEndMS),
			ms(c.AvailableMS),
			ms(c.RawDurationMS),
			ms(c.DurationMS),
			ms(c.OverflowMS),
			c.PlacementMS,
			outcomeCell(c, colorize),
			truncate(displayText(c)),
		})
	}

	summary := r.Summary()
	tw.AppendFooter(table.Row{
		"", "", "", "", "", "", ms(summary.OverflowMS), "", summaryCell(summary), fmt.Sprintf("%d cues", summary.Cues),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	return tw.Render()
}

func outcomeCell(c CueReport, colorize bool) string {
	label := c.Outcome
	if c.Error != "" {
		label = "failed"
	}
	if !colorize {
		return label
	}

	var colors text.Colors
	switch {
	case c.Error != "":
		colors = text.Colors{text.FgRed}
	case c.Outcome == string(fitting.OutcomeFit):
		colors = text.Colors{text.FgGreen}
	case c.Outcome == string(fitting.OutcomeStretched):
		colors = text.Colors{text.FgYellow}
	case c.Outcome == string(fitting.OutcomeForced):
		colors = text.Colors{text.FgRed}
	default:
		colors = text.Colors{text.FgBlue}
	}
	return colors.Sprint(label)
}

func summaryCell(s Summary) string {
	parts := make([]string, 0, 5)
	for _, o := range []fitting.Outcome{fitting.OutcomeFit, fitting.OutcomeStretched, fitting.OutcomeForced, fitting.OutcomeTextOnly} {
		if n := s.Outcomes[string(o)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", o, n))
		}
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("failed:%d", s.Failed))
	}
	return strings.Join(parts, " ")
}

func displayText(c CueReport) string {
	switch {
	case c.FinalText != "":
		return c.FinalText
	case c.TaggedText != "":
		return c.TaggedText
	default:
		return c.OriginalText
	}
}

func ms(v int) string {
	if v == 0 {
		return "-"
	}
	return strconv.Itoa(v)
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextWidth {
		return s
	}
	return string(runes[:maxTextWidth-1]) + "…"
}
