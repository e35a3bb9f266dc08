package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	headline = color.New(color.FgCyan, color.Bold)
	rankTint = color.New(color.FgGreen, color.Bold)
	failTint = color.New(color.FgRed, color.Bold)
	dimTint  = color.New(color.Faint)
)

// Render writes a finished task in a readable form. Failed tasks print
// the failure reason instead of a ranking.
func Render(w io.Writer, view TaskView) {
	if view.Error != "" || view.Result == nil {
		failTint.Fprintf(w, "Brainstorm %s failed", view.TaskID)
		fmt.Fprintln(w)
		if view.Error != "" {
			fmt.Fprintf(w, "  %s\n", view.Error)
		}
		return
	}

	res := view.Result
	headline.Fprintf(w, "Brainstorm results: %s", res.Topic)
	fmt.Fprintln(w)
	dimTint.Fprintf(w, "%d ideas generated, %d prioritized", res.TotalIdeas, len(res.PrioritizedIdeas))
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	for _, item := range res.PrioritizedIdeas {
		rankTint.Fprintf(w, "%d.", item.Rank)
		fmt.Fprintf(w, " %s\n", item.Idea)
		if item.Rationale != "" {
			dimTint.Fprintf(w, "   %s", item.Rationale)
			fmt.Fprintln(w)
		}
	}
}
