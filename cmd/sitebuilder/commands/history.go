package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/buildstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	DB      string `required:"" type:"existingfile" help:"Build history database"`
	Limit   int    `default:"20" help:"Number of builds to list (0 for all)"`
	Outputs string `help:"List the outputs of this build ID instead"`
}

func (h *HistoryCmd) Run(g *Global, _ *CLI) error {
	store, err := buildstore.Open(h.DB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	if h.Outputs != "" {
		outputs, err := store.Outputs(ctx, h.Outputs)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, "PATH\tKIND\tSOURCE\tFINGERPRINT")
		for _, o := range outputs {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Path, o.Kind, o.Source, o.Fingerprint)
		}
		return tw.Flush()
	}

	builds, err := store.ListBuilds(ctx, h.Limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDURATION\tPOSTS\tPAGES\tSTATIC\tCHANGED\tSOURCE")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			b.ID, b.StartedAt.Local().Format(time.DateTime), b.Status, b.Duration().Round(time.Millisecond),
			b.Posts, b.Pages, b.Static, b.Changed, b.Source)
	}
	return tw.Flush()
}
