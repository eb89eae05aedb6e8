package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Carmen-Shannon/oxy-avatar/engine/avatar"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		loadClips bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a manifest and optionally load every clip",
		Long: `Checks the manifest for empty or duplicate names, missing sources, a missing idle
animation, negative durations and unknown loop modes.

With --load the model and every clip are loaded and the compatibility of each clip
with the model skeleton is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !loadClips {
				fmt.Fprintf(out, "%s: ok (%d animations)\n", args[0], len(m.Names()))
				return nil
			}

			av, err := a.open(m)
			if err != nil {
				return err
			}
			defer av.Close()

			av.Load()
			if err := waitReady(av, timeout); err != nil {
				return err
			}
			return report(out, av)
		},
	}
	cmd.Flags().BoolVar(&loadClips, "load", false, "load the model and every clip and report compatibility")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for clip loads")
	return cmd
}

// waitReady drains loader results until every manifest animation is registered.
func waitReady(av avatar.Avatar, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		av.Advance(0)
		if av.Ready() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %v", av.Registry().Pending())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// report prints one row per registered animation and fails if idle cannot play.
func report(out io.Writer, av avatar.Avatar) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ANIMATION\tCOMPATIBLE\tTRACKS\tDURATION\tERROR")
	for _, name := range av.Registry().Names() {
		e, _ := av.Registry().Get(name)
		errText := "-"
		if e.Err != nil {
			errText = e.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%t\t%d\t%.2fs\t%s\n", name, e.Compatible, len(e.Clip.Tracks), e.Clip.Duration, errText)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	idle := av.Controller().IdleName()
	if e, ok := av.Registry().Get(idle); !ok || !e.Playable() {
		return fmt.Errorf("idle animation %q is not playable on this model", idle)
	}
	return nil
}
