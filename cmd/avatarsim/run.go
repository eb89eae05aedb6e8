package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-avatar/engine"
	"github.com/Carmen-Shannon/oxy-avatar/engine/animator"
	"github.com/Carmen-Shannon/oxy-avatar/engine/avatar"
	"github.com/Carmen-Shannon/oxy-avatar/engine/crossfade"
	"github.com/Carmen-Shannon/oxy-avatar/engine/profiler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		script   string
		runFor   time.Duration
		tps      float64
		profile  bool
		maxDelta float32
	)
	cmd := &cobra.Command{
		Use:   "run <manifest>",
		Short: "Drive an avatar through a scripted sentiment sequence",
		Long: `Loads the manifest model and clips, then ticks the avatar at --tps for --for,
firing each script step when its time arrives. State changes are logged.

Script steps are comma separated "sentiment@time" pairs; "clip:name@time" plays a
registered animation once.

Example:
  avatarsim run avatar.yaml --script happy@1s,sad@2.5s,clip:wave@4s --for 6s --tps 60`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.load(args[0])
			if err != nil {
				return err
			}
			steps, err := parseScript(script)
			if err != nil {
				return err
			}
			logger := a.logger

			av, err := a.open(m,
				avatar.WithMixerOptions(animator.WithMaxDelta(maxDelta)),
				avatar.OnStateChange(func(s crossfade.Snapshot) {
					logger.Info("state changed",
						zap.Stringer("state", s.State),
						zap.String("current", s.Current),
						zap.String("from", s.From),
						zap.Float32("duration", s.Duration),
					)
				}),
			)
			if err != nil {
				return err
			}
			defer av.Close()
			av.Load()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runFor)
				defer cancel()
			}

			eng := engine.NewEngine(
				engine.WithTickRate(tps),
				engine.WithLogger(logger.Named("engine")),
				engine.WithProfiling(profile),
				engine.WithProfilerOptions(profiler.WithFields(func() []zap.Field {
					return []zap.Field{
						zap.Int("active_actions", av.Mixer().ActiveActions()),
						zap.Stringer("state", av.Snapshot().State),
					}
				})),
			)
			player := &scriptPlayer{steps: steps}
			eng.SetTickCallback(func(dt float32) {
				av.Advance(dt)
				due := player.advance(time.Duration(float64(dt) * float64(time.Second)))
				for _, step := range due {
					logger.Info("script step", zap.Stringer("step", step), zap.Bool("accepted", step.apply(av)))
				}
				if len(due) > 0 && player.done() {
					logger.Info("script exhausted", zap.Int("steps", len(steps)))
				}
			})

			if err := eng.Run(ctx); err != nil {
				return err
			}
			snap := av.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "finished after %d ticks: state=%s current=%s pending=%v\n",
				eng.Ticks(), snap.State, snap.Current, av.Registry().Pending())
			return nil
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "comma separated sentiment@time steps")
	cmd.Flags().DurationVar(&runFor, "for", 6*time.Second, "how long to run; 0 runs until interrupted")
	cmd.Flags().Float64Var(&tps, "tps", 60, "ticks per second")
	cmd.Flags().BoolVar(&profile, "profile", false, "log tick rate and memory statistics every second")
	cmd.Flags().Float32Var(&maxDelta, "max-delta", animator.DefaultMaxDelta, "largest tick delta in seconds handed to the mixer; 0 disables the cap")
	return cmd
}
