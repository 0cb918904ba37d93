package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/quicksound/clip"
)

func newSpamCmd(c *cli) *cobra.Command {
	var (
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "spam",
		Short: "Fire the coin sound repeatedly and report how far the pool grew",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime(c.cfg)
			defer rt.Close()
			return spam(cmd, rt, count, interval)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of plays")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 30*time.Millisecond, "delay between plays")
	return cmd
}

func spam(cmd *cobra.Command, rt *runtime, count int, interval time.Duration) error {
	pool, err := rt.newPool(rt.cfg.Demo.Coin, clip.PolicyGrow)
	if err != nil {
		return err
	}
	defer pool.Close()

	out := cmd.OutOrStdout()
	peak := 0
	for i := 0; i < count; i++ {
		if err := pool.Play(); err != nil {
			return fmt.Errorf("play %d: %w", i+1, err)
		}
		peak = max(peak, pool.Playing())
		if interval > 0 && i < count-1 {
			time.Sleep(interval)
		}
	}

	st := pool.Stats()
	fmt.Fprintf(out, "pool %s  %s\n", pool.ID(), pool.Locator())
	fmt.Fprintf(out, "  channels     %d\n", pool.Len())
	fmt.Fprintf(out, "  absent       %d\n", pool.Absent())
	fmt.Fprintf(out, "  plays        %d\n", st.Plays)
	fmt.Fprintf(out, "  grows        %d\n", st.Grows)
	fmt.Fprintf(out, "  failed grows %d\n", st.FailedGrows)
	fmt.Fprintf(out, "  peak overlap %d\n", peak)
	if rt.dev.Silent() {
		fmt.Fprintln(out, "  (silent device, output discarded)")
	}
	return nil
}
