package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"neontrail/internal/config"
	"neontrail/internal/server"
	"neontrail/pkg/neontrail"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "neontrail",
		Short:        "Light-cycle arena with evolving AI opponents",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type configFlags struct {
	path   string
	seed   int64
	mobile bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "config", "c", "", "YAML tuning file")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed (0 keeps the configured seed)")
	cmd.Flags().BoolVar(&f.mobile, "mobile", false, "use the reduced collision and index cadence")
}

func (f *configFlags) load() (*neontrail.Config, error) {
	cfg := neontrail.DefaultConfig()
	if f.path != "" {
		loaded, err := neontrail.LoadConfig(f.path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.seed != 0 {
		cfg.Seed = f.seed
	}
	if f.mobile {
		cfg.Throttle = config.MobileThrottle()
	}
	return cfg, cfg.Validate()
}

func runCmd() *cobra.Command {
	var (
		flags     configFlags
		ticks     int
		rounds    int
		asJSON    bool
		autopilot bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate rounds headless and print their statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := log.New(cmd.ErrOrStderr(), "[neontrail] ", log.LstdFlags)
			engine, err := neontrail.NewEngine(cfg, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for r := 0; r < rounds; r++ {
				if err := playRound(engine, ticks, autopilot); err != nil {
					return err
				}
				stats := engine.Stats()
				if asJSON {
					if err := enc.Encode(stats); err != nil {
						return err
					}
					continue
				}
				printStats(cmd, r+1, stats)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&ticks, "ticks", "t", 60*60, "tick limit per round")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 1, "number of rounds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON lines")
	cmd.Flags().BoolVar(&autopilot, "autopilot", true, "let the autopilot steer the player")
	return cmd
}

func playRound(engine *neontrail.Engine, ticks int, autopilot bool) error {
	if _, err := engine.NewRound(); err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}
	for i := 0; i < ticks; i++ {
		if autopilot {
			if err := engine.Drive(); err != nil {
				return err
			}
		}
		rep, err := engine.Step()
		if err != nil {
			return err
		}
		if rep.GameOver {
			break
		}
	}
	return nil
}

func printStats(cmd *cobra.Command, round int, stats neontrail.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Round %d (%s)\n", round, stats.Round)
	fmt.Fprintf(out, "  state:      %s after %d ticks (%.1fs)\n", stats.State, stats.Tick, stats.Time)
	fmt.Fprintf(out, "  score:      %d (tail %d)\n", stats.Score, stats.TailLength)
	fmt.Fprintf(out, "  generation: %d with %d AIs, %d crashes\n", stats.Generation, stats.AIs, stats.AICrashes)
	pop := stats.Population
	fmt.Fprintf(out, "  avoid:      %.2f ± %.2f\n", pop.AvoidDistance.Mean, pop.AvoidDistance.StdDev)
	fmt.Fprintf(out, "  powerup:    %.2f ± %.2f\n", pop.PowerupWeight.Mean, pop.PowerupWeight.StdDev)
}

func serveCmd() *cobra.Command {
	var (
		flags configFlags
		addr  string
		tick  time.Duration
		delay time.Duration
		drive bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run rounds continuously and stream them to websocket spectators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := log.New(cmd.ErrOrStderr(), "[neontrail] ", log.LstdFlags)
			engine, err := neontrail.NewEngine(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			srv := server.New(engine, server.Options{
				Addr:         addr,
				TickInterval: tick,
				RestartDelay: delay,
				Autopilot:    drive,
				Logger:       logger,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "HTTP listen address")
	cmd.Flags().DurationVar(&tick, "tick", server.DefaultTickInterval, "wall-clock time per tick")
	cmd.Flags().DurationVar(&delay, "restart-delay", server.DefaultRestartDelay, "pause between rounds")
	cmd.Flags().BoolVar(&drive, "autopilot", false, "steer the player when no spectator does")
	return cmd
}

func configCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective tuning as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
