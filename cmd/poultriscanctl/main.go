// poultriscanctl — single Go binary driving the PoultriScan acquisition
// pipeline: unlock/baseline/scan/continuous/train/purge against a real or
// simulated hardware bundle, emitting structured events to the console and
// append-only CSV/JSON records to disk.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/poultriscan/poultriscan/internal/calibration"
	"github.com/poultriscan/poultriscan/internal/config"
	"github.com/poultriscan/poultriscan/internal/engine"
	"github.com/poultriscan/poultriscan/internal/events"
	"github.com/poultriscan/poultriscan/internal/frame"
	"github.com/poultriscan/poultriscan/internal/hal"
	"github.com/poultriscan/poultriscan/internal/hal/sim"
	"github.com/poultriscan/poultriscan/internal/identity"
	"github.com/poultriscan/poultriscan/internal/output"
	"github.com/poultriscan/poultriscan/internal/persist"
	"github.com/poultriscan/poultriscan/internal/reportdiff"
	"github.com/poultriscan/poultriscan/internal/runner"
)

var version = "0.1.0"

func main() {
	var (
		configPath string
		simulate   bool
		quiet      bool
	)

	rootCmd := &cobra.Command{
		Use:     "poultriscanctl",
		Short:   "PoultriScan meat-quality appraisal instrument control",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "use a simulated hardware bundle instead of real I2C/GPIO")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress Log/Progress console output")

	newRunner := func() (*runner.Runner, config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, cfg, err
		}
		table, err := calibration.Load(cfg.CalibrationPath)
		if err != nil {
			return nil, cfg, err
		}

		var bundle *hal.Bundle
		if simulate {
			bundle = sim.NewBundle(1)
		} else {
			bundle, err = newHardwareBundle(cfg)
			if err != nil {
				return nil, cfg, err
			}
		}

		r := runner.New(bundle, table, func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		})
		return r, cfg, nil
	}

	rootCmd.AddCommand(
		unlockCmd(),
		baselineCmd(&newRunner, &quiet),
		scanCmd(&newRunner, &quiet),
		continuousCmd(&newRunner, &quiet),
		trainCmd(&newRunner, &quiet),
		purgeCmd(&newRunner, &quiet),
		baselineDiffCmd(),
		capabilitiesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Acknowledge the operator unlock gate (Locked -> NeedsInit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("unlocked: ready to run baseline")
			return nil
		},
	}
}

func baselineCmd(newRunner *func() (*runner.Runner, config.Config, error), quiet *bool) *cobra.Command {
	var operator string
	var outPath string
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Run pre-purge and capture a new gas/env baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cfg, err := (*newRunner)()
			if err != nil {
				return err
			}
			ctx, stop := runner.WithSignals(context.Background())
			defer stop()

			sink := events.NewChanSink(32)
			var b frame.Baseline
			err = output.RunWithConsole(sink, *quiet, func() error {
				var runErr error
				b, runErr = r.RunBaselineSequence(ctx, sink, operator)
				return runErr
			})
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = filepath.Join(cfg.DataDir, "baselines", fmt.Sprintf("%d.json", b.Timestamp.Unix()))
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			if err := output.WriteBaselineJSON(b, outPath); err != nil {
				return err
			}
			historyPath := filepath.Join(cfg.DataDir, "baseline_collection.csv")
			return persist.AppendBaselineHistory(persist.NewBaselineHistoryAppender(historyPath), b)
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator name recorded with the baseline")
	cmd.Flags().StringVar(&outPath, "out", "", "baseline JSON output path (default: <data_dir>/baselines/<ts>.json)")
	return cmd
}

func scanCmd(newRunner *func() (*runner.Runner, config.Config, error), quiet *bool) *cobra.Command {
	var meatType, storage string
	var archive bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one dashboard scan and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cfg, err := (*newRunner)()
			if err != nil {
				return err
			}
			ctx, stop := runner.WithSignals(context.Background())
			defer stop()

			reportPath := filepath.Join(cfg.DataDir, "poultri_scan_report.csv")
			sampleID, err := identity.NextReportID(reportPath, meatType)
			if err != nil {
				return err
			}
			meta := frame.Meta{SampleID: sampleID, MeatType: meatType, Storage: storage}

			sink := events.NewChanSink(32)
			var result engine.ScanResult
			err = output.RunWithConsole(sink, *quiet, func() error {
				var runErr error
				result, runErr = r.RunScan(ctx, sink, meta)
				return runErr
			})
			if err != nil {
				return err
			}

			fmt.Printf("sample %s: grade %s (%s), enose=%d whc=%d fac=%d myo=%d\n",
				sampleID, result.Verdict.Grade, result.Verdict.Category,
				result.Verdict.EnoseIdx, result.Verdict.WHCIdx, result.Verdict.FACIdx, result.Verdict.MyoIdx)

			if !archive {
				return nil
			}

			if err := persist.AppendReport(persist.NewReportAppender(reportPath), result.Aggregate, result.Verdict); err != nil {
				return err
			}
			rawPath := filepath.Join(cfg.DataDir, "raw_database_log.csv")
			rawAppender := persist.NewRawDatabaseAppender(rawPath)
			for _, shot := range result.AllShots {
				if err := persist.AppendRawDatabase(rawAppender, shot); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&meatType, "meat-type", "chicken", "meat type, used as the report ID type prefix")
	cmd.Flags().StringVar(&storage, "storage", "", "storage condition label")
	cmd.Flags().BoolVar(&archive, "archive", false, "append the scan to the report and raw-database CSVs")
	return cmd
}

func continuousCmd(newRunner *func() (*runner.Runner, config.Config, error), quiet *bool) *cobra.Command {
	var durationFlag string
	cmd := &cobra.Command{
		Use:   "continuous",
		Short: "Run the continuous monitor until interrupted or --duration elapses",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cfg, err := (*newRunner)()
			if err != nil {
				return err
			}
			ctx, stop := runner.WithSignals(context.Background())
			defer stop()

			running := engine.NewContinuousRunning()
			if durationFlag != "" {
				d, err := time.ParseDuration(durationFlag)
				if err != nil {
					return fmt.Errorf("invalid --duration: %w", err)
				}
				go func() {
					select {
					case <-time.After(d):
						running.Stop()
					case <-ctx.Done():
					}
				}()
			}
			go func() {
				<-ctx.Done()
				running.Stop()
			}()

			rawPath := filepath.Join(cfg.DataDir, "continuous_raw_data.csv")
			avgPath := filepath.Join(cfg.DataDir, "continuous_averaged_data.csv")
			sink := events.NewChanSink(64)
			return output.RunWithConsole(sink, *quiet, func() error {
				return r.RunContinuous(ctx, sink, running, rawPath, avgPath)
			})
		},
	}
	cmd.Flags().StringVar(&durationFlag, "duration", "", "stop automatically after this long (e.g. 10m); default runs until interrupted")
	return cmd
}

func trainCmd(newRunner *func() (*runner.Runner, config.Config, error), quiet *bool) *cobra.Command {
	var meatType, storage, label string
	var hour, replica int
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run a 3-block training capture and append the canonical row",
		RunE: func(cmd *cobra.Command, args []string) error {
			if label == "" {
				return fmt.Errorf("train: --label is required (Fresh|Semi-Fresh|Semi-Degraded|Spoiled)")
			}
			r, cfg, err := (*newRunner)()
			if err != nil {
				return err
			}
			ctx, stop := runner.WithSignals(context.Background())
			defer stop()

			canonicalPath := filepath.Join(cfg.DataDir, "data_collection_v3_mq3_no_uvir.csv")
			sampleID, err := identity.NextTrainingID(canonicalPath, meatType, storage)
			if err != nil {
				return err
			}
			meta := frame.Meta{SampleID: sampleID, MeatType: meatType, Storage: storage, Hour: hour, Replica: replica}

			rawBlockPath := filepath.Join(cfg.DataDir, "raw_block_data_v3_mq3_no_uvir.csv")
			sink := events.NewChanSink(64)
			var result engine.TrainingResult
			err = output.RunWithConsole(sink, *quiet, func() error {
				var runErr error
				result, runErr = r.RunTraining(ctx, sink, meta, rawBlockPath)
				return runErr
			})
			if err != nil {
				return err
			}

			fmt.Printf("training sample %s captured, labelling as %s\n", sampleID, label)
			return persist.AppendTrainingCanonical(persist.NewTrainingCanonicalAppender(canonicalPath), result.Final, label)
		},
	}
	cmd.Flags().StringVar(&meatType, "meat-type", "chicken", "meat type")
	cmd.Flags().StringVar(&storage, "storage", "room", "storage condition")
	cmd.Flags().IntVar(&hour, "hour", 0, "hours since slaughter")
	cmd.Flags().IntVar(&replica, "replica", 1, "replica index")
	cmd.Flags().StringVar(&label, "label", "", "ground-truth spoilage label (Fresh|Semi-Fresh|Semi-Degraded|Spoiled)")
	return cmd
}

func purgeCmd(newRunner *func() (*runner.Runner, config.Config, error), quiet *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Run the dynamic purge controller against the current baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := (*newRunner)()
			if err != nil {
				return err
			}
			baselineSink := events.NewChanSink(8)
			if err := output.RunWithConsole(baselineSink, *quiet, func() error {
				_, err := r.RunBaselineSequence(context.Background(), baselineSink, "purge-cli")
				return err
			}); err != nil {
				return err
			}
			ctx, stop := runner.WithSignals(context.Background())
			defer stop()

			sink := events.NewChanSink(32)
			var reason engine.PurgeReason
			err = output.RunWithConsole(sink, *quiet, func() error {
				var runErr error
				reason, runErr = r.RunPurgeOnly(ctx, sink)
				return runErr
			})
			if err != nil {
				return err
			}
			fmt.Println("purge stopped:", reason)
			return nil
		},
	}
}

func baselineDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "baseline-diff <old.json> <new.json>",
		Short: "Compare two persisted baseline JSON files and report drifted channels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldBaseline, err := output.ReadBaselineJSON(args[0])
			if err != nil {
				return err
			}
			newBaseline, err := output.ReadBaselineJSON(args[1])
			if err != nil {
				return err
			}
			fmt.Print(reportdiff.Format(reportdiff.Diff(oldBaseline, newBaseline)))
			return nil
		},
	}
}

func capabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show build info and profile presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("poultriscanctl", version)
			fmt.Println("run id:", uuid.NewString())
			fmt.Println("profiles:")
			for _, name := range config.ProfileNames() {
				fmt.Println(" -", config.GetProfile(name))
			}
			return nil
		},
	}
}
