package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/care-scheduler-api/internal/app"
	"github.com/arnavshah/care-scheduler-api/internal/config"
	"github.com/arnavshah/care-scheduler-api/internal/logging"
	"github.com/arnavshah/care-scheduler-api/pkg/assignment"
	"github.com/arnavshah/care-scheduler-api/pkg/database"
	"github.com/arnavshah/care-scheduler-api/pkg/models"
	"github.com/arnavshah/care-scheduler-api/pkg/scheduler"
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan assignments for a JSON snapshot",
		Long:  "Run the planner on a {shifts, staff} JSON snapshot and print the resulting plan. Nothing is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			enforceCap, _ := cmd.Flags().GetBool("enforce-weekly-cap")

			in := io.Reader(os.Stdin)
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("failed to open snapshot: %w", err)
				}
				defer f.Close()
				in = f
			}

			return planSnapshot(in, cmd.OutOrStdout(), enforceCap)
		},
	}

	cmd.Flags().StringP("input", "i", "", "Snapshot file (default stdin)")
	cmd.Flags().Bool("enforce-weekly-cap", false, "Reject staff who would pass their weekly hour limit")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Auto-assign shifts stored in the database",
		Long:  "Load schedulable shifts and active staff from the configured database, fill open slots and save the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			service := assignment.NewService(database.NewRepository(db), app.NewPlanner(cfg, logger), logger)
			req := assignment.Request{Date: date}

			logger.Debug("run command", zap.String("date", date), zap.Bool("dry_run", dryRun))

			if dryRun {
				plan, err := service.Preview(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("auto-assign failed: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), plan)
			}

			result, err := service.AutoAssign(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("auto-assign failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringP("date", "d", "", "Only plan shifts on this date (YYYY-MM-DD)")
	cmd.Flags().Bool("dry-run", false, "Print the plan without saving it")
	return cmd
}

// planSnapshot decodes and validates a snapshot, plans it and writes the plan as JSON
func planSnapshot(in io.Reader, out io.Writer, enforceCap bool) error {
	var snapshot models.Snapshot
	if err := json.NewDecoder(in).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	v, err := models.NewValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(snapshot); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	planner := scheduler.NewPlanner()
	planner.EnforceWeeklyCap = enforceCap
	return writeJSON(out, planner.Plan(snapshot.Shifts, snapshot.Staff, nil))
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
