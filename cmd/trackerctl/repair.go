// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tarkovtracker/internal/overlay"
	"github.com/tomtom215/tarkovtracker/internal/progress"
)

type repairOptions struct {
	taskFiles   []string
	hideoutFile string
	overlayFile string
	mode        string
}

func newRepairCmd() *cobra.Command {
	opts := &repairOptions{}
	cmd := &cobra.Command{
		Use:   "repair STATE",
		Short: "Run the consistency repairs on a progress document",
		Long: "Repair resets failures that no longer have a cause, grants hideout levels implied " +
			"by the game edition and removes hideout levels whose prerequisites are unmet. " +
			"Reference data is read from saved GraphQL responses.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.taskFiles, "tasks", nil, "GraphQL responses holding data.tasks (repeatable)")
	cmd.Flags().StringVar(&opts.hideoutFile, "hideout", "", "GraphQL response holding data.hideoutStations")
	cmd.Flags().StringVar(&opts.overlayFile, "overlay", "", "overlay document providing game editions")
	cmd.Flags().StringVar(&opts.mode, "mode", "all", "game mode to repair: pvp, pve or all")
	_ = cmd.MarkFlagRequired("tasks")
	return cmd
}

func runRepair(cmd *cobra.Command, statePath string, opts *repairOptions) error {
	modes := []string{progress.ModePvP, progress.ModePvE}
	if opts.mode != "all" {
		if !progress.IsStateMode(opts.mode) {
			return fmt.Errorf("unknown mode %q", opts.mode)
		}
		modes = []string{opts.mode}
	}

	state, err := loadState(cmd, statePath)
	if err != nil {
		return err
	}

	var taskLists [][]progress.Task
	for _, path := range opts.taskFiles {
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		tasks, err := progress.ParseTasks(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		taskLists = append(taskLists, tasks)
	}

	var stations []progress.Station
	if opts.hideoutFile != "" {
		data, err := readInput(cmd, opts.hideoutFile)
		if err != nil {
			return err
		}
		if stations, err = progress.ParseStations(data); err != nil {
			return fmt.Errorf("%s: %w", opts.hideoutFile, err)
		}
	}

	var doc *overlay.Document
	if opts.overlayFile != "" {
		data, err := readInput(cmd, opts.overlayFile)
		if err != nil {
			return err
		}
		if doc, err = overlay.ParseDocument(data); err != nil {
			return fmt.Errorf("%s: %w", opts.overlayFile, err)
		}
	}

	now := time.Now()
	for _, mode := range modes {
		ref := &progress.Reference{
			Tasks:    progress.NewTaskIndex(taskLists...),
			Stations: progress.NewStationIndex(stations),
		}
		if doc != nil {
			layer, _ := doc.Layer(progress.UpstreamMode(mode))["editions"].(map[string]any)
			if ref.Editions, err = progress.ParseEditions(layer); err != nil {
				return err
			}
		}

		report := progress.RepairMode(state.Mode(mode), ref, state.GameEdition, now)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: failedTasks=%d editionHideout=%d hideoutPrereqs=%d\n",
			mode, report.FailedTasks, report.EditionHideout, report.HideoutPrereqs)
	}
	return writeJSON(cmd, state)
}
