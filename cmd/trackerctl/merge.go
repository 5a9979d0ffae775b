// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tarkovtracker/internal/progress"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge LOCAL REMOTE",
		Short: "Merge two progress documents of the same user",
		Long: "Merge reconciles two exports of a progress document with the same rules " +
			"the server applies on sync. Legacy single-mode documents are migrated first.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := loadState(cmd, args[0])
			if err != nil {
				return err
			}
			remote, err := loadState(cmd, args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd, progress.MergeUserState(local, remote))
		},
	}
}

func loadState(cmd *cobra.Command, path string) (progress.UserState, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return progress.UserState{}, err
	}
	state, migrated, err := progress.DecodeUserState(data)
	if err != nil {
		return progress.UserState{}, fmt.Errorf("%s: %w", path, err)
	}
	if migrated {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: migrated legacy document into pvp\n", path)
	}
	return state, nil
}
