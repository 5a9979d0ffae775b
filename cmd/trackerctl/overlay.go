// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/tarkovtracker/internal/overlay"
)

func newOverlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Work with overlay documents",
	}
	cmd.AddCommand(newOverlayApplyCmd())
	return cmd
}

func newOverlayApplyCmd() *cobra.Command {
	var (
		overlayPath string
		gameMode    string
	)
	cmd := &cobra.Command{
		Use:   "apply PAYLOAD",
		Short: "Apply an overlay document to a saved GraphQL response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			svc := overlay.NewService(overlay.FileSource{Path: overlayPath}, overlay.Config{})
			// Apply serves the payload unpatched when the overlay cannot
			// load, so surface load errors first.
			if err := svc.Refresh(cmd.Context()); err != nil {
				return err
			}
			doc, _ := svc.Document(cmd.Context(), false)
			if v := doc.Version(); v != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "overlay version %s\n", v)
			}

			patched, err := svc.Apply(cmd.Context(), body, gameMode, overlay.ApplyOptions{})
			if err != nil {
				return err
			}
			return writeOutput(cmd, patched)
		},
	}
	cmd.Flags().StringVar(&overlayPath, "overlay", "", "overlay document file")
	cmd.Flags().StringVar(&gameMode, "game-mode", "regular", "tarkov.dev game mode: regular or pve")
	_ = cmd.MarkFlagRequired("overlay")
	return cmd
}
