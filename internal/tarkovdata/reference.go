// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package tarkovdata

import (
	"context"
	"fmt"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/progress"
)

// Reference implements progress.ReferenceProvider. mode is a state game
// mode (pvp or pve).
func (s *Service) Reference(ctx context.Context, mode string) (*progress.Reference, error) {
	now := s.now()
	s.refMu.Lock()
	if c, ok := s.refs[mode]; ok && now.Before(c.expires) {
		s.refMu.Unlock()
		return c.ref, nil
	}
	s.refMu.Unlock()

	v, err, _ := s.refGroup.Do(mode, func() (any, error) {
		ref, err := s.loadReference(ctx, mode)
		if err != nil {
			return nil, err
		}
		s.refMu.Lock()
		s.refs[mode] = cachedReference{ref: ref, expires: s.now().Add(s.ttl)}
		s.refMu.Unlock()
		return ref, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*progress.Reference), nil
}

// InvalidateReference drops memoized reference data for every mode.
func (s *Service) InvalidateReference() {
	s.refMu.Lock()
	s.refs = make(map[string]cachedReference)
	s.refMu.Unlock()
}

func (s *Service) loadReference(ctx context.Context, mode string) (*progress.Reference, error) {
	gameMode := progress.UpstreamMode(mode)

	var taskLists [][]progress.Task
	for _, name := range []string{"tasks-core", "tasks-rewards"} {
		res, err := s.Dataset(ctx, nil, Request{Dataset: name, GameMode: gameMode})
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		tasks, err := progress.ParseTasks(res.Body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		taskLists = append(taskLists, tasks)
	}

	res, err := s.Dataset(ctx, nil, Request{Dataset: "hideout", GameMode: gameMode})
	if err != nil {
		return nil, fmt.Errorf("load hideout: %w", err)
	}
	stations, err := progress.ParseStations(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse hideout: %w", err)
	}

	ref := &progress.Reference{
		Tasks:    progress.NewTaskIndex(taskLists...),
		Stations: progress.NewStationIndex(stations),
	}

	layer, err := s.Editions(ctx, gameMode)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("mode", mode).Msg("Game editions unavailable, hideout edition defaults disabled")
		return ref, nil
	}
	if ref.Editions, err = progress.ParseEditions(layer); err != nil {
		return nil, fmt.Errorf("parse editions: %w", err)
	}
	return ref, nil
}
