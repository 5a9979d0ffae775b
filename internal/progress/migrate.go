// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidState is returned for documents that are neither a UserState
// nor a legacy single-mode snapshot.
var ErrInvalidState = errors.New("invalid progress document")

// DecodeUserState decodes a stored or client supplied progress document.
// Legacy documents written before game modes existed hold a single
// UserProgressData at the top level; they are moved into the PvP slot and
// migrated reports true.
func DecodeUserState(data []byte) (state UserState, migrated bool, err error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return UserState{}, false, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if top == nil {
		return UserState{}, false, fmt.Errorf("%w: not an object", ErrInvalidState)
	}

	_, hasPvP := top[ModePvP]
	_, hasPvE := top[ModePvE]
	if hasPvP || hasPvE {
		state = NewUserState()
		if err := json.Unmarshal(data, &state); err != nil {
			return UserState{}, false, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		normalizeState(&state)
		return state, false, nil
	}

	if !isLegacySnapshot(top) {
		return UserState{}, false, fmt.Errorf("%w: no game mode data", ErrInvalidState)
	}

	var legacy struct {
		UserProgressData
		GameEdition int `json:"gameEdition"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return UserState{}, false, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	state = NewUserState()
	state.PvP = legacy.UserProgressData
	if legacy.GameEdition > 0 {
		state.GameEdition = legacy.GameEdition
	}
	normalizeState(&state)
	return state, true, nil
}

var legacyFields = []string{
	"level", "taskCompletions", "taskObjectives", "hideoutModules", "hideoutParts", "pmcFaction", "displayName",
}

func isLegacySnapshot(top map[string]json.RawMessage) bool {
	for _, f := range legacyFields {
		if _, ok := top[f]; ok {
			return true
		}
	}
	return false
}

func normalizeState(s *UserState) {
	if !IsStateMode(s.CurrentGameMode) {
		s.CurrentGameMode = ModePvP
	}
	if s.GameEdition <= 0 {
		s.GameEdition = 1
	}
	if s.PvP.Level <= 0 {
		s.PvP.Level = 1
	}
	if s.PvE.Level <= 0 {
		s.PvE.Level = 1
	}
	s.Version = CurrentVersion
}
