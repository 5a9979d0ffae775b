// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import "time"

// Game modes as stored in UserState.
const (
	ModePvP = "pvp"
	ModePvE = "pve"
)

// CurrentVersion is the UserState schema version written by this service.
const CurrentVersion = 2

// TaskCompletion records a task outcome.
type TaskCompletion struct {
	Complete  bool  `json:"complete"`
	Failed    bool  `json:"failed,omitempty"`
	Timestamp int64 `json:"timestamp,omitempty"`
	// Manual marks a state set by the user rather than derived.
	Manual bool `json:"manual,omitempty"`
}

// ObjectiveProgress tracks a counted objective or hideout part.
type ObjectiveProgress struct {
	Complete  bool  `json:"complete"`
	Count     int   `json:"count,omitempty"`
	Timestamp int64 `json:"timestamp,omitempty"`
}

// HideoutModule records a built station level.
type HideoutModule struct {
	Complete  bool  `json:"complete"`
	Timestamp int64 `json:"timestamp,omitempty"`
	Manual    bool  `json:"manual,omitempty"`
}

// TraderProgress is the loyalty state with one trader.
type TraderProgress struct {
	Level      int     `json:"level"`
	Reputation float64 `json:"reputation"`
	Timestamp  int64   `json:"timestamp,omitempty"`
}

// StoryObjective is one step of a story chapter.
type StoryObjective struct {
	Complete  bool  `json:"complete"`
	Timestamp int64 `json:"timestamp,omitempty"`
}

// StoryChapter tracks a story chapter and its objectives.
type StoryChapter struct {
	Complete   bool                      `json:"complete"`
	Timestamp  int64                     `json:"timestamp,omitempty"`
	Objectives map[string]StoryObjective `json:"objectives,omitempty"`
}

// UserProgressData is the progress for one game mode.
type UserProgressData struct {
	Level         int    `json:"level"`
	PMCFaction    string `json:"pmcFaction,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	XPOffset      int    `json:"xpOffset,omitempty"`
	PrestigeLevel int    `json:"prestigeLevel,omitempty"`
	UpdatedAt     int64  `json:"updatedAt,omitempty"`

	TaskCompletions map[string]TaskCompletion    `json:"taskCompletions,omitempty"`
	TaskObjectives  map[string]ObjectiveProgress `json:"taskObjectives,omitempty"`
	HideoutParts    map[string]ObjectiveProgress `json:"hideoutParts,omitempty"`
	HideoutModules  map[string]HideoutModule     `json:"hideoutModules,omitempty"`
	SkillOffsets    map[string]float64           `json:"skillOffsets,omitempty"`
	Traders         map[string]TraderProgress    `json:"traders,omitempty"`
	StoryChapters   map[string]StoryChapter      `json:"storyChapters,omitempty"`
}

// UserState is the persisted progress document of one user.
type UserState struct {
	CurrentGameMode string           `json:"currentGameMode"`
	GameEdition     int              `json:"gameEdition"`
	PvP             UserProgressData `json:"pvp"`
	PvE             UserProgressData `json:"pve"`
	Version         int              `json:"version"`
}

// NewUserState returns an empty state in PvP mode.
func NewUserState() UserState {
	return UserState{
		CurrentGameMode: ModePvP,
		GameEdition:     1,
		PvP:             UserProgressData{Level: 1},
		PvE:             UserProgressData{Level: 1},
		Version:         CurrentVersion,
	}
}

// Mode returns the progress for a state game mode, or nil for unknown modes.
func (s *UserState) Mode(mode string) *UserProgressData {
	switch mode {
	case ModePvP:
		return &s.PvP
	case ModePvE:
		return &s.PvE
	default:
		return nil
	}
}

// IsStateMode reports whether mode names a UserState slot.
func IsStateMode(mode string) bool {
	return mode == ModePvP || mode == ModePvE
}

// UpstreamMode maps a state mode to the tarkov.dev game mode.
func UpstreamMode(mode string) string {
	if mode == ModePvE {
		return "pve"
	}
	return "regular"
}

// StateMode maps a tarkov.dev game mode to the state slot.
func StateMode(gameMode string) string {
	if gameMode == "pve" {
		return ModePvE
	}
	return ModePvP
}

// Millis converts t to a record timestamp.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
