// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import (
	"testing"
	"time"
)

var repairNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func choiceTasks() TaskIndex {
	return NewTaskIndex([]Task{
		{ID: "task-a"},
		{ID: "task-b"},
		{
			ID: "task-stale",
			FailConditions: []FailCondition{
				{Type: "taskStatus", Task: &Ref{ID: "task-a"}, Status: []string{"complete"}},
			},
		},
		{
			ID: "task-caused",
			FailConditions: []FailCondition{
				{Type: "taskStatus", Task: &Ref{ID: "task-b"}, Status: []string{"complete", "failed"}},
			},
		},
		{ID: "task-manual"},
		{ID: "task-no-conditions"},
	})
}

func TestRepairGameModeFailedTasks(t *testing.T) {
	p := &UserProgressData{
		Level: 30,
		TaskCompletions: map[string]TaskCompletion{
			"task-b":             {Complete: true, Timestamp: 10},
			"task-stale":         {Failed: true, Timestamp: 20},
			"task-caused":        {Failed: true, Timestamp: 30},
			"task-manual":        {Failed: true, Manual: true, Timestamp: 40},
			"task-no-conditions": {Failed: true, Timestamp: 50},
			"task-unknown":       {Failed: true, Timestamp: 60},
		},
	}

	got := RepairGameModeFailedTasks(p, choiceTasks(), repairNow)
	if got != 2 {
		t.Fatalf("repaired = %d, want 2", got)
	}

	want := TaskCompletion{Timestamp: repairNow.UnixMilli()}
	for _, id := range []string{"task-stale", "task-no-conditions"} {
		if p.TaskCompletions[id] != want {
			t.Errorf("%s = %+v, want %+v", id, p.TaskCompletions[id], want)
		}
	}
	if !p.TaskCompletions["task-caused"].Failed {
		t.Error("failure with a live cause was repaired")
	}
	if !p.TaskCompletions["task-manual"].Failed {
		t.Error("manual failure was repaired")
	}
	if !p.TaskCompletions["task-unknown"].Failed {
		t.Error("task missing from reference data was repaired")
	}

	if again := RepairGameModeFailedTasks(p, choiceTasks(), repairNow); again != 0 {
		t.Errorf("second pass repaired %d, want 0", again)
	}
}

func TestRepairMode_EndToEnd(t *testing.T) {
	manual := TaskCompletion{Complete: true, Failed: true, Manual: true, Timestamp: 2}
	state := NewUserState()
	state.PvP.TaskCompletions = map[string]TaskCompletion{
		"task-stale":  {Complete: true, Failed: true, Timestamp: 1},
		"task-manual": manual,
	}
	ref := &Reference{Tasks: choiceTasks(), Stations: NewStationIndex(nil)}

	report := RepairMode(state.Mode(ModePvP), ref, state.GameEdition, repairNow)
	if report.FailedTasks != 1 || report.Total() != 1 {
		t.Errorf("report = %+v, want one failed task repair", report)
	}
	if got := state.PvP.TaskCompletions["task-stale"]; got.Failed || got.Complete || got.Manual {
		t.Errorf("task-stale = %+v, want complete=false failed=false manual=false", got)
	}
	if got := state.PvP.TaskCompletions["task-manual"]; got != manual {
		t.Errorf("task-manual = %+v, want untouched %+v", got, manual)
	}

	// The manual record alone contributes nothing.
	only := &UserProgressData{TaskCompletions: map[string]TaskCompletion{"task-manual": manual}}
	if n := RepairGameModeFailedTasks(only, choiceTasks(), repairNow); n != 0 {
		t.Errorf("manual failure repaired count = %d, want 0", n)
	}
}

func hideoutStations() StationIndex {
	return NewStationIndex([]Station{
		{
			ID: "st-stash", NormalizedName: StationStash,
			Levels: []StationLevel{
				{ID: "stash-1", Level: 1},
				{ID: "stash-2", Level: 2},
				{ID: "stash-3", Level: 3},
			},
		},
		{
			ID: "st-circle", NormalizedName: StationCultistCircle,
			Levels: []StationLevel{{ID: "circle-1", Level: 1}},
		},
		{
			ID: "st-gen", NormalizedName: "generator",
			Levels: []StationLevel{
				{ID: "gen-1", Level: 1},
				{ID: "gen-2", Level: 2, StationLevelRequirements: []StationLevelRequirement{{Station: Ref{ID: "st-stash"}, Level: 2}}},
			},
		},
		{
			ID: "st-gym", NormalizedName: "gym",
			Levels: []StationLevel{
				{ID: "gym-1", Level: 1,
					SkillRequirements:  []SkillLevel{{Name: "Выносливость", Level: 5, Skill: &Ref{ID: "Endurance", Name: "Endurance"}}},
					TraderRequirements: []TraderRequirement{{Trader: Ref{ID: "prapor"}, RequirementType: "level", CompareMethod: ">=", Value: 2}},
				},
			},
		},
		{
			ID: "st-lab", NormalizedName: "booze-generator",
			Levels: []StationLevel{
				{ID: "lab-1", Level: 1, StationLevelRequirements: []StationLevelRequirement{{Station: Ref{ID: "st-gen"}, Level: 2}}},
			},
		},
	})
}

func TestEnforceHideoutPrereqs_Cascades(t *testing.T) {
	p := &UserProgressData{
		HideoutModules: map[string]HideoutModule{
			"gen-1": {Complete: true, Timestamp: 1},
			"gen-2": {Complete: true, Timestamp: 1},
			"lab-1": {Complete: true, Timestamp: 1},
		},
	}
	standard := GameEdition{Value: 1, DefaultStashLevel: 1}

	removed := EnforceHideoutPrereqs(p, hideoutStations(), standard, nil, repairNow)
	if removed != 2 {
		t.Fatalf("removed = %d, want 2 (gen-2 then lab-1)", removed)
	}
	if p.HideoutModules["gen-2"].Complete || p.HideoutModules["lab-1"].Complete {
		t.Errorf("modules = %+v", p.HideoutModules)
	}
	if !p.HideoutModules["gen-1"].Complete {
		t.Error("gen-1 has no requirements and must stay")
	}
	if p.HideoutModules["lab-1"].Timestamp != repairNow.UnixMilli() {
		t.Error("removal should stamp the record")
	}
}

func TestEnforceHideoutPrereqs_EditionSatisfiesRequirement(t *testing.T) {
	p := &UserProgressData{
		HideoutModules: map[string]HideoutModule{
			"gen-1": {Complete: true},
			"gen-2": {Complete: true},
		},
	}
	eod := GameEdition{Value: 4, DefaultStashLevel: 4}
	if removed := EnforceHideoutPrereqs(p, hideoutStations(), eod, nil, repairNow); removed != 0 {
		t.Errorf("removed = %d, want 0 with stash 2 granted by edition", removed)
	}
}

func TestEnforceHideoutPrereqs_SkillsAndTraders(t *testing.T) {
	tasks := NewTaskIndex([]Task{
		{ID: "reward-task", FinishRewards: &TaskRewards{SkillLevelReward: []SkillLevel{{Name: "Endurance", Level: 2, Skill: &Ref{ID: "Endurance"}}}}},
	})

	tests := []struct {
		name    string
		offsets map[string]float64
		done    bool
		trader  int
		removed int
	}{
		{"no skill", nil, false, 2, 1},
		{"offsets folded with max", map[string]float64{"Выносливость": 3, "Endurance": 2, "endurance": 1}, true, 2, 0},
		{"duplicate offsets not summed", map[string]float64{"Выносливость": 2, "Endurance": 2}, false, 2, 1},
		{"trader too low", map[string]float64{"Endurance": 5}, false, 1, 1},
		{"all met", map[string]float64{"Endurance": 5}, false, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &UserProgressData{
				SkillOffsets:    tt.offsets,
				Traders:         map[string]TraderProgress{"prapor": {Level: tt.trader}},
				TaskCompletions: map[string]TaskCompletion{},
				HideoutModules:  map[string]HideoutModule{"gym-1": {Complete: true}},
			}
			if tt.done {
				p.TaskCompletions["reward-task"] = TaskCompletion{Complete: true}
			}
			if got := EnforceHideoutPrereqs(p, hideoutStations(), GameEdition{}, tasks, repairNow); got != tt.removed {
				t.Errorf("removed = %d, want %d", got, tt.removed)
			}
		})
	}
}

func TestRepairEditionHideout(t *testing.T) {
	p := &UserProgressData{
		HideoutModules: map[string]HideoutModule{
			"stash-1":  {Complete: true},
			"stash-2":  {Complete: true},
			"stash-3":  {Complete: true, Manual: true},
			"circle-1": {Complete: true},
			"gen-1":    {Complete: true},
		},
	}
	standard := GameEdition{Value: 1, DefaultStashLevel: 1}

	got := RepairEditionHideout(p, hideoutStations(), standard, repairNow)
	if got != 2 {
		t.Fatalf("repaired = %d, want 2", got)
	}
	for id, want := range map[string]bool{"stash-1": true, "stash-2": false, "stash-3": true, "circle-1": false, "gen-1": true} {
		if p.HideoutModules[id].Complete != want {
			t.Errorf("%s complete = %v, want %v", id, p.HideoutModules[id].Complete, want)
		}
	}
}

func TestRepairsOnEmptyInput(t *testing.T) {
	if RepairGameModeFailedTasks(nil, nil, repairNow) != 0 {
		t.Error("nil progress")
	}
	if EnforceHideoutPrereqs(&UserProgressData{}, StationIndex{}, GameEdition{}, nil, repairNow) != 0 {
		t.Error("empty modules")
	}
	if r := RepairMode(&UserProgressData{}, nil, 1, repairNow); r.Total() != 0 {
		t.Error("nil reference")
	}
}

func TestParseEditions(t *testing.T) {
	eds, err := ParseEditions(map[string]any{
		"eod": map[string]any{"value": 4, "defaultStashLevel": 4, "defaultCultistCircleLevel": 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	e, ok := FindEdition(eds, 4)
	if !ok || e.ID != "eod" || e.DefaultStashLevel != 4 || e.DefaultCultistCircleLevel != 1 {
		t.Errorf("edition = %+v, %v", e, ok)
	}
}

func TestDecodeUserState(t *testing.T) {
	state, migrated, err := DecodeUserState([]byte(`{"currentGameMode":"pve","gameEdition":3,"pvp":{"level":5},"pve":{"level":9},"version":2}`))
	if err != nil || migrated {
		t.Fatalf("DecodeUserState() = %v, migrated=%v", err, migrated)
	}
	if state.CurrentGameMode != ModePvE || state.PvE.Level != 9 || state.GameEdition != 3 {
		t.Errorf("state = %+v", state)
	}

	legacy, migrated, err := DecodeUserState([]byte(`{"level":42,"gameEdition":4,"pmcFaction":"BEAR","taskCompletions":{"t":{"complete":true,"timestamp":5}}}`))
	if err != nil || !migrated {
		t.Fatalf("legacy DecodeUserState() = %v, migrated=%v", err, migrated)
	}
	if legacy.PvP.Level != 42 || legacy.PvP.PMCFaction != "BEAR" || !legacy.PvP.TaskCompletions["t"].Complete {
		t.Errorf("legacy pvp = %+v", legacy.PvP)
	}
	if legacy.GameEdition != 4 || legacy.CurrentGameMode != ModePvP || legacy.PvE.Level != 1 || legacy.Version != CurrentVersion {
		t.Errorf("legacy header = %+v", legacy)
	}

	for _, bad := range []string{`[]`, `null`, `{"foo":1}`, `{`} {
		if _, _, err := DecodeUserState([]byte(bad)); err == nil {
			t.Errorf("DecodeUserState(%s) should fail", bad)
		}
	}
}
