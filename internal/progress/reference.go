// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Ref is an {id, name} reference inside tarkov.dev payloads.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// TaskRequirement gates a task on another task's status.
type TaskRequirement struct {
	Task   Ref      `json:"task"`
	Status []string `json:"status"`
}

// FailCondition is a task objective that fails the task. Only taskStatus
// conditions carry Task and Status.
type FailCondition struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Task   *Ref     `json:"task,omitempty"`
	Status []string `json:"status,omitempty"`
}

// SkillLevel names a skill and a level, as used by task rewards and
// hideout requirements.
type SkillLevel struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
	Skill *Ref    `json:"skill,omitempty"`
}

// TaskRewards is the subset of finish rewards used by repairs.
type TaskRewards struct {
	SkillLevelReward []SkillLevel `json:"skillLevelReward,omitempty"`
}

// Task is the reference definition of a quest.
type Task struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	MinPlayerLevel   int               `json:"minPlayerLevel"`
	FactionName      string            `json:"factionName,omitempty"`
	TaskRequirements []TaskRequirement `json:"taskRequirements,omitempty"`
	FailConditions   []FailCondition   `json:"failConditions,omitempty"`
	FinishRewards    *TaskRewards      `json:"finishRewards,omitempty"`
}

// TaskIndex holds tasks by id.
type TaskIndex map[string]Task

// NewTaskIndex indexes tasks. Later entries with the same id fill fields
// the earlier ones left empty, so split datasets can be combined.
func NewTaskIndex(tasks ...[]Task) TaskIndex {
	idx := make(TaskIndex)
	for _, list := range tasks {
		for _, t := range list {
			cur, ok := idx[t.ID]
			if !ok {
				idx[t.ID] = t
				continue
			}
			if cur.Name == "" {
				cur.Name = t.Name
			}
			if cur.MinPlayerLevel == 0 {
				cur.MinPlayerLevel = t.MinPlayerLevel
			}
			if cur.FactionName == "" {
				cur.FactionName = t.FactionName
			}
			if len(cur.TaskRequirements) == 0 {
				cur.TaskRequirements = t.TaskRequirements
			}
			if len(cur.FailConditions) == 0 {
				cur.FailConditions = t.FailConditions
			}
			if cur.FinishRewards == nil {
				cur.FinishRewards = t.FinishRewards
			}
			idx[t.ID] = cur
		}
	}
	return idx
}

// Status returns the task's status for a player. A task without a terminal
// record is active once its task requirements hold and the player level
// reaches MinPlayerLevel; otherwise it has not started.
func (idx TaskIndex) Status(p *UserProgressData, taskID string) TaskStatus {
	st := StatusOf(completion(p, taskID))
	if st != StatusNotStarted {
		return st
	}
	task, ok := idx[taskID]
	if !ok {
		return StatusNotStarted
	}
	if task.MinPlayerLevel > 0 && p.Level < task.MinPlayerLevel {
		return StatusNotStarted
	}
	if task.FactionName != "" && task.FactionName != "Any" && p.PMCFaction != "" &&
		!strings.EqualFold(task.FactionName, p.PMCFaction) {
		return StatusNotStarted
	}
	for _, req := range task.TaskRequirements {
		if !statusIn(StatusOf(completion(p, req.Task.ID)), req.Status) {
			return StatusNotStarted
		}
	}
	return StatusActive
}

func statusIn(st TaskStatus, statuses []string) bool {
	for _, s := range statuses {
		if want, ok := ParseConditionStatus(s); ok && want == st {
			return true
		}
	}
	return false
}

// StationLevelRequirement requires another station at a level.
type StationLevelRequirement struct {
	Station Ref `json:"station"`
	Level   int `json:"level"`
}

// TraderRequirement requires a trader loyalty level or reputation.
type TraderRequirement struct {
	Trader          Ref     `json:"trader"`
	RequirementType string  `json:"requirementType"`
	CompareMethod   string  `json:"compareMethod"`
	Value           float64 `json:"value"`
}

// StationLevel is one buildable level of a hideout station. Its ID is the
// key used in UserProgressData.HideoutModules.
type StationLevel struct {
	ID                       string                    `json:"id"`
	Level                    int                       `json:"level"`
	StationLevelRequirements []StationLevelRequirement `json:"stationLevelRequirements,omitempty"`
	SkillRequirements        []SkillLevel              `json:"skillRequirements,omitempty"`
	TraderRequirements       []TraderRequirement       `json:"traderRequirements,omitempty"`
}

// Station is a hideout station with its levels.
type Station struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	NormalizedName string         `json:"normalizedName"`
	Levels         []StationLevel `json:"levels"`
}

// Normalized names of stations whose early levels come with the edition.
const (
	StationStash         = "stash"
	StationCultistCircle = "cultist-circle"
)

type moduleRef struct {
	station *Station
	level   StationLevel
}

// StationIndex resolves module ids to their station level.
type StationIndex struct {
	stations map[string]*Station
	modules  map[string]moduleRef
}

// NewStationIndex indexes stations and their levels.
func NewStationIndex(stations []Station) StationIndex {
	idx := StationIndex{
		stations: make(map[string]*Station, len(stations)),
		modules:  make(map[string]moduleRef),
	}
	for i := range stations {
		st := &stations[i]
		idx.stations[st.ID] = st
		for _, lvl := range st.Levels {
			idx.modules[lvl.ID] = moduleRef{station: st, level: lvl}
		}
	}
	return idx
}

// Module returns the station and level for a module id.
func (idx StationIndex) Module(id string) (*Station, StationLevel, bool) {
	ref, ok := idx.modules[id]
	if !ok {
		return nil, StationLevel{}, false
	}
	return ref.station, ref.level, true
}

// ModuleID returns the module id of a station level.
func (idx StationIndex) ModuleID(stationID string, level int) (string, bool) {
	st, ok := idx.stations[stationID]
	if !ok {
		return "", false
	}
	for _, lvl := range st.Levels {
		if lvl.Level == level {
			return lvl.ID, true
		}
	}
	return "", false
}

// Len returns the number of indexed stations.
func (idx StationIndex) Len() int {
	return len(idx.stations)
}

// GameEdition is an edition definition from the overlay editions layer.
type GameEdition struct {
	ID                        string `json:"id"`
	Value                     int    `json:"value"`
	Title                     string `json:"title,omitempty"`
	DefaultStashLevel         int    `json:"defaultStashLevel"`
	DefaultCultistCircleLevel int    `json:"defaultCultistCircleLevel"`
}

// Implies reports whether the edition grants station at level for free.
func (e GameEdition) Implies(st *Station, level int) bool {
	if st == nil {
		return false
	}
	switch st.NormalizedName {
	case StationStash:
		return level <= e.DefaultStashLevel
	case StationCultistCircle:
		return level <= e.DefaultCultistCircleLevel
	default:
		return false
	}
}

// FindEdition returns the edition whose Value matches value.
func FindEdition(editions []GameEdition, value int) (GameEdition, bool) {
	for _, e := range editions {
		if e.Value == value {
			return e, true
		}
	}
	return GameEdition{}, false
}

// ParseEditions converts the overlay editions layer (id -> object).
func ParseEditions(layer map[string]any) ([]GameEdition, error) {
	out := make([]GameEdition, 0, len(layer))
	for id, raw := range layer {
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode edition %s: %w", id, err)
		}
		var e GameEdition
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("decode edition %s: %w", id, err)
		}
		if e.ID == "" {
			e.ID = id
		}
		out = append(out, e)
	}
	return out, nil
}

// ParseTasks decodes the tasks collection of a GraphQL body.
func ParseTasks(body []byte) ([]Task, error) {
	var resp struct {
		Data struct {
			Tasks []Task `json:"tasks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return resp.Data.Tasks, nil
}

// ParseStations decodes the hideoutStations collection of a GraphQL body.
func ParseStations(body []byte) ([]Station, error) {
	var resp struct {
		Data struct {
			HideoutStations []Station `json:"hideoutStations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode hideout stations: %w", err)
	}
	return resp.Data.HideoutStations, nil
}

// Reference bundles the reference data repairs need for one game mode.
type Reference struct {
	Tasks    TaskIndex
	Stations StationIndex
	Editions []GameEdition
}

// Edition resolves a state's edition value, falling back to an edition
// that implies nothing.
func (r *Reference) Edition(value int) GameEdition {
	if r != nil {
		if e, ok := FindEdition(r.Editions, value); ok {
			return e
		}
	}
	return GameEdition{Value: value}
}
