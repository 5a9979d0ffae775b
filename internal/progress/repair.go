// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// RepairReport counts the records each repair pass changed.
type RepairReport struct {
	FailedTasks    int `json:"failedTasks"`
	HideoutPrereqs int `json:"hideoutPrereqs"`
	EditionHideout int `json:"editionHideout"`
}

// Total is the sum of all counts.
func (r RepairReport) Total() int {
	return r.FailedTasks + r.HideoutPrereqs + r.EditionHideout
}

// RepairGameModeFailedTasks resets automatic failures that no longer have a
// cause. A failure is caused when one of the task's taskStatus fail
// conditions names a task whose current status is among the listed ones.
// Manual failures and tasks missing from the index are left alone.
func RepairGameModeFailedTasks(p *UserProgressData, tasks TaskIndex, now time.Time) int {
	if p == nil || len(p.TaskCompletions) == 0 {
		return 0
	}

	repaired := 0
	for _, id := range sortedKeys(p.TaskCompletions) {
		c := p.TaskCompletions[id]
		if !c.Failed || c.Manual {
			continue
		}
		task, ok := tasks[id]
		if !ok || hasFailSource(p, tasks, task) {
			continue
		}
		p.TaskCompletions[id] = TaskCompletion{Timestamp: Millis(now)}
		repaired++
	}
	metrics.RecordRepairs("failed_tasks", repaired)
	return repaired
}

func hasFailSource(p *UserProgressData, tasks TaskIndex, task Task) bool {
	for _, fc := range task.FailConditions {
		if fc.Type != "taskStatus" || fc.Task == nil || fc.Task.ID == "" {
			continue
		}
		if statusIn(tasks.Status(p, fc.Task.ID), fc.Status) {
			return true
		}
	}
	return false
}

// EnforceHideoutPrereqs un-completes built modules whose station level,
// skill or trader requirements are not met, repeating until nothing
// changes so that removals cascade. Modules granted by the edition are
// never removed. It returns the number of modules removed.
func EnforceHideoutPrereqs(p *UserProgressData, stations StationIndex, edition GameEdition, tasks TaskIndex, now time.Time) int {
	if p == nil || len(p.HideoutModules) == 0 {
		return 0
	}

	removed := 0
	for {
		changed := false
		for _, id := range sortedKeys(p.HideoutModules) {
			m := p.HideoutModules[id]
			if !m.Complete {
				continue
			}
			st, lvl, ok := stations.Module(id)
			if !ok || edition.Implies(st, lvl.Level) {
				continue
			}
			if moduleRequirementsMet(p, stations, edition, tasks, st, lvl) {
				continue
			}
			p.HideoutModules[id] = HideoutModule{Timestamp: Millis(now)}
			removed++
			changed = true
		}
		if !changed {
			break
		}
	}
	metrics.RecordRepairs("hideout_prereqs", removed)
	return removed
}

func moduleRequirementsMet(p *UserProgressData, stations StationIndex, edition GameEdition, tasks TaskIndex, st *Station, lvl StationLevel) bool {
	if lvl.Level > 1 && !stationLevelBuilt(p, stations, edition, st.ID, lvl.Level-1) {
		return false
	}
	for _, req := range lvl.StationLevelRequirements {
		if !stationLevelBuilt(p, stations, edition, req.Station.ID, req.Level) {
			return false
		}
	}
	for _, req := range lvl.SkillRequirements {
		if PlayerSkillLevel(p, tasks, req) < req.Level {
			return false
		}
	}
	for _, req := range lvl.TraderRequirements {
		if !traderRequirementMet(p, req) {
			return false
		}
	}
	return true
}

func stationLevelBuilt(p *UserProgressData, stations StationIndex, edition GameEdition, stationID string, level int) bool {
	if level <= 0 {
		return true
	}
	id, ok := stations.ModuleID(stationID, level)
	if !ok {
		// Unknown requirement: the reference data cannot disprove it.
		return true
	}
	st, _, _ := stations.Module(id)
	if edition.Implies(st, level) {
		return true
	}
	return p.HideoutModules[id].Complete
}

func traderRequirementMet(p *UserProgressData, req TraderRequirement) bool {
	tp, ok := p.Traders[req.Trader.ID]
	if !ok {
		tp = TraderProgress{Level: 1}
	}
	var have float64
	switch strings.ToLower(req.RequirementType) {
	case "reputation":
		have = tp.Reputation
	case "", "level":
		have = float64(tp.Level)
	default:
		return true
	}
	switch req.CompareMethod {
	case ">":
		return have > req.Value
	case "=", "==":
		return have == req.Value
	case "<":
		return have < req.Value
	case "<=":
		return have <= req.Value
	default:
		return have >= req.Value
	}
}

// PlayerSkillLevel returns the player's level in the required skill: levels
// granted by successfully completed tasks plus the manual offset. Offsets
// stored under the skill id, canonical and localized names are folded with
// max so that one skill is never counted twice.
func PlayerSkillLevel(p *UserProgressData, tasks TaskIndex, skill SkillLevel) float64 {
	keys := skillKeys(skill)

	var fromTasks float64
	for id, task := range tasks {
		if task.FinishRewards == nil || !IsSuccessfullyComplete(completion(p, id)) {
			continue
		}
		for _, r := range task.FinishRewards.SkillLevelReward {
			if sameSkill(keys, r) {
				fromTasks += r.Level
			}
		}
	}

	offset, found := 0.0, false
	for k := range keys {
		for name, v := range p.SkillOffsets {
			if strings.EqualFold(name, k) && (!found || v > offset) {
				offset, found = v, true
			}
		}
	}
	return fromTasks + offset
}

func skillKeys(s SkillLevel) map[string]struct{} {
	keys := make(map[string]struct{}, 3)
	add := func(k string) {
		if k != "" {
			keys[strings.ToLower(k)] = struct{}{}
		}
	}
	add(s.Name)
	if s.Skill != nil {
		add(s.Skill.ID)
		add(s.Skill.Name)
	}
	return keys
}

func sameSkill(keys map[string]struct{}, r SkillLevel) bool {
	for k := range skillKeys(r) {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}

// RepairEditionHideout keeps stash and cultist circle modules only when
// they were set manually or are granted by the edition.
func RepairEditionHideout(p *UserProgressData, stations StationIndex, edition GameEdition, now time.Time) int {
	if p == nil || len(p.HideoutModules) == 0 {
		return 0
	}

	repaired := 0
	for _, id := range sortedKeys(p.HideoutModules) {
		m := p.HideoutModules[id]
		if !m.Complete || m.Manual {
			continue
		}
		st, lvl, ok := stations.Module(id)
		if !ok || (st.NormalizedName != StationStash && st.NormalizedName != StationCultistCircle) {
			continue
		}
		if edition.Implies(st, lvl.Level) {
			continue
		}
		p.HideoutModules[id] = HideoutModule{Timestamp: Millis(now)}
		repaired++
	}
	metrics.RecordRepairs("edition_hideout", repaired)
	return repaired
}

// RepairMode runs every pass over one game mode.
func RepairMode(p *UserProgressData, ref *Reference, gameEdition int, now time.Time) RepairReport {
	if p == nil || ref == nil {
		return RepairReport{}
	}
	edition := ref.Edition(gameEdition)
	var r RepairReport
	r.FailedTasks = RepairGameModeFailedTasks(p, ref.Tasks, now)
	r.EditionHideout = RepairEditionHideout(p, ref.Stations, edition, now)
	r.HideoutPrereqs = EnforceHideoutPrereqs(p, ref.Stations, edition, ref.Tasks, now)
	return r
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
