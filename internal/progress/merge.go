// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import "github.com/tomtom215/tarkovtracker/internal/metrics"

type record interface {
	stamp() int64
	completed() bool
}

func (c TaskCompletion) stamp() int64       { return c.Timestamp }
func (c TaskCompletion) completed() bool    { return c.Complete }
func (o ObjectiveProgress) stamp() int64    { return o.Timestamp }
func (o ObjectiveProgress) completed() bool { return o.Complete }
func (m HideoutModule) stamp() int64        { return m.Timestamp }
func (m HideoutModule) completed() bool     { return m.Complete }
func (t TraderProgress) stamp() int64       { return t.Timestamp }
func (t TraderProgress) completed() bool    { return false }
func (o StoryObjective) stamp() int64       { return o.Timestamp }
func (o StoryObjective) completed() bool    { return o.Complete }
func (c StoryChapter) stamp() int64         { return c.Timestamp }
func (c StoryChapter) completed() bool      { return c.Complete }

// pickRecord chooses between two versions of one record: the larger
// timestamp wins (a set timestamp beats none); on a tie the version
// recording completion wins, then remote.
func pickRecord[T record](local, remote T) T {
	lt, rt := local.stamp(), remote.stamp()
	switch {
	case lt > rt:
		return local
	case rt > lt:
		return remote
	case local.completed() && !remote.completed():
		return local
	default:
		return remote
	}
}

func mergeRecords[T record](local, remote map[string]T) map[string]T {
	if len(local) == 0 && len(remote) == 0 {
		return nil
	}
	out := make(map[string]T, len(local)+len(remote))
	for k, v := range remote {
		out[k] = v
	}
	for k, lv := range local {
		if rv, ok := remote[k]; ok {
			out[k] = pickRecord(lv, rv)
		} else {
			out[k] = lv
		}
	}
	return out
}

func mergeStoryChapters(local, remote map[string]StoryChapter) map[string]StoryChapter {
	out := mergeRecords(local, remote)
	for k, ch := range out {
		lc, lok := local[k]
		rc, rok := remote[k]
		if lok && rok {
			ch.Objectives = mergeRecords(lc.Objectives, rc.Objectives)
		} else {
			ch.Objectives = copyMap(ch.Objectives)
		}
		out[k] = ch
	}
	return out
}

// mergeSnapshotMap takes the newer snapshot's value per key and keeps keys
// present on one side only.
func mergeSnapshotMap[V any](local, remote map[string]V, preferLocal bool) map[string]V {
	if len(local) == 0 && len(remote) == 0 {
		return nil
	}
	first, second := remote, local
	if preferLocal {
		first, second = local, remote
	}
	out := make(map[string]V, len(local)+len(remote))
	for k, v := range second {
		out[k] = v
	}
	for k, v := range first {
		out[k] = v
	}
	return out
}

// MergeProgressData reconciles two snapshots of the same game mode.
func MergeProgressData(local, remote UserProgressData) UserProgressData {
	out := UserProgressData{
		TaskCompletions: mergeRecords(local.TaskCompletions, remote.TaskCompletions),
		TaskObjectives:  mergeRecords(local.TaskObjectives, remote.TaskObjectives),
		HideoutParts:    mergeRecords(local.HideoutParts, remote.HideoutParts),
		HideoutModules:  mergeRecords(local.HideoutModules, remote.HideoutModules),
		Traders:         mergeRecords(local.Traders, remote.Traders),
		StoryChapters:   mergeStoryChapters(local.StoryChapters, remote.StoryChapters),
		UpdatedAt:       max(local.UpdatedAt, remote.UpdatedAt),
	}

	switch {
	case local.UpdatedAt > remote.UpdatedAt:
		copyScalars(&out, local)
		out.SkillOffsets = mergeSnapshotMap(local.SkillOffsets, remote.SkillOffsets, true)
	case remote.UpdatedAt > local.UpdatedAt:
		copyScalars(&out, remote)
		out.SkillOffsets = mergeSnapshotMap(local.SkillOffsets, remote.SkillOffsets, false)
	default:
		out.Level = orZero(local.Level, remote.Level)
		out.PMCFaction = orZero(local.PMCFaction, remote.PMCFaction)
		out.DisplayName = orZero(local.DisplayName, remote.DisplayName)
		out.XPOffset = orZero(local.XPOffset, remote.XPOffset)
		out.PrestigeLevel = orZero(local.PrestigeLevel, remote.PrestigeLevel)
		out.SkillOffsets = mergeSnapshotMap(local.SkillOffsets, remote.SkillOffsets, true)
	}

	metrics.ProgressMerges.Inc()
	return out
}

// MergeUserState merges both game modes and the state header. The header
// follows the mode snapshot updated last; on a tie local non-zero values win.
func MergeUserState(local, remote UserState) UserState {
	out := UserState{
		PvP:     MergeProgressData(local.PvP, remote.PvP),
		PvE:     MergeProgressData(local.PvE, remote.PvE),
		Version: CurrentVersion,
	}

	lt := max(local.PvP.UpdatedAt, local.PvE.UpdatedAt)
	rt := max(remote.PvP.UpdatedAt, remote.PvE.UpdatedAt)
	switch {
	case lt > rt:
		out.CurrentGameMode, out.GameEdition = local.CurrentGameMode, local.GameEdition
	case rt > lt:
		out.CurrentGameMode, out.GameEdition = remote.CurrentGameMode, remote.GameEdition
	default:
		out.CurrentGameMode = orZero(local.CurrentGameMode, remote.CurrentGameMode)
		out.GameEdition = orZero(local.GameEdition, remote.GameEdition)
	}
	if !IsStateMode(out.CurrentGameMode) {
		out.CurrentGameMode = ModePvP
	}
	return out
}

func copyScalars(dst *UserProgressData, src UserProgressData) {
	dst.Level = src.Level
	dst.PMCFaction = src.PMCFaction
	dst.DisplayName = src.DisplayName
	dst.XPOffset = src.XPOffset
	dst.PrestigeLevel = src.PrestigeLevel
}

func orZero[T comparable](local, remote T) T {
	var zero T
	if local != zero {
		return local
	}
	return remote
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
