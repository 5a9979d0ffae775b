// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

// TaskStatus is the lifecycle state of a task for one player.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusActive     TaskStatus = "active"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// StatusOf returns the stored outcome of a completion record. Failed takes
// precedence over complete. A record that is neither, or a nil record, is
// not started; whether the task is available is decided by TaskIndex.Status.
func StatusOf(c *TaskCompletion) TaskStatus {
	switch {
	case c == nil:
		return StatusNotStarted
	case c.Failed:
		return StatusFailed
	case c.Complete:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// IsSuccessfullyComplete reports complete && !failed.
func IsSuccessfullyComplete(c *TaskCompletion) bool {
	return c != nil && c.Complete && !c.Failed
}

// ParseConditionStatus maps a tarkov.dev requirement status to a TaskStatus.
func ParseConditionStatus(s string) (TaskStatus, bool) {
	switch s {
	case "complete", "completed", "success":
		return StatusCompleted, true
	case "failed", "fail":
		return StatusFailed, true
	case "active", "accepted", "started":
		return StatusActive, true
	case "not_started", "notStarted", "locked":
		return StatusNotStarted, true
	default:
		return "", false
	}
}

func completion(p *UserProgressData, taskID string) *TaskCompletion {
	c, ok := p.TaskCompletions[taskID]
	if !ok {
		return nil
	}
	return &c
}
