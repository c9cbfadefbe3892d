package repository

import "errors"

// Common repository errors
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTemplateNotFound     = errors.New("task template not found")
	ErrMindmapNotFound      = errors.New("mindmap not found")
	ErrNodeNotFound         = errors.New("mindmap node not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamTaskNotFound     = errors.New("team task not found")
	ErrAssigneeNotFound     = errors.New("task assignee not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
