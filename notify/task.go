package notify

import (
	"fmt"

	"github.com/moyoez/scandrop/store"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
)

// Hub receives every task notification, e.g. the control API websocket feed.
type Hub interface {
	Broadcast(notification *types.Notification)
}

// FromChange converts a store change into a notification.
func FromChange(c store.Change) *types.Notification {
	switch c.Kind {
	case store.ChangeRemoved:
		return &types.Notification{
			Type:  types.NotifyTypeTaskRemoved,
			Title: "Task Removed",
			Data:  map[string]any{"id": c.Task.ID},
		}
	case store.ChangeCleared:
		ids := make([]string, 0, len(c.Removed))
		for _, t := range c.Removed {
			ids = append(ids, t.ID)
		}
		return &types.Notification{
			Type:  types.NotifyTypeTasksCleared,
			Title: "Tasks Cleared",
			Data:  map[string]any{"ids": ids},
		}
	default:
		return &types.Notification{
			Type:    types.NotifyTypeTaskUpdated,
			Title:   string(c.Task.Status),
			Message: c.Task.Message,
			Data:    map[string]any{"task": c.Task},
		}
	}
}

// OutcomeNotification builds the desktop notification for a finished task,
// or nil when the task is still running.
func OutcomeNotification(task types.UploadTask) *types.Notification {
	switch task.Status {
	case types.StatusCompleted:
		return &types.Notification{
			Type:    types.NotifyTypeUploadDone,
			Title:   "Upload Completed",
			Message: fmt.Sprintf("%s is now in your asset library", task.File.Name),
			Data:    map[string]any{"id": task.ID, "fileName": task.File.Name, "ticketId": task.TicketID},
		}
	case types.StatusFailed:
		return &types.Notification{
			Type:    types.NotifyTypeUploadFailed,
			Title:   "Upload Failed",
			Message: fmt.Sprintf("%s: %s", task.File.Name, task.Error),
			Data:    map[string]any{"id": task.ID, "fileName": task.File.Name, "error": task.Error},
		}
	default:
		return nil
	}
}

// Dispatcher fans store changes out to a hub and the unix socket.
type Dispatcher struct {
	hub        Hub
	socketPath string
	send       func(*types.Notification, string) error
}

// NewDispatcher creates a dispatcher. hub may be nil.
func NewDispatcher(hub Hub, socketPath string) *Dispatcher {
	return &Dispatcher{hub: hub, socketPath: socketPath, send: SendNotification}
}

// HandleChange is registered with Orchestrator.Subscribe.
func (d *Dispatcher) HandleChange(c store.Change) {
	if d.hub != nil {
		d.hub.Broadcast(FromChange(c))
	}
	if c.Kind != store.ChangeUpdated {
		return
	}
	n := OutcomeNotification(c.Task)
	if n == nil {
		return
	}
	// a socket round trip blocks for up to UnixSocketTimeout
	go func() {
		if err := d.send(n, d.socketPath); err != nil {
			tool.DefaultLogger.Debugf("[Notify] %v", err)
		}
	}()
}
