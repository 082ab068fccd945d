package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/scandrop/orchestrator"
	"github.com/moyoez/scandrop/store"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
)

var BatchTTL = 60 * time.Minute

// TaskController exposes the orchestrator to the local UI.
type TaskController struct {
	orch    *orchestrator.Orchestrator
	batches *ttlworker.Cache[string, types.Batch]
}

func NewTaskController(orch *orchestrator.Orchestrator) *TaskController {
	return &TaskController{
		orch:    orch,
		batches: ttlworker.NewCache[string, types.Batch](BatchTTL),
	}
}

// ListTasks returns every task in insertion order.
// GET /api/self/v1/tasks
func (ctrl *TaskController) ListTasks(c *gin.Context) {
	tasks := ctrl.orch.Tasks()
	if tasks == nil {
		tasks = []types.UploadTask{}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(tasks))
}

// GetTask returns one task.
// GET /api/self/v1/tasks/:id
func (ctrl *TaskController) GetTask(c *gin.Context) {
	id := c.Param("id")
	task, ok := ctrl.orch.Task(id)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnTaskError("Task not found", id))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(task))
}

// AddFiles enqueues local files. Inputs use file:// URLs.
// POST /api/self/v1/tasks
func (ctrl *TaskController) AddFiles(c *gin.Context) {
	var request types.AddFilesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if len(request.Files) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("files must not be empty"))
		return
	}

	refs := make([]types.FileRef, 0, len(request.Files))
	for i, input := range request.Files {
		ref, err := tool.FileRefFromInput(input)
		if err != nil {
			c.JSON(http.StatusBadRequest, tool.FastReturnError(fmt.Sprintf("Failed to process file %d: %v", i, err)))
			return
		}
		refs = append(refs, ref)
	}

	ids, err := ctrl.orch.AddFiles(refs)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError(err.Error()))
		return
	}
	batch := types.Batch{BatchId: tool.GenerateRandomUUID(), TaskIds: ids}
	ctrl.batches.Set(batch.BatchId, batch)
	tool.DefaultLogger.Infof("[Tasks] Batch %s: %d files enqueued", batch.BatchId, len(ids))

	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(types.AddFilesResponse(batch)))
}

// GetBatch lists the current state of the tasks created by one AddFiles call.
// GET /api/self/v1/batches/:id
func (ctrl *TaskController) GetBatch(c *gin.Context) {
	batch := ctrl.batches.Get(c.Param("id"))
	if batch.BatchId == "" {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Batch not found or expired"))
		return
	}
	tasks := make([]types.UploadTask, 0, len(batch.TaskIds))
	for _, id := range batch.TaskIds {
		if task, ok := ctrl.orch.Task(id); ok {
			tasks = append(tasks, task)
		}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"batchId": batch.BatchId,
		"tasks":   tasks,
	}))
}

// RemoveTask deletes a task in any state.
// DELETE /api/self/v1/tasks/:id
func (ctrl *TaskController) RemoveTask(c *gin.Context) {
	id := c.Param("id")
	if !ctrl.orch.RemoveTask(id) {
		c.JSON(http.StatusNotFound, tool.FastReturnTaskError("Task not found", id))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// ClearTasks removes every task.
// DELETE /api/self/v1/tasks
func (ctrl *TaskController) ClearTasks(c *gin.Context) {
	removed := ctrl.orch.ClearAll()
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"removed": removed}))
}

// RetryTask replaces a failed task with a fresh one for the same file.
// POST /api/self/v1/tasks/:id/retry
func (ctrl *TaskController) RetryTask(c *gin.Context) {
	oldID := c.Param("id")
	id, err := ctrl.orch.Retry(oldID)
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, tool.FastReturnTaskError("Task not found", oldID))
	case errors.Is(err, orchestrator.ErrNotRetryable):
		c.JSON(http.StatusConflict, tool.FastReturnTaskError(err.Error(), oldID))
	case err != nil:
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
	default:
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"id": id, "replaces": oldID}))
	}
}
