package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/campuslib/internal/tasks"
)

// BookingExpirer rejects pending bookings whose date has passed.
type BookingExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// TasksController lets staff trigger maintenance jobs. With a task queue the
// jobs are enqueued; without one they run inside the request.
type TasksController struct {
	queue    TaskQueue
	fines    FineRefresher
	bookings BookingExpirer
}

// NewTasksController creates a new TasksController. queue may be nil.
func NewTasksController(queue TaskQueue, fines FineRefresher, bookings BookingExpirer) *TasksController {
	return &TasksController{queue: queue, fines: fines, bookings: bookings}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// ListTaskTypes handles GET /staff/tasks
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queued": tc.queue != nil,
		"task_types": []TaskTypeInfo{
			{
				Type:        "refresh-fines",
				Description: "Store the current fine of every overdue loan",
				Queue:       tasks.RefreshFinesTask{}.Config().Name,
			},
			{
				Type:        "expire-bookings",
				Description: "Reject pending room bookings whose date has passed",
				Queue:       tasks.ExpireBookingsTask{}.Config().Name,
			},
		},
	})
}

// RunTask handles POST /staff/tasks/:type
func (tc *TasksController) RunTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	taskType := c.Param("type")
	var task backlite.Task
	switch taskType {
	case "refresh-fines":
		task = tasks.RefreshFinesTask{RequestedBy: user.ID}
	case "expire-bookings":
		task = tasks.ExpireBookingsTask{}
	default:
		respondNotFound(c, "task type "+taskType)
		return
	}

	if tc.queue == nil {
		tc.runInline(c, taskType)
		return
	}

	ids, err := tc.queue.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}
	respondAccepted(c, "task enqueued", gin.H{"task_id": ids[0], "type": taskType})
}

func (tc *TasksController) runInline(c *gin.Context, taskType string) {
	ctx := c.Request.Context()
	switch taskType {
	case "refresh-fines":
		if tc.fines == nil {
			respondError(c, http.StatusServiceUnavailable, "fine refresh is not available")
			return
		}
		updated, err := tc.fines.RefreshFines(ctx)
		if err != nil {
			respondInternalError(c, err, "refresh fines")
			return
		}
		c.JSON(http.StatusOK, SuccessResponse{Message: "fines refreshed", Data: gin.H{"updated": updated}})
	case "expire-bookings":
		if tc.bookings == nil {
			respondError(c, http.StatusServiceUnavailable, "booking expiry is not available")
			return
		}
		expired, err := tc.bookings.ExpireStale(ctx)
		if err != nil {
			respondInternalError(c, err, "expire bookings")
			return
		}
		c.JSON(http.StatusOK, SuccessResponse{Message: "stale bookings expired", Data: gin.H{"expired": expired}})
	}
}

// GetTaskStatus handles GET /staff/tasks/status/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue is disabled")
		return
	}

	taskID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
