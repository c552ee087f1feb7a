package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mrlokans/campuslib/internal/database"
)

// minFreeMediaBytes is the free space below which uploads will soon fail.
const minFreeMediaBytes = 100 << 20

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
	Host    *HostStats        `json:"host,omitempty"`
}

// HostStats reports memory and media volume usage.
type HostStats struct {
	MemoryTotalBytes uint64 `json:"memory_total_bytes"`
	MemoryUsedBytes  uint64 `json:"memory_used_bytes"`
	MediaTotalBytes  uint64 `json:"media_total_bytes,omitempty"`
	MediaFreeBytes   uint64 `json:"media_free_bytes,omitempty"`
}

type HealthController struct {
	db       *database.Database
	version  string
	mediaDir string
}

func NewHealthController(db *database.Database, version, mediaDir string) *HealthController {
	return &HealthController{
		db:       db,
		version:  version,
		mediaDir: mediaDir,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	host := &HostStats{}
	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		host.MemoryTotalBytes = vm.Total
		host.MemoryUsedBytes = vm.Total - vm.Available
	}

	// Low disk degrades uploads only; the service stays up
	if h.mediaDir != "" {
		usage, err := disk.UsageWithContext(c.Request.Context(), h.mediaDir)
		switch {
		case err != nil:
			checks["media"] = "error: " + err.Error()
		case usage.Free < minFreeMediaBytes:
			host.MediaTotalBytes, host.MediaFreeBytes = usage.Total, usage.Free
			checks["media"] = "low disk space"
		default:
			host.MediaTotalBytes, host.MediaFreeBytes = usage.Total, usage.Free
			checks["media"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
		Host:    host,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
