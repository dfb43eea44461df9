package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"ytanalyzer/logger"
)

const Version = "1.0.0"

var startedAt = time.Now()

// handleStatus reports service health, task counts and host resources.
func (h *Handler) handleStatus(c *gin.Context) {
	counts := h.registry.Count()
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"version": Version,
		"uptime":  time.Since(startedAt).Round(time.Second).String(),
		"tasks":   counts,
		"system":  systemStats(h.cfg.CacheDir),
	})
}

// systemStats samples host resources. Fields that cannot be read are left out.
func systemStats(path string) gin.H {
	stats := gin.H{}

	if p, err := cpu.Percent(0, false); err != nil {
		logger.Warnf("could not get CPU usage: %v", err)
	} else if len(p) > 0 {
		stats["cpu_percent"] = p[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		logger.Warnf("could not get memory usage: %v", err)
	} else {
		stats["mem_available"] = vm.Available
	}

	if path == "" {
		path = "."
	}
	if d, err := disk.Usage(path); err != nil {
		logger.Debugf("could not get disk usage for %s: %v", path, err)
	} else {
		stats["disk_free"] = d.Free
	}
	return stats
}
