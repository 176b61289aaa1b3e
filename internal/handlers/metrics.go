package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangang/adsentry/internal/models"
	"github.com/huangang/adsentry/internal/services"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
func Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "adsentry_uptime_seconds", "Time since server start in seconds", float64(time.Since(startTime).Seconds()))
	writeGauge(&b, "adsentry_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "adsentry_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "adsentry_memory_sys_bytes", "Total memory obtained from OS in bytes", float64(m.Sys))
	writeGauge(&b, "adsentry_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	db := models.GetDB()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "adsentry_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "adsentry_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
			writeGauge(&b, "adsentry_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
		}
	}

	// -- SSE metrics --
	sseHub := services.GetSSEHub()
	if sseHub != nil {
		writeGauge(&b, "adsentry_sse_active_clients", "Number of active SSE connections", float64(sseHub.ClientCount()))
	}

	// -- Queue metrics --
	taskQueue := services.GetTaskQueue()
	queueAsync := 0.0
	if taskQueue != nil && taskQueue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "adsentry_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// -- Review metrics --
	if db != nil {
		var totalRuns, pendingRuns, runningRuns, completedRuns, failedRuns int64
		db.Model(&models.ReviewRun{}).Where("deleted_at IS NULL").Count(&totalRuns)
		db.Model(&models.ReviewRun{}).Where("status = ? AND deleted_at IS NULL", services.RunStatusPending).Count(&pendingRuns)
		db.Model(&models.ReviewRun{}).Where("status = ? AND deleted_at IS NULL", services.RunStatusRunning).Count(&runningRuns)
		db.Model(&models.ReviewRun{}).Where("status = ? AND deleted_at IS NULL", services.RunStatusCompleted).Count(&completedRuns)
		db.Model(&models.ReviewRun{}).Where("status = ? AND deleted_at IS NULL", services.RunStatusFailed).Count(&failedRuns)

		writeGauge(&b, "adsentry_runs_total", "Total number of review runs", float64(totalRuns))
		writeGauge(&b, "adsentry_runs_pending", "Number of pending review runs", float64(pendingRuns))
		writeGauge(&b, "adsentry_runs_running", "Number of currently running reviews", float64(runningRuns))
		writeGauge(&b, "adsentry_runs_completed", "Number of completed review runs", float64(completedRuns))
		writeGauge(&b, "adsentry_runs_failed", "Number of failed review runs", float64(failedRuns))

		// Assets & Users
		var assetCount, userCount int64
		db.Model(&models.VideoAsset{}).Where("deleted_at IS NULL").Count(&assetCount)
		db.Model(&models.User{}).Where("deleted_at IS NULL AND is_active = ?", true).Count(&userCount)

		writeGauge(&b, "adsentry_video_assets_total", "Total number of video assets", float64(assetCount))
		writeGauge(&b, "adsentry_users_active", "Number of active users", float64(userCount))

		// AI Usage (last 24h)
		since24h := time.Now().Add(-24 * time.Hour)
		var aiCalls24h int64
		db.Model(&models.AIUsageLog{}).Where("created_at >= ?", since24h).Count(&aiCalls24h)
		writeGauge(&b, "adsentry_ai_calls_24h", "AI API calls in the last 24 hours", float64(aiCalls24h))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
