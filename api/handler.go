package api

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ytanalyzer/analysis"
	"ytanalyzer/config"
	"ytanalyzer/logger"
	"ytanalyzer/task"
)

// WorkBuilder produces the work function for one video analysis.
type WorkBuilder interface {
	Work(locator, apiKey string) task.WorkFunc
}

type Handler struct {
	registry  *task.Registry
	scheduler *task.Scheduler
	analyzer  WorkBuilder
	cfg       *config.Config
}

func NewHandler(reg *task.Registry, sched *task.Scheduler, analyzer WorkBuilder, cfg *config.Config) *Handler {
	return &Handler{
		registry:  reg,
		scheduler: sched,
		analyzer:  analyzer,
		cfg:       cfg,
	}
}

type AnalyzeRequest struct {
	YouTubeURL string `json:"youtube_url" form:"youtube_url"`
	APIKey     string `json:"api_key" form:"api_key"`
}

// submitError is an analyze request the caller has to correct.
type submitError string

func (e submitError) Error() string { return string(e) }

// submit validates req, finds or creates the analysis task for the video and starts
// it if it is still pending. Every returned error is a submitError.
func (h *Handler) submit(req AnalyzeRequest) (string, error) {
	locator := strings.TrimSpace(req.YouTubeURL)
	if locator == "" {
		return "", submitError("YouTube URL is required")
	}
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = h.cfg.OpenAIAPIKey
	}
	if apiKey == "" {
		return "", submitError("OpenAI API key is required")
	}
	if _, err := analysis.ResolveVideo(locator); err != nil {
		return "", submitError(err.Error())
	}

	taskID, created := h.registry.FindOrCreate(task.KindVideoAnalysis, locator, task.Params{
		"youtube_url": locator,
		"api_key":     task.RedactCredential(apiKey),
	})
	if created {
		h.scheduler.Dispatch(taskID, h.analyzer.Work(locator, apiKey))
	} else {
		logger.Debugf("Reusing task %s for %s", taskID, locator)
	}
	return taskID, nil
}

// handleAnalyze is the JSON entry point for submitting a video.
func (h *Handler) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data provided"})
		return
	}

	taskID, err := h.submit(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, found := h.registry.Get(taskID)
	if !found {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Task disappeared after creation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id":  t.ID,
		"status":   t.Status,
		"progress": t.Progress,
	})
}

// handleIndex renders the submission form.
func (h *Handler) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", h.indexData("", ""))
}

// handleAnalyzeForm accepts the browser form and redirects to the task page.
func (h *Handler) handleAnalyzeForm(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "index", h.indexData("", "No data provided"))
		return
	}

	taskID, err := h.submit(req)
	if err != nil {
		c.HTML(http.StatusBadRequest, "index", h.indexData(req.YouTubeURL, err.Error()))
		return
	}
	c.Redirect(http.StatusSeeOther, "/tasks/"+taskID)
}

func (h *Handler) indexData(videoURL, errMsg string) gin.H {
	return gin.H{
		"Title":         "YouTube video analysis",
		"VideoURL":      videoURL,
		"Error":         errMsg,
		"KeyConfigured": h.cfg.OpenAIAPIKey != "",
	}
}

// handleGetTaskStatus reports the current snapshot of a task.
func (h *Handler) handleGetTaskStatus(c *gin.Context) {
	t, found := h.registry.Get(c.Param("taskId"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found", "status": "not_found"})
		return
	}
	c.JSON(http.StatusOK, statusBody(t))
}

func statusBody(t task.Task) gin.H {
	body := gin.H{
		"task_id":    t.ID,
		"status":     t.Status,
		"progress":   t.Progress,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
	switch t.Status {
	case task.StatusCompleted:
		body["result"] = t.Result
	case task.StatusFailed:
		body["error"] = t.Error
	}
	return body
}

// handleListTasks lists all tasks.
func (h *Handler) handleListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List())
}

// handleTaskPage renders a task for a browser.
func (h *Handler) handleTaskPage(c *gin.Context) {
	t, found := h.registry.Get(c.Param("taskId"))
	if !found {
		c.HTML(http.StatusNotFound, "task", gin.H{"Title": "Task not found", "Status": "not_found"})
		return
	}
	c.HTML(http.StatusOK, "task", gin.H{
		"Title":    "Video analysis",
		"VideoURL": t.Params["youtube_url"],
		"Status":   t.Status,
		"Progress": t.Progress,
		"Error":    t.Error,
		// Result is produced by analysis.RenderHTML, which escapes section bodies.
		"Result": template.HTML(t.Result),
	})
}
