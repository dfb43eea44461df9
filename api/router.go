package api

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"ytanalyzer/config"
	"ytanalyzer/task"
)

var pages = template.Must(template.New("task").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
{{if or (eq (print .Status) "pending") (eq (print .Status) "processing")}}<meta http-equiv="refresh" content="5">{{end}}
</head><body>
<h1>{{.Title}}</h1>
{{with .VideoURL}}<p><a href="{{.}}">{{.}}</a></p>{{end}}
{{if eq (print .Status) "completed"}}{{.Result}}
{{else if eq (print .Status) "failed"}}<h2>Error</h2><p>{{.Error}}</p>
{{else if eq (print .Status) "not_found"}}<p>Task not found.</p>
{{else}}<p>Status: {{.Status}} ({{.Progress}}%)</p>{{end}}
</body></html>`))

func init() {
	template.Must(pages.New("index").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head><body>
<h1>{{.Title}}</h1>
{{with .Error}}<p class="error">{{.}}</p>{{end}}
<form method="post" action="/analyze">
<p><label>YouTube URL <input type="url" name="youtube_url" value="{{.VideoURL}}" required></label></p>
<p><label>OpenAI API key <input type="password" name="api_key"{{if not .KeyConfigured}} required{{end}}></label>
{{if .KeyConfigured}}<small>optional, the server has a key configured</small>{{end}}</p>
<p><button type="submit">Analyze</button></p>
</form>
</body></html>`))
}

func SetupRouter(reg *task.Registry, sched *task.Scheduler, analyzer WorkBuilder, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger())
	r.SetHTMLTemplate(pages)
	h := NewHandler(reg, sched, analyzer, cfg)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Browser flow
	r.GET("/", h.handleIndex)
	r.POST("/analyze", h.handleAnalyzeForm)
	r.GET("/tasks/:taskId", h.handleTaskPage)

	v1 := r.Group("/api")
	{
		v1.GET("/status", h.handleStatus)
		v1.POST("/analyze", h.handleAnalyze)
		v1.GET("/tasks", h.handleListTasks)
		v1.GET("/tasks/:taskId", h.handleGetTaskStatus)
	}
	return r
}
