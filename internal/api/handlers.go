package api

import (
	"errors"
	"io"
	"net/http"

	"intake-script-engine/internal/models"
	"intake-script-engine/internal/runtime"
	"intake-script-engine/internal/script"
	"intake-script-engine/internal/storage"
	"intake-script-engine/pkg/fault"
	"intake-script-engine/pkg/session"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	sessionManager *session.Manager
	runManager     *runtime.Manager
	scriptStore    *storage.ScriptStore
}

func NewHandlers() *Handlers {
	return NewHandlersWithStore(nil)
}

func NewHandlersWithStore(store *storage.ScriptStore) *Handlers {
	return &Handlers{
		sessionManager: session.NewManager(),
		runManager:     runtime.NewManager(),
		scriptStore:    store,
	}
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Script editing sessions

func (h *Handlers) CreateScript(c *gin.Context) {
	var req models.CreateScriptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	scr, err := script.Import(req.Questions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := h.sessionManager.CreateSession(req.Name, scr)
	c.JSON(http.StatusOK, models.ScriptResponse{
		SessionID: sess.ID,
		Name:      sess.Name,
		Script:    sess.Script,
	})
}

// ImportScript opens an editing session from an uploaded YAML question
// array, the same document shape the export endpoint produces.
func (h *Handlers) ImportScript(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scr, err := script.ImportYAML(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := h.sessionManager.CreateSession(c.Query("name"), scr)
	c.JSON(http.StatusOK, models.ScriptResponse{
		SessionID: sess.ID,
		Name:      sess.Name,
		Script:    sess.Script,
	})
}

func (h *Handlers) GetScript(c *gin.Context) {
	sess, err := h.sessionManager.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, models.ScriptResponse{
		SessionID: sess.ID,
		Name:      sess.Name,
		Script:    sess.Script,
	})
}

func (h *Handlers) DeleteScript(c *gin.Context) {
	if err := h.sessionManager.DeleteSession(c.Param("session_id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

func (h *Handlers) ExportScript(c *gin.Context) {
	sess, err := h.sessionManager.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	yamlData, err := script.ExportYAML(sess.Script)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate YAML"})
		return
	}

	c.Header("Content-Type", "application/x-yaml")
	c.Header("Content-Disposition", "attachment; filename=script.yaml")
	c.String(http.StatusOK, string(yamlData))
}

func (h *Handlers) GetGraph(c *gin.Context) {
	sess, err := h.sessionManager.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	if c.Query("format") == "dot" {
		c.Header("Content-Type", "text/vnd.graphviz")
		c.String(http.StatusOK, script.DOT(sess.Script))
		return
	}

	c.JSON(http.StatusOK, models.GraphResponse{
		Nodes: script.Names(sess.Script),
		Edges: script.Edges(sess.Script),
	})
}

// Question authoring

func (h *Handlers) CreateQuestion(c *gin.Context) {
	question, err := h.sessionManager.CreateQuestion(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, question)
}

func (h *Handlers) UpdateQuestion(c *gin.Context) {
	var candidate map[string]any
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, errs, err := h.sessionManager.UpdateQuestion(c.Param("session_id"), c.Param("question_id"), candidate)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, models.QuestionResponse{Valid: false, Errors: errs})
		return
	}

	c.JSON(http.StatusOK, models.QuestionResponse{Valid: true, Question: &question})
}

func (h *Handlers) DeleteQuestion(c *gin.Context) {
	if err := h.sessionManager.RemoveQuestion(c.Param("session_id"), c.Param("question_id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question removed successfully"})
}

// ValidateQuestion dry-runs the validator against the current script
// without committing anything.
func (h *Handlers) ValidateQuestion(c *gin.Context) {
	sess, err := h.sessionManager.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var candidate map[string]any
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, errs := script.CanAddQuestion(candidate, sess.Script)
	c.JSON(http.StatusOK, models.ValidationResponse{Valid: ok, Errors: errs})
}

func (h *Handlers) SetStartQuestion(c *gin.Context) {
	if err := h.sessionManager.SetFirstQuestion(c.Param("session_id"), c.Param("question_id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Start question updated successfully"})
}

func (h *Handlers) AddTransition(c *gin.Context) {
	var t models.Transition
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, errs, err := h.sessionManager.AddTransition(c.Param("session_id"), t)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}

	c.JSON(http.StatusOK, added)
}

func (h *Handlers) GetParentTransitions(c *gin.Context) {
	sess, err := h.sessionManager.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	parents := script.ParentTransitions(sess.Script, c.Param("question_id"))
	c.JSON(http.StatusOK, gin.H{"transitions": parents})
}

// Questionnaire runs

func (h *Handlers) StartRun(c *gin.Context) {
	var req models.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessionManager.GetSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	run, err := h.runManager.StartRun(sess.Script)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runState(run))
}

func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.runManager.GetRun(c.Param("run_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, runState(run))
}

func (h *Handlers) AnswerRun(c *gin.Context) {
	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runManager.Answer(c.Param("run_id"), req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, fault.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		case errors.Is(err, runtime.ErrBrokenScript):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, runState(run))
}

func (h *Handlers) BackRun(c *gin.Context) {
	run, err := h.runManager.Back(c.Param("run_id"))
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runState(run))
}

func runState(run *runtime.Run) models.RunResponse {
	resp := models.RunResponse{
		RunID:     run.ID,
		Completed: run.Completed,
		Answers:   run.Answers,
	}
	if resp.Answers == nil {
		resp.Answers = []models.AnswerRecord{}
	}
	if current, ok := run.CurrentQuestion(); ok {
		resp.Current = &current
	}
	return resp
}

// Persisted scripts

func (h *Handlers) SaveScript(c *gin.Context) {
	if h.scriptStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}

	sess, err := h.sessionManager.GetSession(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req models.SaveScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.scriptStore.Save(c.Request.Context(), req.Name, script.Export(sess.Script))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handlers) ListSavedScripts(c *gin.Context) {
	if h.scriptStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}

	summaries, err := h.scriptStore.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scripts": summaries})
}

func (h *Handlers) GetSavedScript(c *gin.Context) {
	if h.scriptStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}

	saved, err := h.scriptStore.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, fault.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Script not found"})
		case fault.IsClientError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid script id"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, saved)
}

// OpenSavedScript loads a persisted script into a fresh editing session.
func (h *Handlers) OpenSavedScript(c *gin.Context) {
	if h.scriptStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}

	saved, err := h.scriptStore.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, fault.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Script not found"})
		case fault.IsClientError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid script id"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	scr, err := script.Import(saved.Questions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess := h.sessionManager.CreateSession(saved.Name, scr)
	c.JSON(http.StatusOK, models.ScriptResponse{
		SessionID: sess.ID,
		Name:      sess.Name,
		Script:    sess.Script,
	})
}

func (h *Handlers) DeleteSavedScript(c *gin.Context) {
	if h.scriptStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}

	if err := h.scriptStore.Delete(c.Request.Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, fault.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Script not found"})
		case fault.IsClientError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid script id"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Script deleted successfully"})
}
