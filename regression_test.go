package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"intake-script-engine/internal/api"
	"intake-script-engine/internal/models"
	"intake-script-engine/internal/script"

	"github.com/gin-gonic/gin"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return api.SetupRouter()
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	req := httptest.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestFullAuthoringAndRunJourney walks the complete editing flow and then
// answers the resulting questionnaire end to end.
func TestFullAuthoringAndRunJourney(t *testing.T) {
	router := setupRouter()

	// Create an empty editing session
	w := postJSON(t, router, "/api/scripts", models.CreateScriptRequest{Name: "client intake"})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to create session: status %d", w.Code)
	}

	var created models.ScriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	base := "/api/scripts/" + created.SessionID

	// Author three questions through the API
	questions := []map[string]any{
		{"name": "injured", "prompt": "Were you injured?", "type": "single choice",
			"options": []map[string]string{{"text": "yes"}, {"text": "no"}}},
		{"name": "injury details", "prompt": "Describe the injury.", "type": "text"},
		{"name": "wrap up", "prompt": "Thank you.", "type": "info"},
	}

	for _, candidate := range questions {
		w = postJSON(t, router, base+"/questions", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Failed to create question stub: status %d", w.Code)
		}

		var stub models.Question
		if err := json.Unmarshal(w.Body.Bytes(), &stub); err != nil {
			t.Fatalf("Failed to parse stub: %v", err)
		}

		jsonBody, _ := json.Marshal(candidate)
		req := httptest.NewRequest("PUT", base+"/questions/"+stub.Name, bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Failed to update question %v: status %d body %s", candidate["name"], w.Code, w.Body.String())
		}
	}

	// Wire the flow: injured -> injury details when yes, otherwise wrap up
	req := httptest.NewRequest("PUT", base+"/start/injured", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to set start question: status %d", w.Code)
	}

	w = postJSON(t, router, base+"/transitions", models.Transition{Previous: "injured", Next: "wrap up"})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to add fallback transition: status %d body %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, base+"/transitions", models.Transition{
		Previous:  "injured",
		Next:      "injury details",
		Condition: "is",
		Variable:  "injured",
		Value:     "yes",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to add conditional transition: status %d body %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, base+"/transitions", models.Transition{Previous: "injury details", Next: "wrap up"})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to link injury details: status %d body %s", w.Code, w.Body.String())
	}

	// Run the questionnaire down the conditional branch
	w = postJSON(t, router, "/api/runs", models.StartRunRequest{SessionID: created.SessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to start run: status %d body %s", w.Code, w.Body.String())
	}

	var run models.RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("Failed to parse run: %v", err)
	}
	if run.Current == nil || run.Current.Name != "injured" {
		t.Fatalf("Run did not start at the start question: %+v", run.Current)
	}

	steps := []struct {
		answer   string
		expected string
	}{
		{"yes", "injury details"},
		{"slipped on the stairs", "wrap up"},
	}

	for _, step := range steps {
		w = postJSON(t, router, "/api/runs/"+run.RunID+"/answer", models.AnswerRequest{Answer: step.answer})
		if w.Code != http.StatusOK {
			t.Fatalf("Failed to answer %q: status %d body %s", step.answer, w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
			t.Fatalf("Failed to parse run: %v", err)
		}
		if run.Current == nil || run.Current.Name != step.expected {
			t.Fatalf("Expected to land on %q, got %+v", step.expected, run.Current)
		}
	}

	w = postJSON(t, router, "/api/runs/"+run.RunID+"/answer", models.AnswerRequest{Answer: "done"})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to finish run: status %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("Failed to parse run: %v", err)
	}
	if !run.Completed {
		t.Error("Run should be completed")
	}
	if len(run.Answers) != 3 {
		t.Errorf("Expected 3 recorded answers, got %d", len(run.Answers))
	}
}

// TestRenameKeepsScriptConsistent tests that renaming a question rewrites
// every rule that pointed at the old name.
func TestRenameKeepsScriptConsistent(t *testing.T) {
	router := setupRouter()

	w := postJSON(t, router, "/api/scripts", models.CreateScriptRequest{Questions: []models.Question{
		{Name: "A", Start: true, Prompt: "P1", Type: "text", Then: &models.Then{
			Branches: []models.ConditionalThen{
				{Then: "B", When: &models.WhenClause{Variable: "B", Condition: "is", Value: "yes"}},
				{Then: "C"},
			},
		}},
		{Name: "B", Prompt: "P2", Type: "text", Then: &models.Then{Next: "C"}},
		{Name: "C", Prompt: "P3", Type: "info"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to create session: status %d", w.Code)
	}

	var created models.ScriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	base := "/api/scripts/" + created.SessionID

	jsonBody, _ := json.Marshal(map[string]any{"name": "B renamed", "prompt": "P2", "type": "text", "then": "C"})
	req := httptest.NewRequest("PUT", base+"/questions/B", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to rename question: status %d body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", base, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response models.ScriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse script: %v", err)
	}

	a := response.Script["A"]
	if a.Then == nil || len(a.Then.Branches) != 2 {
		t.Fatalf("Question A lost its branches: %+v", a.Then)
	}
	if a.Then.Branches[0].Then != "B renamed" {
		t.Errorf("Branch target not rewritten: %q", a.Then.Branches[0].Then)
	}
	if a.Then.Branches[0].When.Variable != "B renamed" {
		t.Errorf("When variable not rewritten: %q", a.Then.Branches[0].When.Variable)
	}
	if _, exists := response.Script["B"]; exists {
		t.Error("Old question name still present after rename")
	}
}

// TestExportImportRegression tests that a round trip through YAML preserves
// the editing session.
func TestExportImportRegression(t *testing.T) {
	router := setupRouter()

	w := postJSON(t, router, "/api/scripts", models.CreateScriptRequest{Questions: []models.Question{
		{Name: "start here", Start: true, Prompt: "First?", Type: "single choice",
			Options: []models.Option{{Text: "yes", Hint: "agree"}, {Text: "no"}},
			Then:    &models.Then{Next: "the end"}},
		{Name: "the end", Prompt: "Done.", Type: "info", Help: "nothing more to do"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to create session: status %d", w.Code)
	}

	var created models.ScriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/scripts/"+created.SessionID+"/export", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to export: status %d", w.Code)
	}

	if contentType := w.Header().Get("Content-Type"); contentType != "application/x-yaml" {
		t.Errorf("Expected content type 'application/x-yaml', got '%s'", contentType)
	}
	if disposition := w.Header().Get("Content-Disposition"); !strings.Contains(disposition, "script.yaml") {
		t.Error("Content-Disposition should include 'script.yaml'")
	}

	exported := w.Body.String()
	for _, element := range []string{"name: start here", "prompt: First?", "options:", "hint: agree", "then: the end"} {
		if !strings.Contains(exported, element) {
			t.Errorf("YAML missing expected element: %s", element)
		}
	}

	req = httptest.NewRequest("POST", "/api/scripts/import", strings.NewReader(exported))
	req.Header.Set("Content-Type", "application/x-yaml")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to import exported document: status %d body %s", w.Code, w.Body.String())
	}

	var imported models.ScriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &imported); err != nil {
		t.Fatalf("Failed to parse imported session: %v", err)
	}
	if len(imported.Script) != 2 {
		t.Errorf("Expected 2 questions after import, got %d", len(imported.Script))
	}
}

// TestValidatorErrorMessagesStable pins the exact wording the frontend
// matches on.
func TestValidatorErrorMessagesStable(t *testing.T) {
	router := setupRouter()

	w := postJSON(t, router, "/api/scripts", models.CreateScriptRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("Failed to create session: status %d", w.Code)
	}

	var created models.ScriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	w = postJSON(t, router, "/api/scripts/"+created.SessionID+"/validate", map[string]any{
		"name":       "broken",
		"type":       "text",
		"unexpected": "value",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Validate endpoint should always answer 200, got %d", w.Code)
	}

	var validation models.ValidationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &validation); err != nil {
		t.Fatalf("Failed to parse validation response: %v", err)
	}
	if validation.Valid {
		t.Error("Candidate should be invalid")
	}

	expected := []string{
		`Field "prompt" is required.`,
		`Field "unexpected" is not allowed.`,
	}
	for _, message := range expected {
		found := false
		for _, err := range validation.Errors {
			if err == message {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected error message %q, got %v", message, validation.Errors)
		}
	}
}

// TestPerformanceRegression tests that validation stays fast on large scripts.
func TestPerformanceRegression(t *testing.T) {
	scr := make(models.Script)
	for i := 0; i < 500; i++ {
		name := fmt.Sprintf("question %d", i)
		q := models.Question{Name: name, Prompt: "P", Type: "text"}
		if i == 0 {
			q.Start = true
		}
		if i > 0 {
			prev := scr[fmt.Sprintf("question %d", i-1)]
			prev.Then = &models.Then{Next: name}
			scr[prev.Name] = prev
		}
		scr[name] = q
	}

	candidate := map[string]any{
		"name":   "question 250",
		"prompt": "P",
		"type":   "text",
		"then":   "question 251",
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		if errs := script.Validate(candidate, scr); len(errs) > 0 {
			t.Fatalf("Unexpected validation errors: %v", errs)
		}
	}
	duration := time.Since(start)

	if duration > time.Second {
		t.Errorf("Validation took too long: %v", duration)
	}
}
