package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/marking"
	"github.com/denimozh/mathstutor-sub000/internal/ocr"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

type solveBody struct {
	QuestionText string `json:"question_text"`
	Topic        string `json:"topic"`
	QuestionID   string `json:"question_id"`
}

type markBody struct {
	QuestionID   string `json:"question_id"`
	StudentWork  string `json:"student_work"`
	MarkScheme   string `json:"mark_scheme"`
	QuestionText string `json:"question_text"`
	Topic        string `json:"topic"`
}

type analyzeBody struct {
	QuestionID   string `json:"question_id"`
	StudentWork  string `json:"student_work"`
	QuestionText string `json:"question_text"`
	Topic        string `json:"topic"`
	Reference    string `json:"reference"`
}

type questionBody struct {
	QuestionText string `json:"question_text"`
	Topic        string `json:"topic"`
}

type questionView struct {
	ID            string          `json:"id"`
	QuestionText  string          `json:"question_text"`
	Topic         string          `json:"topic"`
	AISolution    json.RawMessage `json:"ai_solution,omitempty"`
	MarkingResult json.RawMessage `json:"marking_result,omitempty"`
	WorkAnalysis  json.RawMessage `json:"work_analysis,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

func (h *handler) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *handler) solve(c *gin.Context) {
	var body solveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest("invalid JSON body"))
		return
	}
	q, err := h.question(c, body.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if q != nil {
		body.QuestionText = firstNonEmpty(body.QuestionText, q.QuestionText)
		body.Topic = firstNonEmpty(body.Topic, q.Topic)
	}
	if strings.TrimSpace(body.QuestionText) == "" {
		respondError(c, badRequest("question_text is required"))
		return
	}

	res, err := h.Solver.Solve(c.Request.Context(), solver.Request{
		QuestionText: body.QuestionText,
		Topic:        body.Topic,
		QuestionID:   body.QuestionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if q != nil {
		h.persist(c.Request.Context(), "ai_solution", q.ID, res, h.Questions.SaveSolution)
	}

	out := gin.H{"solution": res}
	if res.NeedsReview || res.HasWarnings() {
		out["warning"] = "This solution could not be fully verified. Please check the working carefully."
	}
	respondOK(c, out)
}

func (h *handler) mark(c *gin.Context) {
	var body markBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest("invalid JSON body"))
		return
	}
	if strings.TrimSpace(body.StudentWork) == "" {
		respondError(c, badRequest("student_work is required"))
		return
	}
	q, err := h.question(c, body.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if q != nil {
		body.QuestionText = firstNonEmpty(body.QuestionText, q.QuestionText)
		body.Topic = firstNonEmpty(body.Topic, q.Topic)
	}

	res, err := h.Marker.Mark(c.Request.Context(), marking.MarkRequest{
		QuestionID:   body.QuestionID,
		StudentWork:  body.StudentWork,
		MarkScheme:   body.MarkScheme,
		QuestionText: body.QuestionText,
		Topic:        body.Topic,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if q != nil {
		h.persist(c.Request.Context(), "marking_result", q.ID, res, h.Questions.SaveMarkingResult)
	}
	respondOK(c, gin.H{"marking": res})
}

func (h *handler) analyze(c *gin.Context) {
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest("invalid JSON body"))
		return
	}
	if strings.TrimSpace(body.StudentWork) == "" {
		respondError(c, badRequest("student_work is required"))
		return
	}
	q, err := h.question(c, body.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if q != nil {
		body.QuestionText = firstNonEmpty(body.QuestionText, q.QuestionText)
		body.Topic = firstNonEmpty(body.Topic, q.Topic)
	}

	a, err := h.Marker.Analyze(c.Request.Context(), marking.AnalyzeRequest{
		QuestionID:   body.QuestionID,
		StudentWork:  body.StudentWork,
		QuestionText: body.QuestionText,
		Topic:        body.Topic,
		Reference:    body.Reference,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if q != nil {
		h.persist(c.Request.Context(), "work_analysis", q.ID, a, h.Questions.SaveWorkAnalysis)
	}
	respondOK(c, gin.H{"analysis": a})
}

func (h *handler) recognize(c *gin.Context) {
	if h.OCR == nil {
		respondError(c, &apiError{Status: http.StatusServiceUnavailable, Code: "ocr_disabled", Message: "OCR is not configured"})
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		respondError(c, badRequest("multipart field image is required"))
		return
	}
	if fh.Size > ocr.MaxImageBytes {
		respondError(c, badRequest("image is too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	img, err := io.ReadAll(io.LimitReader(f, ocr.MaxImageBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}

	res := h.OCR.Read(c.Request.Context(), img)
	if res.Error != "" {
		h.Log.Warn("ocr degraded", "provider", res.Provider, "error", res.Error)
	}
	respondOK(c, gin.H{"ocr": res})
}

func (h *handler) createQuestion(c *gin.Context) {
	if h.Questions == nil {
		respondError(c, &apiError{Status: http.StatusServiceUnavailable, Code: "store_disabled", Message: "question storage is not configured"})
		return
	}
	var body questionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, badRequest("invalid JSON body"))
		return
	}
	if strings.TrimSpace(body.QuestionText) == "" {
		respondError(c, badRequest("question_text is required"))
		return
	}

	q := &store.Question{
		UserID:       c.GetString(ctxUserID),
		QuestionText: strings.TrimSpace(body.QuestionText),
		Topic:        strings.TrimSpace(body.Topic),
	}
	if err := h.Questions.Create(c.Request.Context(), q); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "question": viewQuestion(q)})
}

func (h *handler) getQuestion(c *gin.Context) {
	if h.Questions == nil {
		respondError(c, errNotFound)
		return
	}
	q, err := h.question(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"question": viewQuestion(q)})
}

func (h *handler) listExamples(c *gin.Context) {
	examples := h.Corpus.Examples()
	if topic := strings.ToLower(strings.TrimSpace(c.Query("topic"))); topic != "" {
		filtered := examples[:0]
		for _, ex := range examples {
			if strings.Contains(strings.ToLower(ex.Topic), topic) {
				filtered = append(filtered, ex)
			}
		}
		examples = filtered
	}
	if examples == nil {
		examples = []corpus.WorkedExample{}
	}
	respondOK(c, gin.H{"examples": examples, "count": len(examples)})
}

// question loads id and checks the caller owns it. An empty id, or no
// store, yields nil without error.
func (h *handler) question(c *gin.Context, id string) (*store.Question, error) {
	if id == "" || h.Questions == nil {
		return nil, nil
	}
	q, err := h.Questions.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	if q.UserID != "" && q.UserID != c.GetString(ctxUserID) {
		return nil, errForbidden
	}
	return q, nil
}

// persist stores an artefact on the question. Failures are logged; the
// caller still gets the result.
func (h *handler) persist(ctx context.Context, column, id string, v any, save func(context.Context, string, json.RawMessage) error) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = save(ctx, id, raw)
	}
	if err != nil {
		h.Log.Warn("failed to persist result", "column", column, "question_id", id, "error", err)
	}
}

func viewQuestion(q *store.Question) questionView {
	return questionView{
		ID:            q.ID,
		QuestionText:  q.QuestionText,
		Topic:         q.Topic,
		AISolution:    q.AISolution,
		MarkingResult: q.MarkingResult,
		WorkAnalysis:  q.WorkAnalysis,
		CreatedAt:     q.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     q.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
