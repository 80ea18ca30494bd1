package interfaces

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-interviewer/domain"
	"ai-interviewer/infrastructure"
	"ai-interviewer/repository"
	"ai-interviewer/service"
)

type HTTPHandler struct {
	svc       *service.Interview
	store     repository.Store
	extractor *infrastructure.ResumeExtractor
	storage   *infrastructure.LocalStorage
	logger    *zap.Logger
}

func NewHTTPHandler(
	router *gin.Engine,
	svc *service.Interview,
	store repository.Store,
	extractor *infrastructure.ResumeExtractor,
	storage *infrastructure.LocalStorage,
	logger *zap.Logger,
) {
	h := &HTTPHandler{svc: svc, store: store, extractor: extractor, storage: storage, logger: logger}

	router.POST("/resumes", h.UploadResume)
	router.GET("/resumes/:id", h.GetResume)
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions/:id", h.GetSession)
	router.POST("/sessions/:id/questions", h.AskNextQuestion)
	router.GET("/sessions/:id/feedback", h.GetFeedback)
	router.GET("/sessions/:id/flags", h.ListFlags)
	router.GET("/session-questions", h.ListSessionQuestions)
	router.PATCH("/session-questions/:id", h.SubmitAnswer)
	router.GET("/questions", h.ListQuestions)
	router.POST("/videos", h.UploadVideo)
}

// UploadResume stores the file, extracts text best-effort, and saves the
// resume. Extraction failure leaves the text null but never fails the upload.
func (h *HTTPHandler) UploadResume(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	fileRef, err := h.storage.StoreFile(data, fileHeader.Filename)
	if err != nil {
		h.logger.Error("resume file storage failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	resume := &domain.Resume{
		CandidateName:  c.PostForm("candidate_name"),
		CandidateEmail: c.PostForm("candidate_email"),
		FileRef:        fileRef,
	}
	if text, ok := h.extractor.ExtractText(data, fileHeader.Filename); ok {
		resume.ExtractedText = &text
	}

	if err := h.store.CreateResume(c.Request.Context(), resume); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save resume: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resumeJSON(resume))
}

func (h *HTTPHandler) GetResume(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resume, err := h.store.GetResume(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resumeJSON(resume))
}

// CreateSession starts a session and seeds its first question. If generation
// fails the session is still created (pending, zero questions) and returned;
// the caller retries via POST /sessions/:id/questions.
func (h *HTTPHandler) CreateSession(c *gin.Context) {
	var req struct {
		ResumeID       uint   `json:"resume_id"`
		CandidateName  string `json:"candidate_name"`
		CandidateEmail string `json:"candidate_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.svc.StartSession(c.Request.Context(), service.StartSessionInput{
		CandidateName:  req.CandidateName,
		CandidateEmail: req.CandidateEmail,
		ResumeID:       req.ResumeID,
	})
	if err != nil && sess == nil {
		h.renderError(c, err)
		return
	}

	resp := sessionJSON(sess)
	if err != nil {
		resp["warning"] = "first question generation failed; retry via POST /sessions/:id/questions"
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *HTTPHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sess, err := h.store.GetSession(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	sqs, err := h.store.SessionQuestionsBySession(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := sessionJSON(sess)
	questions := make([]gin.H, 0, len(sqs))
	for i := range sqs {
		questions = append(questions, sessionQuestionJSON(&sqs[i]))
	}
	resp["questions"] = questions
	c.JSON(http.StatusOK, resp)
}

// AskNextQuestion re-invokes question generation for a session, used to retry
// after a failed generation.
func (h *HTTPHandler) AskNextQuestion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sq, err := h.svc.AskNextQuestion(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionQuestionJSON(sq))
}

func (h *HTTPHandler) ListSessionQuestions(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Query("session"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session query parameter is required"})
		return
	}
	sqs, err := h.store.SessionQuestionsBySession(c.Request.Context(), uint(sessionID))
	if err != nil {
		h.renderError(c, err)
		return
	}
	out := make([]gin.H, 0, len(sqs))
	for i := range sqs {
		out = append(out, sessionQuestionJSON(&sqs[i]))
	}
	c.JSON(http.StatusOK, out)
}

// SubmitAnswer records the candidate's answer; evaluation and the next
// question are triggered behind it.
func (h *HTTPHandler) SubmitAnswer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		AnswerText string `json:"answer_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sq, err := h.svc.SubmitAnswer(c.Request.Context(), id, req.AnswerText)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionQuestionJSON(sq))
}

func (h *HTTPHandler) ListQuestions(c *gin.Context) {
	qs, err := h.store.ListQuestions(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	out := make([]gin.H, 0, len(qs))
	for i := range qs {
		out = append(out, questionJSON(&qs[i]))
	}
	c.JSON(http.StatusOK, out)
}

// UploadVideo stores the uploaded video and kicks off integrity scanning and
// final feedback generation.
func (h *HTTPHandler) UploadVideo(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.PostForm("session"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session form field is required"})
		return
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open video"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read video"})
		return
	}

	videoRef, err := h.storage.StoreFile(data, fileHeader.Filename)
	if err != nil {
		h.logger.Error("video storage failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store video"})
		return
	}

	rec, err := h.svc.SubmitVideo(c.Request.Context(), uint(sessionID), videoRef)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         rec.ID,
		"session_id": rec.SessionID,
		"video_ref":  rec.VideoRef,
		"processed":  rec.Processed,
		"created_at": rec.CreatedAt,
	})
}

func (h *HTTPHandler) GetFeedback(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	fb, err := h.store.FeedbackBySession(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         fb.ID,
		"session_id": fb.SessionID,
		"summary":    fb.Summary,
		"breakdown":  fb.Breakdown,
		"created_at": fb.CreatedAt,
	})
}

func (h *HTTPHandler) ListFlags(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flags, err := h.store.FlagsBySession(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	out := make([]gin.H, 0, len(flags))
	for _, f := range flags {
		out = append(out, gin.H{
			"id":           f.ID,
			"recording_id": f.RecordingID,
			"flag_type":    f.FlagType,
			"description":  f.Description,
			"timestamp":    f.Timestamp,
		})
	}
	c.JSON(http.StatusOK, out)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (h *HTTPHandler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOpenQuestionExists),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrAlreadyEvaluated):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationParse):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func resumeJSON(r *domain.Resume) gin.H {
	return gin.H{
		"id":              r.ID,
		"candidate_name":  r.CandidateName,
		"candidate_email": r.CandidateEmail,
		"file_ref":        r.FileRef,
		"extracted_text":  r.ExtractedText,
		"uploaded_at":     r.UploadedAt,
	}
}

func sessionJSON(s *domain.InterviewSession) gin.H {
	return gin.H{
		"id":              s.ID,
		"candidate_name":  s.CandidateName,
		"candidate_email": s.CandidateEmail,
		"resume_id":       s.ResumeID,
		"status":          s.Status,
		"started_at":      s.StartedAt,
		"ended_at":        s.EndedAt,
		"total_score":     s.TotalScore,
	}
}

func sessionQuestionJSON(sq *domain.SessionQuestion) gin.H {
	out := gin.H{
		"id":            sq.ID,
		"session_id":    sq.SessionID,
		"asked_at":      sq.AskedAt,
		"answer_text":   sq.AnswerText,
		"answered_at":   sq.AnsweredAt,
		"time_spent_ms": sq.TimeSpentMS,
		"score":         sq.Score,
		"confidence":    sq.Confidence,
		"follow_up":     sq.FollowUp,
	}
	if sq.Question != nil {
		out["question"] = questionJSON(sq.Question)
	} else {
		out["question"] = nil
	}
	return out
}

func questionJSON(q *domain.Question) gin.H {
	return gin.H{
		"id":         q.ID,
		"text":       q.Text,
		"skill_tag":  q.SkillTag,
		"difficulty": q.Difficulty,
		"created_at": q.CreatedAt,
	}
}
