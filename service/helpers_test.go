package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-interviewer/domain"
	"ai-interviewer/repository"
)

// fakeStore is an in-memory implementation of the persistence boundary for
// service tests. Single-writer semantics are enough here; InTx runs the
// function directly against the same state.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint

	resumes          map[uint]domain.Resume
	questions        map[uint]domain.Question
	sessions         map[uint]domain.InterviewSession
	sessionQuestions map[uint]domain.SessionQuestion
	videos           map[uint]domain.VideoRecording
	flags            []domain.CheatingFlag
	feedbacks        map[uint]domain.Feedback // keyed by session ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resumes:          make(map[uint]domain.Resume),
		questions:        make(map[uint]domain.Question),
		sessions:         make(map[uint]domain.InterviewSession),
		sessionQuestions: make(map[uint]domain.SessionQuestion),
		videos:           make(map[uint]domain.VideoRecording),
		feedbacks:        make(map[uint]domain.Feedback),
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(f)
}

func (f *fakeStore) CreateResume(ctx context.Context, r *domain.Resume) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.id()
	f.resumes[r.ID] = *r
	return nil
}

func (f *fakeStore) GetResume(ctx context.Context, id uint) (*domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) SetResumeText(ctx context.Context, id uint, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.ExtractedText = &text
	f.resumes[id] = r
	return nil
}

func (f *fakeStore) GetOrCreateQuestion(ctx context.Context, text, skillTag string, difficulty int) (*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := domain.QuestionTextHash(text)
	for _, q := range f.questions {
		if q.TextHash == hash {
			return &q, nil
		}
	}
	q := domain.Question{
		ID:         f.id(),
		Text:       text,
		TextHash:   hash,
		SkillTag:   skillTag,
		Difficulty: difficulty,
	}
	f.questions[q.ID] = q
	return &q, nil
}

func (f *fakeStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Question, 0, len(f.questions))
	for _, q := range f.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CreateSession(ctx context.Context, s *domain.InterviewSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.id()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeStore) GetSession(ctx context.Context, id uint) (*domain.InterviewSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) SessionForUpdate(ctx context.Context, id uint) (*domain.InterviewSession, error) {
	return f.GetSession(ctx, id)
}

func (f *fakeStore) SaveSession(ctx context.Context, s *domain.InterviewSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeStore) CreateSessionQuestion(ctx context.Context, sq *domain.SessionQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sq.ID = f.id()
	stored := *sq
	stored.Question = nil
	f.sessionQuestions[sq.ID] = stored
	return nil
}

func (f *fakeStore) resolve(sq domain.SessionQuestion) domain.SessionQuestion {
	if sq.QuestionID != nil {
		if q, ok := f.questions[*sq.QuestionID]; ok {
			sq.Question = &q
		}
	}
	return sq
}

func (f *fakeStore) GetSessionQuestion(ctx context.Context, id uint) (*domain.SessionQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sq, ok := f.sessionQuestions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	resolved := f.resolve(sq)
	return &resolved, nil
}

func (f *fakeStore) SaveSessionQuestion(ctx context.Context, sq *domain.SessionQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *sq
	stored.Question = nil
	f.sessionQuestions[sq.ID] = stored
	return nil
}

func (f *fakeStore) OpenQuestion(ctx context.Context, sessionID uint) (*domain.SessionQuestion, error) {
	sqs, err := f.SessionQuestionsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range sqs {
		if !sqs[i].Answered() {
			return &sqs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SessionQuestionsBySession(ctx context.Context, sessionID uint) ([]domain.SessionQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SessionQuestion
	for _, sq := range f.sessionQuestions {
		if sq.SessionID == sessionID {
			out = append(out, f.resolve(sq))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AskedAt.Equal(out[j].AskedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AskedAt.Before(out[j].AskedAt)
	})
	return out, nil
}

func (f *fakeStore) CountSessionQuestions(ctx context.Context, sessionID uint) (int64, error) {
	sqs, err := f.SessionQuestionsBySession(ctx, sessionID)
	return int64(len(sqs)), err
}

func (f *fakeStore) CreateVideoRecording(ctx context.Context, v *domain.VideoRecording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = f.id()
	f.videos[v.ID] = *v
	return nil
}

func (f *fakeStore) GetVideoRecording(ctx context.Context, id uint) (*domain.VideoRecording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (f *fakeStore) VideoBySession(ctx context.Context, sessionID uint) (*domain.VideoRecording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.videos {
		if v.SessionID == sessionID {
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) MarkVideoProcessed(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Processed = true
	f.videos[id] = v
	return nil
}

func (f *fakeStore) CreateCheatingFlag(ctx context.Context, flag *domain.CheatingFlag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag.ID = f.id()
	f.flags = append(f.flags, *flag)
	return nil
}

func (f *fakeStore) FlagsBySession(ctx context.Context, sessionID uint) ([]domain.CheatingFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CheatingFlag
	for _, flag := range f.flags {
		if v, ok := f.videos[flag.RecordingID]; ok && v.SessionID == sessionID {
			out = append(out, flag)
		}
	}
	return out, nil
}

func (f *fakeStore) CountFlagsBySession(ctx context.Context, sessionID uint) (int64, error) {
	flags, err := f.FlagsBySession(ctx, sessionID)
	return int64(len(flags)), err
}

func (f *fakeStore) UpsertFeedback(ctx context.Context, fb *domain.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.feedbacks[fb.SessionID]; ok {
		existing.Summary = fb.Summary
		existing.Breakdown = fb.Breakdown
		f.feedbacks[fb.SessionID] = existing
		fb.ID = existing.ID
		return nil
	}
	fb.ID = f.id()
	f.feedbacks[fb.SessionID] = *fb
	return nil
}

func (f *fakeStore) FeedbackBySession(ctx context.Context, sessionID uint) (*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, ok := f.feedbacks[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fb, nil
}

// lockingStore layers real per-session mutexes over the fake so tests can
// exercise interleavings a database row lock permits. A lock taken inside InTx
// is held until the function returns, matching transaction commit.
type lockingStore struct {
	*fakeStore
	lockMu sync.Mutex
	locks  map[uint]*sync.Mutex

	// beforeGet, when set, runs before every transactional session question
	// read; tests use it to gate goroutines at a chosen point.
	beforeGet func()
}

func newLockingStore() *lockingStore {
	return &lockingStore{fakeStore: newFakeStore(), locks: make(map[uint]*sync.Mutex)}
}

func (l *lockingStore) sessionLock(id uint) *sync.Mutex {
	l.lockMu.Lock()
	defer l.lockMu.Unlock()
	if _, ok := l.locks[id]; !ok {
		l.locks[id] = &sync.Mutex{}
	}
	return l.locks[id]
}

func (l *lockingStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	tx := &lockingTx{lockingStore: l}
	defer tx.releaseLocks()
	return fn(tx)
}

type lockingTx struct {
	*lockingStore
	held []*sync.Mutex
}

func (t *lockingTx) SessionForUpdate(ctx context.Context, id uint) (*domain.InterviewSession, error) {
	m := t.sessionLock(id)
	m.Lock()
	t.held = append(t.held, m)
	return t.fakeStore.SessionForUpdate(ctx, id)
}

func (t *lockingTx) GetSessionQuestion(ctx context.Context, id uint) (*domain.SessionQuestion, error) {
	if t.beforeGet != nil {
		t.beforeGet()
	}
	return t.fakeStore.GetSessionQuestion(ctx, id)
}

func (t *lockingTx) releaseLocks() {
	for _, m := range t.held {
		m.Unlock()
	}
}

// fakeGenerator lets each test script provider behavior.
type fakeGenerator struct {
	questionFn func(resumeText string, transcript []domain.TranscriptEntry) (string, error)
	evalFn     func(questionText, answerText string) (domain.Evaluation, error)

	lastResumeText string
	questionCalls  int
	evalCalls      int
}

func (g *fakeGenerator) GenerateQuestion(ctx context.Context, resumeText string, transcript []domain.TranscriptEntry) (string, error) {
	g.questionCalls++
	g.lastResumeText = resumeText
	if g.questionFn != nil {
		return g.questionFn(resumeText, transcript)
	}
	return "Describe a project you are proud of.", nil
}

func (g *fakeGenerator) EvaluateAnswer(ctx context.Context, questionText, answerText string) (domain.Evaluation, error) {
	g.evalCalls++
	if g.evalFn != nil {
		return g.evalFn(questionText, answerText)
	}
	return domain.Evaluation{Score: 7, Confidence: 0.9}, nil
}

type fakeScanner struct {
	findings []domain.Finding
	err      error
	calls    int
}

func (s *fakeScanner) ScanVideo(ctx context.Context, videoRef string) ([]domain.Finding, error) {
	s.calls++
	return s.findings, s.err
}

// testClock returns a strictly increasing clock so ask/answer ordering is
// deterministic.
func testClock() func() time.Time {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

type testEnv struct {
	svc     *Interview
	store   *fakeStore
	gen     *fakeGenerator
	scanner *fakeScanner
}

func newTestEnv(maxQuestions int) *testEnv {
	store := newFakeStore()
	gen := &fakeGenerator{}
	scanner := &fakeScanner{findings: []domain.Finding{
		{FlagType: "multiple_faces", Description: "Detected 2 faces at 00:02:34"},
		{FlagType: "off_screen_lookup", Description: "Gaze away > 10s starting 00:10:12"},
	}}
	svc := NewInterview(Deps{
		Store:        store,
		Generator:    gen,
		Scanner:      scanner,
		MaxQuestions: maxQuestions,
		Now:          testClock(),
	})
	return &testEnv{svc: svc, store: store, gen: gen, scanner: scanner}
}

func (e *testEnv) addResume(text *string) *domain.Resume {
	r := &domain.Resume{FileRef: "/media/resume.pdf", ExtractedText: text}
	_ = e.store.CreateResume(context.Background(), r)
	return r
}

func strPtr(s string) *string { return &s }
