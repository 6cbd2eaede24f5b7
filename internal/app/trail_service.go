package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"forest-valley-trail/internal/domain"
)

// SessionStore abstracts the per-device persistence of trail sessions
// (in-memory, Redis, etc).
type SessionStore interface {
	Get(ctx context.Context, deviceID string) (domain.TrailSession, bool, error)
	Save(ctx context.Context, session domain.TrailSession) error
	Delete(ctx context.Context, deviceID string) error
}

// CheckpointRepository loads trail content (from cache/backing store).
type CheckpointRepository interface {
	Checkpoints(ctx context.Context) ([]domain.Checkpoint, error)
	Checkpoint(ctx context.Context, id int) (domain.Checkpoint, error)
}

// NationBoard is the shared leaderboard. Increment must be an atomic
// add-one on the backing store; failures are the caller's to ignore.
type NationBoard interface {
	Increment(ctx context.Context, nation domain.Nation) (domain.Leaderboard, error)
	Snapshot(ctx context.Context) (domain.Leaderboard, error)
	Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error)
}

// SurveyStore appends visitor feedback records.
type SurveyStore interface {
	Append(ctx context.Context, response domain.SurveyResponse) error
}

// TrailService contains the trail use cases: starting a run, judging
// checkpoint submissions, restoring settled checkpoints, and finalizing the
// run into a daily voucher.
type TrailService struct {
	sessions    SessionStore
	checkpoints CheckpointRepository
	board       NationBoard
	surveys     SurveyStore
	nations     map[string]domain.Nation

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewTrailService(sessions SessionStore, checkpoints CheckpointRepository, board NationBoard, surveys SurveyStore, nations []domain.Nation) *TrailService {
	return NewTrailServiceWithClock(sessions, checkpoints, board, surveys, nations, time.Now)
}

// NewTrailServiceWithClock allows deterministic calendar days in tests.
func NewTrailServiceWithClock(sessions SessionStore, checkpoints CheckpointRepository, board NationBoard, surveys SurveyStore, nations []domain.Nation, now func() time.Time) *TrailService {
	byCode := make(map[string]domain.Nation, len(nations))
	for _, n := range nations {
		byCode[n.Code] = n
	}
	return &TrailService{
		sessions:    sessions,
		checkpoints: checkpoints,
		board:       board,
		surveys:     surveys,
		nations:     byCode,
		now:         now,
		rng:         rand.New(rand.NewSource(now().UnixNano())),
	}
}

// Nations lists the selectable teams, sorted by display name.
func (s *TrailService) Nations() []domain.Nation {
	out := make([]domain.Nation, 0, len(s.nations))
	for _, n := range s.nations {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StartTrail begins a fresh run for the device: nation pinned, score zeroed,
// all checkpoint state cleared. The daily-win lock fields are carried over
// from any previous session so a restart cannot mint a second voucher.
func (s *TrailService) StartTrail(ctx context.Context, deviceID, nationCode string) (domain.TrailSession, error) {
	nation, ok := s.nations[nationCode]
	if !ok {
		return domain.TrailSession{}, domain.ErrNationNotFound
	}

	session := domain.TrailSession{
		DeviceID:  deviceID,
		Nation:    nation,
		Score:     0,
		Answers:   make(map[int]domain.CheckpointAnswer),
		Scored:    make(map[int]bool),
		StartedAt: s.now(),
	}
	if prev, found, err := s.sessions.Get(ctx, deviceID); err != nil {
		return domain.TrailSession{}, fmt.Errorf("load previous session: %w", err)
	} else if found {
		session.LastWinDate = prev.LastWinDate
		session.TicketID = prev.TicketID
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.TrailSession{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// SubmitAnswer judges a checkpoint submission exactly once. A checkpoint that
// already holds an answer replays its stored verdict with no side effects.
// On a first correct answer the local score is bumped and persisted before the
// shared board increment is attempted; a board failure is logged and swallowed
// (the local score stays authoritative for voucher eligibility).
func (s *TrailService) SubmitAnswer(ctx context.Context, deviceID string, checkpointID int, selection []string) (domain.Verdict, error) {
	session, found, err := s.sessions.Get(ctx, deviceID)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return domain.Verdict{}, domain.ErrSessionNotFound
	}

	checkpoint, err := s.checkpoints.Checkpoint(ctx, checkpointID)
	if err != nil {
		return domain.Verdict{}, err
	}

	if answer, ok := session.Answers[checkpointID]; ok {
		return settledVerdict(checkpoint, answer), nil
	}

	selected := dedupe(selection)
	if len(selected) == 0 {
		return domain.Verdict{}, domain.ErrEmptySelection
	}

	correct := judge(checkpoint, selected)
	answer := domain.CheckpointAnswer{Selected: selected, Correct: correct}
	if session.Answers == nil {
		session.Answers = make(map[int]domain.CheckpointAnswer)
	}
	if session.Scored == nil {
		session.Scored = make(map[int]bool)
	}
	session.Answers[checkpointID] = answer

	scoreNow := correct && !session.Scored[checkpointID]
	if scoreNow {
		session.Scored[checkpointID] = true
		session.Score++
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Verdict{}, fmt.Errorf("save session: %w", err)
	}

	if scoreNow {
		if _, err := s.board.Increment(ctx, session.Nation); err != nil {
			// Best-effort: the shared board may under-count, local state wins.
			log.Printf("leaderboard increment failed for %s: %v", session.Nation.Code, err)
		}
	}

	return settledVerdict(checkpoint, answer), nil
}

// Restore returns the settled state of a checkpoint for the device, so a
// reloaded or back-navigated view renders the stored verdict instead of a
// fresh question. It never re-judges and never touches the score.
func (s *TrailService) Restore(ctx context.Context, deviceID string, checkpointID int) (domain.Verdict, error) {
	session, found, err := s.sessions.Get(ctx, deviceID)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return domain.Verdict{}, domain.ErrSessionNotFound
	}

	checkpoint, err := s.checkpoints.Checkpoint(ctx, checkpointID)
	if err != nil {
		return domain.Verdict{}, err
	}

	answer, ok := session.Answers[checkpointID]
	if !ok {
		return domain.Verdict{CheckpointID: checkpointID}, nil
	}
	return settledVerdict(checkpoint, answer), nil
}

// FinalizeRun evaluates the finished trail. The score is clamped to the
// checkpoint count before the perfect check, guarding against replayed or
// corrupted session state. A perfect run mints at most one voucher per
// device per calendar day; within the same day the stored ticket is returned
// verbatim.
func (s *TrailService) FinalizeRun(ctx context.Context, deviceID string) (domain.RunResult, error) {
	session, found, err := s.sessions.Get(ctx, deviceID)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return domain.RunResult{}, domain.ErrSessionNotFound
	}

	checkpoints, err := s.checkpoints.Checkpoints(ctx)
	if err != nil {
		return domain.RunResult{}, err
	}
	max := len(checkpoints)

	dirty := false
	if session.Score > max {
		session.Score = max
		dirty = true
	}

	result := domain.RunResult{
		Score:    session.Score,
		MaxScore: max,
		Perfect:  session.Score == max && max > 0,
	}

	if result.Perfect {
		today := s.now().Format("2006-01-02")
		if session.LastWinDate != today || session.TicketID == "" {
			session.TicketID = s.mintTicket(session.Nation.Code, session.TicketID)
			session.LastWinDate = today
			dirty = true
		}
		result.TicketID = session.TicketID
	}

	if dirty {
		if err := s.sessions.Save(ctx, session); err != nil {
			return domain.RunResult{}, fmt.Errorf("save session: %w", err)
		}
	}
	return result, nil
}

// Checkpoints returns the trail in walking order.
func (s *TrailService) Checkpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	return s.checkpoints.Checkpoints(ctx)
}

// Leaderboard returns the current ordered board.
func (s *TrailService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	return s.board.Snapshot(ctx)
}

// Subscribe returns a channel that receives leaderboard updates. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *TrailService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	return s.board.Subscribe(ctx)
}

// SubmitSurvey stores one feedback record. Callers treat failures as
// non-fatal; the transport layer swallows the error entirely.
func (s *TrailService) SubmitSurvey(ctx context.Context, response domain.SurveyResponse) error {
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = s.now()
	}
	return s.surveys.Append(ctx, response)
}

// mintTicket builds a voucher code like "JWL-SG-8921", never repeating the
// previous day's code for the same device.
func (s *TrailService) mintTicket(nationCode, previous string) string {
	prefix := nationCode
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	for {
		ticket := fmt.Sprintf("JWL-%s-%04d", prefix, 1000+s.rng.Intn(9000))
		if ticket != previous {
			return ticket
		}
	}
}

// judge applies the correctness rule: multi-select demands exact set
// equality (order-independent, partial subsets wrong); single-select demands
// exactly one option drawn from the accepted answer set.
func judge(checkpoint domain.Checkpoint, selected []string) bool {
	if checkpoint.MultiSelect {
		if len(selected) != len(checkpoint.Answer) {
			return false
		}
		want := make(map[string]bool, len(checkpoint.Answer))
		for _, opt := range checkpoint.Answer {
			want[opt] = true
		}
		for _, opt := range selected {
			if !want[opt] {
				return false
			}
		}
		return true
	}

	if len(selected) != 1 {
		return false
	}
	for _, opt := range checkpoint.Answer {
		if selected[0] == opt {
			return true
		}
	}
	return false
}

func settledVerdict(checkpoint domain.Checkpoint, answer domain.CheckpointAnswer) domain.Verdict {
	return domain.Verdict{
		CheckpointID:  checkpoint.ID,
		Answered:      true,
		Selected:      answer.Selected,
		Correct:       answer.Correct,
		CorrectAnswer: checkpoint.Answer,
	}
}

func dedupe(selection []string) []string {
	seen := make(map[string]bool, len(selection))
	out := make([]string, 0, len(selection))
	for _, opt := range selection {
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		out = append(out, opt)
	}
	return out
}
