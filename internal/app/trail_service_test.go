package app_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"forest-valley-trail/internal/app"
	"forest-valley-trail/internal/domain"
	"forest-valley-trail/internal/infra/memory"
)

var ticketPattern = regexp.MustCompile(`^JWL-[A-Z]{2}-\d{4}$`)

func TestSubmitAnswerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, board, _ := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")

	first, err := svc.SubmitAnswer(ctx, "dev-1", 1, []string{"40 metres"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !first.Correct {
		t.Fatalf("expected correct verdict, got %+v", first)
	}

	// Same selection, then a different one: both replay the stored verdict.
	for _, retry := range [][]string{{"40 metres"}, {"20 metres"}} {
		again, err := svc.SubmitAnswer(ctx, "dev-1", 1, retry)
		if err != nil {
			t.Fatalf("resubmit failed: %v", err)
		}
		if !again.Correct || again.Selected[0] != "40 metres" {
			t.Fatalf("expected stored verdict replayed, got %+v", again)
		}
	}

	if board.increments != 1 {
		t.Fatalf("expected exactly one board increment, got %d", board.increments)
	}
	run, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if run.Score != 1 {
		t.Fatalf("expected score 1 after resubmissions, got %d", run.Score)
	}
}

func TestMultiSelectOrderIndependent(t *testing.T) {
	ctx := context.Background()

	permutations := [][]string{
		{"Mist bowl", "Reflecting pond", "Stepping cascades"},
		{"Stepping cascades", "Mist bowl", "Reflecting pond"},
		{"Reflecting pond", "Stepping cascades", "Mist bowl"},
	}
	for _, selection := range permutations {
		svc, _, _ := newTestService(t, time.Now)
		mustStart(t, svc, "dev-1", "SG")
		verdict, err := svc.SubmitAnswer(ctx, "dev-1", 4, selection)
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if !verdict.Correct {
			t.Fatalf("expected permutation %v judged correct", selection)
		}
	}
}

func TestMultiSelectPartialSubsetIsWrong(t *testing.T) {
	ctx := context.Background()
	svc, board, _ := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")

	verdict, err := svc.SubmitAnswer(ctx, "dev-1", 4, []string{"Mist bowl", "Reflecting pond"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if verdict.Correct {
		t.Fatalf("expected partial subset judged wrong")
	}
	if board.increments != 0 {
		t.Fatalf("expected no board increment for a wrong answer, got %d", board.increments)
	}
}

func TestMultiSelectSupersetIsWrong(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")

	verdict, err := svc.SubmitAnswer(ctx, "dev-1", 4, []string{"Mist bowl", "Reflecting pond", "Stepping cascades", "Geyser fountain"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if verdict.Correct {
		t.Fatalf("expected superset judged wrong")
	}
}

func TestScoreCountsFirstSubmissionsOnly(t *testing.T) {
	ctx := context.Background()
	svc, board, _ := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")

	// 1 and 2 correct, 3 wrong, 4 correct.
	submissions := map[int][]string{
		1: {"40 metres"},
		2: {"Four"},
		3: {"Honeybee"},
		4: {"Mist bowl", "Reflecting pond", "Stepping cascades"},
	}
	for id := 1; id <= 4; id++ {
		if _, err := svc.SubmitAnswer(ctx, "dev-1", id, submissions[id]); err != nil {
			t.Fatalf("submit %d: %v", id, err)
		}
	}

	// Reload checkpoint 3 and re-answer it "correctly": the wrong verdict stands.
	restored, err := svc.Restore(ctx, "dev-1", 3)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored.Answered || restored.Correct {
		t.Fatalf("expected settled incorrect verdict, got %+v", restored)
	}
	if _, err := svc.SubmitAnswer(ctx, "dev-1", 3, []string{"Fig wasp"}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	run, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if run.Score != 3 || run.Perfect {
		t.Fatalf("expected score 3 and no voucher, got %+v", run)
	}
	if run.TicketID != "" {
		t.Fatalf("expected no ticket on imperfect run, got %q", run.TicketID)
	}
	if board.increments != 3 {
		t.Fatalf("expected 3 board increments, got %d", board.increments)
	}
}

func TestPerfectRunMintsDailyVoucher(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, func() time.Time { return day })

	mustStart(t, svc, "dev-1", "SG")
	answerAllCorrect(t, svc, "dev-1")

	run, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if run.Score != 4 || !run.Perfect {
		t.Fatalf("expected perfect 4/4 run, got %+v", run)
	}
	if !ticketPattern.MatchString(run.TicketID) {
		t.Fatalf("expected JWL-SG-#### ticket, got %q", run.TicketID)
	}
	if run.TicketID[:7] != "JWL-SG-" {
		t.Fatalf("expected nation-code prefix, got %q", run.TicketID)
	}

	// Same calendar day: the results view reuses the exact same ticket.
	again, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize again: %v", err)
	}
	if again.TicketID != run.TicketID {
		t.Fatalf("expected same-day ticket reuse, got %q vs %q", again.TicketID, run.TicketID)
	}
}

func TestVoucherRegeneratedAfterDayChange(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, func() time.Time { return now })

	mustStart(t, svc, "dev-1", "SG")
	answerAllCorrect(t, svc, "dev-1")
	first, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Next day, fresh perfect run. The daily lock survives the restart but a
	// new day yields a new ticket.
	now = now.Add(6 * time.Hour)
	mustStart(t, svc, "dev-1", "SG")
	answerAllCorrect(t, svc, "dev-1")
	second, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize next day: %v", err)
	}
	if second.TicketID == first.TicketID {
		t.Fatalf("expected a fresh ticket after the day changed")
	}
	if !ticketPattern.MatchString(second.TicketID) {
		t.Fatalf("expected JWL-SG-#### ticket, got %q", second.TicketID)
	}
}

func TestRestartSameDayKeepsVoucherLock(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, func() time.Time { return day })

	mustStart(t, svc, "dev-1", "SG")
	answerAllCorrect(t, svc, "dev-1")
	first, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Restart and win again within the same day: no second voucher.
	mustStart(t, svc, "dev-1", "SG")
	answerAllCorrect(t, svc, "dev-1")
	second, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize after restart: %v", err)
	}
	if second.TicketID != first.TicketID {
		t.Fatalf("expected the day's ticket reused across restarts, got %q vs %q", second.TicketID, first.TicketID)
	}
}

func TestStartTrailResetsRunState(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")

	if _, err := svc.SubmitAnswer(ctx, "dev-1", 1, []string{"40 metres"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	session, err := svc.StartTrail(ctx, "dev-1", "JP")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if session.Score != 0 || len(session.Answers) != 0 || len(session.Scored) != 0 {
		t.Fatalf("expected clean run state after restart, got %+v", session)
	}
	if session.Nation.Code != "JP" {
		t.Fatalf("expected new nation pinned, got %+v", session.Nation)
	}

	verdict, err := svc.Restore(ctx, "dev-1", 1)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if verdict.Answered {
		t.Fatalf("expected checkpoint 1 unanswered after restart, got %+v", verdict)
	}
}

func TestRestoreUnansweredAndInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")

	verdict, err := svc.Restore(ctx, "dev-1", 2)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if verdict.Answered {
		t.Fatalf("expected unanswered checkpoint, got %+v", verdict)
	}

	if _, err := svc.Restore(ctx, "dev-1", 99); !errors.Is(err, domain.ErrCheckpointNotFound) {
		t.Fatalf("expected checkpoint error, got %v", err)
	}
	if _, err := svc.Restore(ctx, "ghost", 1); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestCorruptedScoreClampedBeforePerfectCheck(t *testing.T) {
	ctx := context.Background()
	svc, _, sessions := newTestService(t, time.Now)
	mustStart(t, svc, "dev-1", "SG")
	answerAllCorrect(t, svc, "dev-1")

	// Simulate replayed/corrupted persisted state.
	session, _, err := sessions.Get(ctx, "dev-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	session.Score = 9
	if err := sessions.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	run, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if run.Score != 4 || !run.Perfect {
		t.Fatalf("expected score clamped to 4/4, got %+v", run)
	}
}

func TestBoardFailureDoesNotAffectLocalScore(t *testing.T) {
	ctx := context.Background()
	svc, board, _ := newTestService(t, time.Now)
	board.err = errors.New("leaderboard unreachable")
	mustStart(t, svc, "dev-1", "SG")

	verdict, err := svc.SubmitAnswer(ctx, "dev-1", 1, []string{"40 metres"})
	if err != nil {
		t.Fatalf("expected board failure swallowed, got %v", err)
	}
	if !verdict.Correct {
		t.Fatalf("expected correct verdict, got %+v", verdict)
	}

	run, err := svc.FinalizeRun(ctx, "dev-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if run.Score != 1 {
		t.Fatalf("expected local score kept despite board failure, got %d", run.Score)
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, time.Now)

	if _, err := svc.SubmitAnswer(ctx, "ghost", 1, []string{"40 metres"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}

	mustStart(t, svc, "dev-1", "SG")
	if _, err := svc.SubmitAnswer(ctx, "dev-1", 99, []string{"40 metres"}); !errors.Is(err, domain.ErrCheckpointNotFound) {
		t.Fatalf("expected checkpoint error, got %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, "dev-1", 1, nil); !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("expected empty selection error, got %v", err)
	}
	if _, err := svc.StartTrail(ctx, "dev-1", "ZZ"); !errors.Is(err, domain.ErrNationNotFound) {
		t.Fatalf("expected nation error, got %v", err)
	}
}

func TestSurveyStored(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, time.Now)

	if err := svc.SubmitSurvey(ctx, domain.SurveyResponse{AgeBracket: "25-34", GenderBracket: "female", Comments: "loved it"}); err != nil {
		t.Fatalf("survey: %v", err)
	}
}

// --- fixtures ---

func newTestService(t *testing.T, now func() time.Time) (*app.TrailService, *countingBoard, *memory.SessionStore) {
	t.Helper()
	sessions := memory.NewSessionStore()
	checkpoints := memory.NewCheckpointRepository(memory.NewStaticCheckpointLoader(testTrail()), 5*time.Minute)
	board := &countingBoard{board: app.NewBoard()}
	svc := app.NewTrailServiceWithClock(sessions, checkpoints, board, memory.NewSurveyStore(), testNations(), now)
	return svc, board, sessions
}

func mustStart(t *testing.T, svc *app.TrailService, deviceID, nation string) {
	t.Helper()
	if _, err := svc.StartTrail(context.Background(), deviceID, nation); err != nil {
		t.Fatalf("start trail: %v", err)
	}
}

func answerAllCorrect(t *testing.T, svc *app.TrailService, deviceID string) {
	t.Helper()
	correct := map[int][]string{
		1: {"40 metres"},
		2: {"Four"},
		3: {"Fig wasp"},
		4: {"Reflecting pond", "Mist bowl", "Stepping cascades"},
	}
	for id := 1; id <= 4; id++ {
		verdict, err := svc.SubmitAnswer(context.Background(), deviceID, id, correct[id])
		if err != nil {
			t.Fatalf("submit %d: %v", id, err)
		}
		if !verdict.Correct {
			t.Fatalf("expected checkpoint %d correct, got %+v", id, verdict)
		}
	}
}

// countingBoard counts increments and can be told to fail, while delegating
// to a real in-process board.
type countingBoard struct {
	board      *app.Board
	increments int
	err        error
}

func (b *countingBoard) Increment(_ context.Context, nation domain.Nation) (domain.Leaderboard, error) {
	if b.err != nil {
		return domain.Leaderboard{}, b.err
	}
	b.increments++
	return b.board.Increment(nation), nil
}

func (b *countingBoard) Snapshot(_ context.Context) (domain.Leaderboard, error) {
	return b.board.Snapshot(), nil
}

func (b *countingBoard) Subscribe(_ context.Context) (<-chan domain.Leaderboard, func(), error) {
	ch, cancel := b.board.Subscribe()
	return ch, cancel, nil
}

func testTrail() []domain.Checkpoint {
	return []domain.Checkpoint{
		{
			ID:       1,
			Question: "How tall is the waterfall?",
			Options:  []string{"20 metres", "40 metres", "60 metres"},
			Answer:   []string{"40 metres"},
		},
		{
			ID:       2,
			Question: "How many terraces climb the valley walls?",
			Options:  []string{"Two", "Three", "Four"},
			Answer:   []string{"Four"},
		},
		{
			ID:       3,
			Question: "Which animal pollinates the fig tree?",
			Options:  []string{"Honeybee", "Fig wasp", "Sunbird"},
			Answer:   []string{"Fig wasp"},
		},
		{
			ID:          4,
			Question:    "Select all three water features on the trail.",
			Options:     []string{"Mist bowl", "Reflecting pond", "Stepping cascades", "Geyser fountain"},
			Answer:      []string{"Mist bowl", "Reflecting pond", "Stepping cascades"},
			MultiSelect: true,
		},
	}
}

func testNations() []domain.Nation {
	return []domain.Nation{
		{Code: "SG", Name: "Singapore", Flag: "🇸🇬"},
		{Code: "JP", Name: "Japan", Flag: "🇯🇵"},
	}
}
