package domain

import "time"

// Nation identifies a team on the shared leaderboard.
type Nation struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// CheckpointAnswer is the recorded outcome of a single checkpoint submission.
// Once present, the checkpoint is settled: re-visits replay this verdict.
type CheckpointAnswer struct {
	Selected []string `json:"selected"`
	Correct  bool     `json:"correct"`
}

// TrailSession is the per-device record of one visitor's trail run.
// It survives reloads; StartTrail resets everything except the daily-win lock.
type TrailSession struct {
	DeviceID  string                   `json:"deviceId"`
	Nation    Nation                   `json:"nation"`
	Score     int                      `json:"score"`
	Answers   map[int]CheckpointAnswer `json:"answers"`
	Scored    map[int]bool             `json:"scored"`
	StartedAt time.Time                `json:"startedAt"`

	// Daily-win lock. LastWinDate is a device-local calendar day (2006-01-02);
	// TicketID is reused verbatim for every results view on that day.
	LastWinDate string `json:"lastWinDate,omitempty"`
	TicketID    string `json:"ticketId,omitempty"`
}

// Story is the narrative page shown after a checkpoint's quiz.
type Story struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Fact  string `json:"fact"`
	Image string `json:"image"`
}

// Checkpoint is one numbered stop on the trail: a quiz question plus its story.
// Answer holds the accepted option(s): for single-select any member matches,
// for multi-select the visitor's selection must equal the whole set.
type Checkpoint struct {
	ID          int      `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      []string `json:"answer"`
	MultiSelect bool     `json:"multiSelect"`
	Location    string   `json:"location"`
	Story       Story    `json:"story"`
}

// Verdict reports the settled state of a checkpoint for one device.
// Answered is false when the checkpoint has not been submitted yet.
type Verdict struct {
	CheckpointID  int      `json:"checkpointId"`
	Answered      bool     `json:"answered"`
	Selected      []string `json:"selected,omitempty"`
	Correct       bool     `json:"correct"`
	CorrectAnswer []string `json:"correctAnswer,omitempty"`
}

// NationAggregate is the shared per-nation counter behind the leaderboard.
// It is only ever mutated by increment-by-one operations.
type NationAggregate struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Flag  string `json:"flag"`
	Score int    `json:"score"`
}

// LeaderboardEntry is a snapshot-friendly view of a nation aggregate.
type LeaderboardEntry struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Flag  string `json:"flag"`
	Score int    `json:"score"`
}

// Leaderboard captures the score-descending ordered board.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RunResult summarizes a finished trail for the results view.
type RunResult struct {
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Perfect  bool   `json:"perfect"`
	TicketID string `json:"ticketId,omitempty"`
}

// SurveyResponse is one best-effort feedback record from the results screen.
type SurveyResponse struct {
	AgeBracket    string    `json:"ageBracket"`
	GenderBracket string    `json:"genderBracket"`
	Comments      string    `json:"comments"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
