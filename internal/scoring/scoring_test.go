package scoring

import (
	"testing"
	"time"

	"github.com/pavelanni/contestor/internal/model"
)

func TestGrade(t *testing.T) {
	problem := model.Problem{
		ID:             1,
		CorrectOptions: []string{"B"},
		Score:          100,
	}
	multi := model.Problem{
		ID:             2,
		CorrectOptions: []string{"A", "C"},
		Score:          50,
	}

	tests := []struct {
		name        string
		problem     model.Problem
		selected    []string
		wantVerdict model.Verdict
		wantScore   int
	}{
		{"correct single", problem, []string{"B"}, model.VerdictAccepted, 100},
		{"wrong single", problem, []string{"A"}, model.VerdictWrongAnswer, 0},
		{"empty selection", problem, nil, model.VerdictWrongAnswer, 0},
		{"extra option", problem, []string{"B", "C"}, model.VerdictWrongAnswer, 0},
		{"multi exact", multi, []string{"A", "C"}, model.VerdictAccepted, 50},
		{"multi order-independent", multi, []string{"C", "A"}, model.VerdictAccepted, 50},
		{"multi subset", multi, []string{"A"}, model.VerdictWrongAnswer, 0},
		{"multi superset", multi, []string{"A", "B", "C"}, model.VerdictWrongAnswer, 0},
		{"multi duplicated option", multi, []string{"A", "A"}, model.VerdictWrongAnswer, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, score := Grade(tt.problem, tt.selected)
			if verdict != tt.wantVerdict || score != tt.wantScore {
				t.Errorf("Grade() = (%v, %d), want (%v, %d)", verdict, score, tt.wantVerdict, tt.wantScore)
			}
			// Grading is pure: a second call must agree.
			verdict2, score2 := Grade(tt.problem, tt.selected)
			if verdict2 != verdict || score2 != score {
				t.Errorf("Grade() not deterministic: (%v, %d) then (%v, %d)", verdict, score, verdict2, score2)
			}
		})
	}
}

func at(sec int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
}

func contestSub(user, problem int64, score, sec int) model.Submission {
	contestID := int64(1)
	verdict := model.VerdictWrongAnswer
	if score > 0 {
		verdict = model.VerdictAccepted
	}
	return model.Submission{
		UserID:      user,
		ProblemID:   problem,
		ContestID:   &contestID,
		Verdict:     verdict,
		Score:       score,
		SubmittedAt: at(sec),
	}
}

func TestStandingsEmpty(t *testing.T) {
	if rows := Standings(nil); len(rows) != 0 {
		t.Fatalf("expected empty standings, got %d rows", len(rows))
	}
}

func TestStandingsTieBreakByTime(t *testing.T) {
	// One problem worth 100. User 1 solves it at t=10; user 2 answers
	// wrong at t=5 and then solves at t=20. Equal totals, earlier peak wins.
	subs := []model.Submission{
		contestSub(1, 7, 100, 10),
		contestSub(2, 7, 0, 5),
		contestSub(2, 7, 100, 20),
	}
	rows := Standings(subs)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].UserID != 1 || rows[0].Rank != 1 || rows[0].TotalScore != 100 {
		t.Errorf("rank 1 = %+v, want user 1 with 100 points", rows[0])
	}
	if !rows[0].LastSubmissionTime.Equal(at(10)) {
		t.Errorf("user 1 anchor = %v, want %v", rows[0].LastSubmissionTime, at(10))
	}
	if rows[1].UserID != 2 || rows[1].Rank != 2 || rows[1].TotalScore != 100 {
		t.Errorf("rank 2 = %+v, want user 2 with 100 points", rows[1])
	}
	if !rows[1].LastSubmissionTime.Equal(at(20)) {
		t.Errorf("user 2 anchor = %v, want %v", rows[1].LastSubmissionTime, at(20))
	}
}

func TestStandingsBestAttemptPerProblem(t *testing.T) {
	// Re-attempts: only the best score counts, anchored at the earliest
	// submission that reached it.
	subs := []model.Submission{
		contestSub(1, 7, 100, 30), // best reached at t=30
		contestSub(1, 7, 100, 50), // same score later, ignored
		contestSub(1, 7, 0, 10),   // worse, ignored
		contestSub(1, 8, 0, 40),   // zero-score problem still anchors time
	}
	rows := Standings(subs)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].TotalScore != 100 {
		t.Errorf("total = %d, want 100", rows[0].TotalScore)
	}
	if !rows[0].LastSubmissionTime.Equal(at(40)) {
		t.Errorf("anchor = %v, want %v", rows[0].LastSubmissionTime, at(40))
	}
}

func TestStandingsOrderingAndRanks(t *testing.T) {
	subs := []model.Submission{
		contestSub(1, 7, 100, 10),
		contestSub(2, 7, 100, 10), // exact tie with user 1, user ID decides
		contestSub(3, 7, 100, 5),
		contestSub(3, 8, 50, 15),
		contestSub(4, 8, 0, 1),
	}
	rows := Standings(subs)
	wantOrder := []int64{3, 1, 2, 4}
	if len(rows) != len(wantOrder) {
		t.Fatalf("expected %d rows, got %d", len(wantOrder), len(rows))
	}
	for i, want := range wantOrder {
		if rows[i].UserID != want {
			t.Errorf("position %d = user %d, want user %d", i, rows[i].UserID, want)
		}
		if rows[i].Rank != i+1 {
			t.Errorf("user %d rank = %d, want %d", rows[i].UserID, rows[i].Rank, i+1)
		}
	}
}

func TestStandingsMonotonicity(t *testing.T) {
	base := []model.Submission{
		contestSub(1, 7, 50, 10),
		contestSub(2, 7, 100, 20),
	}
	before := Standings(base)

	// User 1 improves on a second problem; their total must not decrease
	// and user 2's total is untouched.
	improved := append(base, contestSub(1, 8, 100, 30))
	after := Standings(improved)

	totals := func(rows []model.StandingsRow) map[int64]int {
		m := make(map[int64]int)
		for _, r := range rows {
			m[r.UserID] = r.TotalScore
		}
		return m
	}
	if totals(after)[1] < totals(before)[1] {
		t.Errorf("user 1 total decreased after improvement: %d -> %d", totals(before)[1], totals(after)[1])
	}
	if totals(after)[2] != totals(before)[2] {
		t.Errorf("user 2 total changed: %d -> %d", totals(before)[2], totals(after)[2])
	}
	if after[0].UserID != 1 {
		t.Errorf("expected user 1 to lead after improvement, got user %d", after[0].UserID)
	}
}
