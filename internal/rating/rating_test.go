package rating

import (
	"testing"

	"github.com/pavelanni/contestor/internal/model"
)

func TestKFactor(t *testing.T) {
	tests := []struct {
		rating int
		want   float64
	}{
		{0, 40},
		{1000, 40},
		{1499, 40},
		{1500, 24},
		{1999, 24},
		{2000, 16},
		{2600, 16},
	}
	for _, tt := range tests {
		if got := KFactor(tt.rating); got != tt.want {
			t.Errorf("KFactor(%d) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		rating int
		want   model.Title
	}{
		{0, model.TitleNewbie},
		{1199, model.TitleNewbie},
		{1200, model.TitlePupil},
		{1399, model.TitlePupil},
		{1400, model.TitleSpecialist},
		{1599, model.TitleSpecialist},
		{1600, model.TitleExpert},
		{1899, model.TitleExpert},
		{1900, model.TitleCandidateMaster},
		{2099, model.TitleCandidateMaster},
		{2100, model.TitleMaster},
		{3000, model.TitleMaster},
	}
	for _, tt := range tests {
		if got := TitleFor(tt.rating); got != tt.want {
			t.Errorf("TitleFor(%d) = %v, want %v", tt.rating, got, tt.want)
		}
	}
}

func ranked(userIDs ...int64) []model.StandingsRow {
	rows := make([]model.StandingsRow, len(userIDs))
	for i, id := range userIDs {
		rows[i] = model.StandingsRow{UserID: id, Rank: i + 1}
	}
	return rows
}

func changesByUser(changes []model.RatingChange) map[int64]model.RatingChange {
	m := make(map[int64]model.RatingChange, len(changes))
	for _, ch := range changes {
		m[ch.UserID] = ch
	}
	return m
}

func TestChangesTwoPlayerSymmetry(t *testing.T) {
	// Equal ratings: the winner's delta mirrors the loser's exactly.
	changes := Changes(ranked(1, 2), map[int64]int{1: 1000, 2: 1000})
	byUser := changesByUser(changes)

	if byUser[1].Delta != -byUser[2].Delta {
		t.Errorf("deltas not symmetric: winner %+d, loser %+d", byUser[1].Delta, byUser[2].Delta)
	}
	if byUser[1].Delta <= 0 {
		t.Errorf("winner delta = %+d, want positive", byUser[1].Delta)
	}
	// Expected score for each is 0.5; actual is 1 and 0; K=40.
	if byUser[1].Delta != 20 {
		t.Errorf("winner delta = %+d, want +20", byUser[1].Delta)
	}
}

func TestChangesThreeEqualParticipants(t *testing.T) {
	// Three participants at 1000, ranks 1..3: expected = 1.0 each,
	// actual = [2, 1, 0], K = 40 -> deltas [+40, 0, -40].
	changes := Changes(ranked(1, 2, 3), map[int64]int{1: 1000, 2: 1000, 3: 1000})
	byUser := changesByUser(changes)

	want := map[int64]int{1: 1040, 2: 1000, 3: 960}
	for userID, wantRating := range want {
		if byUser[userID].NewRating != wantRating {
			t.Errorf("user %d new rating = %d, want %d", userID, byUser[userID].NewRating, wantRating)
		}
	}
	if byUser[1].OldRating != 1000 || byUser[1].Delta != 40 {
		t.Errorf("winner change = %+v, want old 1000, delta +40", byUser[1])
	}
}

func TestChangesFavoriteBeatsUnderdog(t *testing.T) {
	// A much stronger player winning gains little; losing costs a lot.
	win := changesByUser(Changes(ranked(1, 2), map[int64]int{1: 2000, 2: 1000}))
	lose := changesByUser(Changes(ranked(2, 1), map[int64]int{1: 2000, 2: 1000}))

	if win[1].Delta < 0 || win[1].Delta > 2 {
		t.Errorf("favorite win delta = %+d, want tiny non-negative", win[1].Delta)
	}
	if lose[1].Delta >= 0 {
		t.Errorf("favorite loss delta = %+d, want negative", lose[1].Delta)
	}
	if lose[2].Delta <= 0 {
		t.Errorf("underdog win delta = %+d, want positive", lose[2].Delta)
	}
}

func TestChangesAssignTitles(t *testing.T) {
	changes := Changes(ranked(1, 2), map[int64]int{1: 1190, 2: 1210})
	byUser := changesByUser(changes)

	// Winner at 1190 gains ~20 and crosses into pupil.
	if byUser[1].NewTitle != model.TitlePupil {
		t.Errorf("winner title = %v (rating %d), want pupil", byUser[1].NewTitle, byUser[1].NewRating)
	}
	// Loser at 1210 drops back below 1200.
	if byUser[2].NewTitle != model.TitleNewbie {
		t.Errorf("loser title = %v (rating %d), want newbie", byUser[2].NewTitle, byUser[2].NewRating)
	}
}
