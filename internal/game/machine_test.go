package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

func twoQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:   "q1",
			Text: "Who made this?",
			Options: []domain.QuizOption{
				{ID: "q1_opt1", Text: "Human"},
				{ID: "q1_opt2", Text: "AI", IsCorrect: true},
			},
		},
		{
			ID:   "q2",
			Text: "And this?",
			Options: []domain.QuizOption{
				{ID: "q2_opt1", Text: "Human", IsCorrect: true},
				{ID: "q2_opt2", Text: "AI"},
			},
		},
	}
}

func TestTwoPlayerScenario(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	require.True(t, Join(&s, "P1", "Kalgi"))
	require.True(t, Join(&s, "P2", "Nikhil"))

	require.True(t, Advance(&s))
	assert.Equal(t, domain.StatusQuestionActive, s.Status)

	require.True(t, Answer(&s, "P1", "q1_opt2"))
	require.True(t, Answer(&s, "P2", "q1_opt1"))

	require.True(t, Advance(&s))
	assert.Equal(t, domain.StatusQuestionReveal, s.Status)
	assert.Equal(t, 100, s.Players["P1"].Score)
	assert.Equal(t, 0, s.Players["P2"].Score)

	require.True(t, Advance(&s))
	assert.Equal(t, domain.StatusQuestionActive, s.Status)
	assert.Equal(t, 1, s.CurrentQuestionIndex)
	assert.Empty(t, s.Players["P1"].LastAnswer)
	assert.Empty(t, s.Players["P2"].LastAnswer)
}

func TestAdvanceTransitions(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.GameStatus
		index      int
		wantStatus domain.GameStatus
		wantIndex  int
		wantChange bool
	}{
		{name: "lobby starts first question", status: domain.StatusLobby, wantStatus: domain.StatusQuestionActive},
		{name: "active reveals without moving", status: domain.StatusQuestionActive, index: 1, wantStatus: domain.StatusQuestionReveal, wantIndex: 1},
		{name: "reveal moves to next question", status: domain.StatusQuestionReveal, index: 0, wantStatus: domain.StatusQuestionActive, wantIndex: 1},
		{name: "reveal of last question finishes", status: domain.StatusQuestionReveal, index: 1, wantStatus: domain.StatusFinished, wantIndex: 1},
		{name: "finished stays finished", status: domain.StatusFinished, index: 1, wantStatus: domain.StatusFinished, wantIndex: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.NewGameState("CODE", twoQuestions())
			s.Status = tt.status
			s.CurrentQuestionIndex = tt.index

			changed := Advance(&s)
			assert.Equal(t, tt.status != domain.StatusFinished, changed)
			assert.Equal(t, tt.wantStatus, s.Status)
			assert.Equal(t, tt.wantIndex, s.CurrentQuestionIndex)
		})
	}
}

func TestAdvanceWithoutQuestionsIsNoop(t *testing.T) {
	s := domain.NewGameState("CODE", nil)
	assert.False(t, Advance(&s))
	assert.Equal(t, domain.StatusLobby, s.Status)
}

func TestFinishKeepsScores(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	Join(&s, "P1", "Ana")
	s.Status = domain.StatusQuestionReveal
	s.CurrentQuestionIndex = 1
	s.Players["P1"].Score = 300
	s.Players["P1"].LastAnswer = "q2_opt1"

	before := s.Clone()
	require.True(t, Advance(&s))

	assert.Equal(t, domain.StatusFinished, s.Status)
	if diff := cmp.Diff(before.Players, s.Players); diff != "" {
		t.Errorf("players changed on finish (-before +after):\n%s", diff)
	}
}

func TestScoringHappensOncePerQuestion(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	Join(&s, "P1", "Ana")
	Advance(&s)
	Answer(&s, "P1", "q1_opt2")

	Advance(&s)
	require.Equal(t, 100, s.Players["P1"].Score)

	// Leaving the reveal moves on to the next question instead of scoring again.
	Advance(&s)
	assert.Equal(t, 100, s.Players["P1"].Score)
	Advance(&s)
	assert.Equal(t, domain.StatusQuestionReveal, s.Status)
	assert.Equal(t, 100, s.Players["P1"].Score)
}

func TestAnswerIsWriteOnce(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	Join(&s, "P1", "Ana")
	Advance(&s)

	answers := []string{"q1_opt1", "q1_opt2", "q1_opt1", "q1_opt2"}
	for i, a := range answers {
		assert.Equal(t, i == 0, Answer(&s, "P1", a), "answer %d", i)
	}
	assert.Equal(t, "q1_opt1", s.Players["P1"].LastAnswer)
}

func TestAnswerGuards(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	Join(&s, "P1", "Ana")

	assert.False(t, Answer(&s, "P1", "q1_opt2"), "lobby answers are ignored")

	Advance(&s)
	assert.False(t, Answer(&s, "ghost", "q1_opt2"), "unknown players are ignored")
	assert.False(t, Answer(&s, "P1", ""), "empty option is ignored")
	assert.False(t, Answer(&s, "P1", "q2_opt1"), "options of other questions are ignored")
	assert.False(t, Answer(&s, "P1", "nope"), "unknown options are ignored")
	assert.Empty(t, s.Players["P1"].LastAnswer)

	Advance(&s)
	assert.False(t, Answer(&s, "P1", "q1_opt2"), "reveal answers are ignored")
}

func TestJoinIsIdempotent(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	require.True(t, Join(&s, "P1", "Ana"))
	s.Players["P1"].Score = 200

	assert.False(t, Join(&s, "P1", "Someone Else"))
	assert.Equal(t, domain.Player{ID: "P1", Name: "Ana", Score: 200}, *s.Players["P1"])
	assert.False(t, Join(&s, "", "nobody"))
}

func TestRedactHidesUnrevealedAnswers(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	Advance(&s)

	active := Redact(s)
	assert.Empty(t, active.Questions[0].CorrectOptionID())
	assert.Empty(t, active.Questions[1].CorrectOptionID())
	assert.Equal(t, "q1_opt2", s.Questions[0].CorrectOptionID(), "canonical copy keeps answers")

	Advance(&s)
	reveal := Redact(s)
	assert.Equal(t, "q1_opt2", reveal.Questions[0].CorrectOptionID())
	assert.Empty(t, reveal.Questions[1].CorrectOptionID())

	s.Status = domain.StatusFinished
	finished := Redact(s)
	assert.Equal(t, "q2_opt1", finished.Questions[1].CorrectOptionID())
}

func TestVotes(t *testing.T) {
	s := domain.NewGameState("CODE", twoQuestions())
	Join(&s, "P1", "Ana")
	Join(&s, "P2", "Bo")
	Join(&s, "P3", "Cy")
	Advance(&s)
	Answer(&s, "P1", "q1_opt2")
	Answer(&s, "P2", "q1_opt2")

	assert.Equal(t, map[string]int{"q1_opt1": 0, "q1_opt2": 2}, Votes(s))
}
