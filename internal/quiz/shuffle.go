// Package quiz produces the question decks a game is played with.
package quiz

import (
	"math/rand"

	"live-quiz-service/internal/domain"
)

// Shuffle returns a new ordering of questions. The first question keeps its place, the
// question designated ordering.Last moves to the end, everything between is permuted with
// a Fisher-Yates shuffle, and for every linked pair the Then question is moved to
// immediately follow the First question. The input slice is not modified.
func Shuffle(questions []domain.Question, ordering domain.Ordering, rnd *rand.Rand) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	if len(out) <= 1 {
		return out
	}

	first := out[0]
	middle := append([]domain.Question(nil), out[1:]...)

	var last *domain.Question
	if ordering.Last != "" && ordering.Last != first.ID {
		if i := indexOf(middle, ordering.Last); i >= 0 {
			q := middle[i]
			last = &q
			middle = append(middle[:i], middle[i+1:]...)
		}
	}

	for i := len(middle) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		middle[i], middle[j] = middle[j], middle[i]
	}

	for _, pair := range ordering.Pairs {
		middle = link(middle, pair)
	}

	out = out[:0]
	out = append(out, first)
	out = append(out, middle...)
	if last != nil {
		out = append(out, *last)
	}
	return out
}

// link moves pair.Then directly behind pair.First when both are present.
func link(questions []domain.Question, pair domain.LinkedPair) []domain.Question {
	if pair.First == pair.Then {
		return questions
	}
	ti := indexOf(questions, pair.Then)
	if ti < 0 || indexOf(questions, pair.First) < 0 {
		return questions
	}
	then := questions[ti]
	questions = append(questions[:ti], questions[ti+1:]...)
	fi := indexOf(questions, pair.First)
	questions = append(questions[:fi+1], append([]domain.Question{then}, questions[fi+1:]...)...)
	return questions
}

func indexOf(questions []domain.Question, id string) int {
	for i := range questions {
		if questions[i].ID == id {
			return i
		}
	}
	return -1
}
