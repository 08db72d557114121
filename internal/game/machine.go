// Package game implements the host-side quiz state machine. Every function mutates the
// state it is given in place and reports whether anything changed; callers decide when
// to publish the result.
package game

import "live-quiz-service/internal/domain"

// CorrectAnswerReward is added to a player's score for each correctly answered question.
const CorrectAnswerReward = 100

// Advance moves the game to its next phase.
//
//	LOBBY           -> QUESTION_ACTIVE
//	QUESTION_ACTIVE -> QUESTION_REVEAL (scores the current question)
//	QUESTION_REVEAL -> QUESTION_ACTIVE (next index, answers cleared) or FINISHED on the last question
//
// A game without questions, or one that has finished, is left untouched.
func Advance(s *domain.GameState) bool {
	if len(s.Questions) == 0 {
		return false
	}

	switch s.Status {
	case domain.StatusLobby:
		s.Status = domain.StatusQuestionActive
		return true
	case domain.StatusQuestionActive:
		score(s)
		s.Status = domain.StatusQuestionReveal
		return true
	case domain.StatusQuestionReveal:
		if s.CurrentQuestionIndex >= len(s.Questions)-1 {
			s.Status = domain.StatusFinished
			return true
		}
		s.CurrentQuestionIndex++
		for _, p := range s.Players {
			p.LastAnswer = ""
		}
		s.Status = domain.StatusQuestionActive
		return true
	default:
		return false
	}
}

// score is only reachable from QUESTION_ACTIVE, so each question is scored once.
func score(s *domain.GameState) {
	q, ok := s.CurrentQuestion()
	if !ok {
		return
	}
	correct := q.CorrectOptionID()
	if correct == "" {
		return
	}
	for _, p := range s.Players {
		if p.LastAnswer == correct {
			p.Score += CorrectAnswerReward
		}
	}
}

// Join registers a player. Rejoining with a known id keeps the existing entry untouched.
func Join(s *domain.GameState, id, name string) bool {
	if id == "" {
		return false
	}
	if s.Players == nil {
		s.Players = make(map[string]*domain.Player)
	}
	if _, ok := s.Players[id]; ok {
		return false
	}
	s.Players[id] = &domain.Player{ID: id, Name: name}
	return true
}

// Answer records a player's answer for the active question. The first answer wins;
// answers from unknown players, for options the question does not have, or outside
// QUESTION_ACTIVE are ignored. An answer given in the lobby would otherwise be scored
// against the first question.
func Answer(s *domain.GameState, playerID, optionID string) bool {
	if s.Status != domain.StatusQuestionActive {
		return false
	}
	q, ok := s.CurrentQuestion()
	if !ok || !q.HasOption(optionID) {
		return false
	}
	p, ok := s.Players[playerID]
	if !ok || p.LastAnswer != "" {
		return false
	}
	p.LastAnswer = optionID
	return true
}

// Redact returns a copy of s in which no question that has not been revealed yet
// carries its correct option.
func Redact(s domain.GameState) domain.GameState {
	out := s.Clone()
	for i := range out.Questions {
		if revealed(s, i) {
			continue
		}
		for j := range out.Questions[i].Options {
			out.Questions[i].Options[j].IsCorrect = false
		}
	}
	return out
}

func revealed(s domain.GameState, index int) bool {
	switch {
	case s.Status == domain.StatusFinished:
		return true
	case index < s.CurrentQuestionIndex:
		return true
	case index == s.CurrentQuestionIndex:
		return s.Status == domain.StatusQuestionReveal
	default:
		return false
	}
}

// Votes counts the answers recorded for the current question, keyed by option id.
// Every option of the question is present in the result.
func Votes(s domain.GameState) map[string]int {
	q, ok := s.CurrentQuestion()
	if !ok {
		return map[string]int{}
	}
	counts := make(map[string]int, len(q.Options))
	for _, opt := range q.Options {
		counts[opt.ID] = 0
	}
	for _, p := range s.Players {
		if _, ok := counts[p.LastAnswer]; ok {
			counts[p.LastAnswer]++
		}
	}
	return counts
}
