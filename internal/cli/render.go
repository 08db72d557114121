package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
)

var optionLabels = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

func label(i int) string {
	if i < len(optionLabels) {
		return optionLabels[i]
	}
	return fmt.Sprint(i + 1)
}

// leaderboard orders players by score, highest first, then by name.
func leaderboard(s domain.GameState) []domain.Player {
	out := make([]domain.Player, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func renderHost(w io.Writer, s domain.GameState) {
	fmt.Fprintf(w, "\n[%s] %s  players: %d\n", s.JoinCode, s.Status, len(s.Players))
	switch s.Status {
	case domain.StatusLobby:
		for _, p := range leaderboard(s) {
			fmt.Fprintf(w, "  - %s\n", p.Name)
		}
	case domain.StatusQuestionActive, domain.StatusQuestionReveal:
		q, _ := s.CurrentQuestion()
		fmt.Fprintf(w, "Question %d/%d: %s\n", s.CurrentQuestionIndex+1, len(s.Questions), q.Text)
		votes := game.Votes(s)
		for i, opt := range q.Options {
			mark := " "
			if s.Status == domain.StatusQuestionReveal && opt.IsCorrect {
				mark = "*"
			}
			fmt.Fprintf(w, " %s %s) %-40s %d\n", mark, label(i), opt.Text, votes[opt.ID])
		}
		if s.Status == domain.StatusQuestionReveal && q.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", q.Explanation)
		}
	case domain.StatusFinished:
		renderLeaderboard(w, s)
	}
}

func renderPlayer(w io.Writer, s domain.GameState, me string, submitted bool) {
	player, joined := s.Players[me]
	switch s.Status {
	case domain.StatusLobby:
		if joined {
			fmt.Fprintf(w, "\nYou're in as %s. Waiting for the host to start...\n", player.Name)
		} else {
			fmt.Fprintln(w, "\nWaiting to join...")
		}
	case domain.StatusQuestionActive:
		q, _ := s.CurrentQuestion()
		fmt.Fprintf(w, "\nQuestion %d/%d: %s\n", s.CurrentQuestionIndex+1, len(s.Questions), q.Text)
		if q.MediaURL != "" {
			fmt.Fprintf(w, "  (%s: %s)\n", q.MediaType, q.MediaURL)
		}
		answered := submitted || (joined && player.LastAnswer != "")
		for i, opt := range q.Options {
			fmt.Fprintf(w, "  %s) %s\n", label(i), opt.Text)
		}
		if answered {
			fmt.Fprintln(w, "Answer sent. Waiting for the reveal...")
		} else {
			fmt.Fprintf(w, "Type %s-%s to answer.\n", label(0), label(len(q.Options)-1))
		}
	case domain.StatusQuestionReveal:
		q, _ := s.CurrentQuestion()
		correct := q.CorrectOptionID()
		switch {
		case !joined || player.LastAnswer == "":
			fmt.Fprintln(w, "\nTime's up!")
		case player.LastAnswer == correct:
			fmt.Fprintln(w, "\nCorrect!")
		default:
			fmt.Fprintln(w, "\nNot quite.")
		}
		for _, opt := range q.Options {
			if opt.ID == correct {
				fmt.Fprintf(w, "Answer: %s\n", opt.Text)
			}
		}
		if q.Explanation != "" {
			fmt.Fprintln(w, q.Explanation)
		}
		if q.WebsiteURL != "" {
			fmt.Fprintf(w, "%s: %s\n", firstNonEmpty(q.WebsiteLabel, "Learn more"), q.WebsiteURL)
		}
		if joined {
			fmt.Fprintf(w, "Your score: %d\n", player.Score)
		}
	case domain.StatusFinished:
		renderLeaderboard(w, s)
	}
}

func renderLeaderboard(w io.Writer, s domain.GameState) {
	fmt.Fprintln(w, "\nFinal leaderboard")
	fmt.Fprintln(w, strings.Repeat("-", 24))
	for i, p := range leaderboard(s) {
		fmt.Fprintf(w, "%2d. %-14s %5d\n", i+1, p.Name, p.Score)
	}
}

// optionFor maps a typed answer ("b", "2") to an option id of q.
func optionFor(q domain.Question, input string) (string, bool) {
	input = strings.ToUpper(strings.TrimSpace(input))
	for i, opt := range q.Options {
		if input == label(i) || input == fmt.Sprint(i+1) {
			return opt.ID, true
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
