package domain

// GameStatus is the phase of a game. Phases are only ever entered in declaration order.
type GameStatus string

const (
	StatusLobby          GameStatus = "LOBBY"
	StatusQuestionActive GameStatus = "QUESTION_ACTIVE"
	StatusQuestionReveal GameStatus = "QUESTION_REVEAL"
	StatusFinished       GameStatus = "FINISHED"
)

// MediaType describes what MediaURL points at.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// QuizOption is one selectable answer. IsCorrect is only meaningful on the host's copy
// when answers are redacted for players.
type QuizOption struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect,omitempty" yaml:"correct,omitempty"`
}

// Question models a multiple choice question with (normally) exactly one correct option.
type Question struct {
	ID           string       `json:"id" yaml:"id"`
	Text         string       `json:"text" yaml:"text"`
	Options      []QuizOption `json:"options" yaml:"options"`
	Explanation  string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	MediaURL     string       `json:"mediaUrl,omitempty" yaml:"media_url,omitempty"`
	MediaType    MediaType    `json:"mediaType,omitempty" yaml:"media_type,omitempty"`
	WebsiteURL   string       `json:"websiteUrl,omitempty" yaml:"website_url,omitempty"`
	WebsiteLabel string       `json:"websiteLabel,omitempty" yaml:"website_label,omitempty"`
}

// CorrectOptionID returns the id of the first option flagged correct, or "" if none is.
func (q Question) CorrectOptionID() string {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.ID
		}
	}
	return ""
}

// HasOption reports whether optionID belongs to this question.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Player is a participant and their accumulated score. An empty LastAnswer means the
// player has not answered the current question.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	LastAnswer string `json:"lastAnswer,omitempty"`
}

// GameState is the canonical state owned by a host and replicated to players.
type GameState struct {
	Status               GameStatus         `json:"status"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	Questions            []Question         `json:"questions"`
	Players              map[string]*Player `json:"players"`
	JoinCode             string             `json:"joinCode"`
}

// NewGameState returns a lobby for the given questions.
func NewGameState(joinCode string, questions []Question) GameState {
	return GameState{
		Status:    StatusLobby,
		Questions: questions,
		Players:   make(map[string]*Player),
		JoinCode:  joinCode,
	}
}

// CurrentQuestion returns the question at CurrentQuestionIndex.
func (s GameState) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

// Clone returns a deep copy so snapshots never alias the canonical state.
func (s GameState) Clone() GameState {
	out := s
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			q.Options = append([]QuizOption(nil), q.Options...)
			out.Questions[i] = q
		}
	}
	out.Players = make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		if p == nil {
			continue
		}
		cp := *p
		out.Players[id] = &cp
	}
	return out
}

// LinkedPair asks the shuffle to place Then immediately after First.
type LinkedPair struct {
	First string `json:"first" yaml:"first"`
	Then  string `json:"then" yaml:"then"`
}

// Ordering designates the questions whose position survives a shuffle.
// The first question of a quiz is always kept first.
type Ordering struct {
	Last  string       `json:"last,omitempty" yaml:"last,omitempty"`
	Pairs []LinkedPair `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}

// Quiz is a collection of questions produced by a quiz source.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`
	Questions []Question `json:"questions" yaml:"questions"`
	Ordering  Ordering   `json:"ordering,omitempty" yaml:"ordering,omitempty"`
}
