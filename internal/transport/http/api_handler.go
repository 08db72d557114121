package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/game"
	"live-quiz-service/internal/route"
)

const qrSize = 256

// APIHandler exposes the operator controls of a game: create, advance, reset, and the
// loopback player used to test a game without a second device.
type APIHandler struct {
	games     *app.GameService
	publicURL string
}

func NewAPIHandler(games *app.GameService, publicURL string) *APIHandler {
	return &APIHandler{games: games, publicURL: publicURL}
}

type createRequest struct {
	Code string `json:"code"`
}

type gameResponse struct {
	Code     string           `json:"code"`
	JoinLink string           `json:"joinLink"`
	Peers    int              `json:"peers"`
	State    domain.GameState `json:"state"`
}

type advanceResponse struct {
	Advanced bool             `json:"advanced"`
	State    domain.GameState `json:"state"`
}

type simulateJoinRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type simulateAnswerRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	OptionID string `json:"optionId" binding:"required"`
}

func (h *APIHandler) Create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	host, err := h.games.Create(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeGame(c, http.StatusCreated, host)
}

func (h *APIHandler) Get(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	h.writeGame(c, http.StatusOK, host)
}

func (h *APIHandler) Advance(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	advanced, err := host.Advance(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	state, err := host.Snapshot(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if !advanced && len(state.Questions) == 0 {
		writeError(c, domain.ErrNoQuestions)
		return
	}
	c.JSON(http.StatusOK, advanceResponse{Advanced: advanced, State: state})
}

func (h *APIHandler) Reset(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	if err := host.Reset(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrHostClosed) {
			writeError(c, err)
			return
		}
		// the lobby was reset but could not be refilled
		log.Error().Err(err).Str("game", host.Code()).Msg("reset without questions")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) SimulateJoin(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	var req simulateJoinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.ID == "" {
		req.ID = "sim_" + uuid.NewString()[:5]
	}
	if req.Name == "" {
		req.Name = "Test Player"
	}
	if err := host.Join(c.Request.Context(), req.ID, req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.ID, "name": req.Name})
}

func (h *APIHandler) SimulateAnswer(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	var req simulateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := host.Answer(c.Request.Context(), req.PlayerID, req.OptionID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Votes returns the answer count per option of the current question.
func (h *APIHandler) Votes(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	state, err := host.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   state.Status,
		"question": state.CurrentQuestionIndex,
		"votes":    game.Votes(state),
	})
}

// QR renders the join link of a game as a PNG.
func (h *APIHandler) QR(c *gin.Context) {
	host, ok := h.host(c)
	if !ok {
		return
	}
	png, err := qrcode.Encode(h.joinLink(c, host.Code()), qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *APIHandler) host(c *gin.Context) (*app.Host, bool) {
	host, err := h.games.Get(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return host, true
}

func (h *APIHandler) writeGame(c *gin.Context, status int, host *app.Host) {
	ctx := c.Request.Context()
	state, err := host.Snapshot(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	peers, err := host.PeerCount(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, gameResponse{
		Code:     host.Code(),
		JoinLink: h.joinLink(c, host.Code()),
		Peers:    peers,
		State:    state,
	})
}

// joinLink prefers the configured public URL and falls back to the address the request came in on.
func (h *APIHandler) joinLink(c *gin.Context, code string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return route.JoinLink(base, code)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrHostClosed):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCodeTaken), errors.Is(err, domain.ErrNoQuestions):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
