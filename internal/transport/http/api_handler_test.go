package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

func doJSON(t *testing.T, server *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateAndFetchGame(t *testing.T) {
	_, server := newTestServer(t, RouterOptions{PublicURL: "https://quiz.example.com"})

	resp := doJSON(t, server, http.MethodPost, "/api/games", map[string]string{"code": "PARTY"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[gameResponse](t, resp)
	assert.Equal(t, "PARTY", created.Code)
	assert.Equal(t, "https://quiz.example.com/#join=PARTY", created.JoinLink)
	assert.Equal(t, domain.StatusLobby, created.State.Status)

	resp = doJSON(t, server, http.MethodPost, "/api/games", map[string]string{"code": "PARTY"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, server, http.MethodGet, "/api/games/PARTY", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[gameResponse](t, resp)
	assert.Len(t, got.State.Questions, 2)
	assert.Zero(t, got.Peers)

	resp = doJSON(t, server, http.MethodGet, "/api/games/MISSING", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOperatorPlaysAGameWithASimulatedPlayer(t *testing.T) {
	_, server := newTestServer(t, RouterOptions{})

	resp := doJSON(t, server, http.MethodPost, "/api/games", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code := decode[gameResponse](t, resp).Code
	base := "/api/games/" + code

	resp = doJSON(t, server, http.MethodPost, base+"/simulate/join", map[string]string{"name": "Bot"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sim := decode[map[string]string](t, resp)
	assert.Regexp(t, `^sim_`, sim["id"])

	resp = doJSON(t, server, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adv := decode[advanceResponse](t, resp)
	assert.True(t, adv.Advanced)
	assert.Equal(t, domain.StatusQuestionActive, adv.State.Status)

	resp = doJSON(t, server, http.MethodPost, base+"/simulate/answer", map[string]string{"playerId": sim["id"], "optionId": "o2"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = doJSON(t, server, http.MethodGet, base+"/votes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	votes := decode[struct {
		Votes map[string]int `json:"votes"`
	}](t, resp)
	assert.Equal(t, map[string]int{"o1": 0, "o2": 1, "o3": 0}, votes.Votes)

	resp = doJSON(t, server, http.MethodPost, base+"/advance", nil)
	adv = decode[advanceResponse](t, resp)
	assert.Equal(t, domain.StatusQuestionReveal, adv.State.Status)
	assert.Equal(t, 100, adv.State.Players[sim["id"]].Score)

	resp = doJSON(t, server, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, server, http.MethodGet, base, nil)
	state := decode[gameResponse](t, resp).State
	assert.Equal(t, domain.StatusLobby, state.Status)
	assert.Empty(t, state.Players)
}

func TestAdvancePastTheEndIsANoOp(t *testing.T) {
	service, server := newTestServer(t, RouterOptions{})
	host, err := service.Create(context.Background(), "")
	require.NoError(t, err)
	path := "/api/games/" + host.Code() + "/advance"

	var last advanceResponse
	for i := 0; i < 6; i++ {
		resp := doJSON(t, server, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		last = decode[advanceResponse](t, resp)
	}
	assert.False(t, last.Advanced)
	assert.Equal(t, domain.StatusFinished, last.State.Status)
}

func TestSimulateAnswerValidatesBody(t *testing.T) {
	service, server := newTestServer(t, RouterOptions{})
	host, err := service.Create(context.Background(), "")
	require.NoError(t, err)

	resp := doJSON(t, server, http.MethodPost, "/api/games/"+host.Code()+"/simulate/answer", map[string]string{"playerId": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQRCodeEncodesJoinLink(t *testing.T) {
	service, server := newTestServer(t, RouterOptions{})
	host, err := service.Create(context.Background(), "")
	require.NoError(t, err)

	resp := doJSON(t, server, http.MethodGet, "/api/games/"+host.Code()+"/qr.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestHealthz(t *testing.T) {
	_, server := newTestServer(t, RouterOptions{})
	resp := doJSON(t, server, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
