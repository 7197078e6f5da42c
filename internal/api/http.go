package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victornm/jackpot/internal/errors"
	"github.com/victornm/jackpot/internal/session"
	"github.com/victornm/jackpot/internal/webhook"
)

const (
	msgInvalidRequest = "Invalid request parameters"
	msgInternalError  = "Internal server error"
	msgWebhookOK      = "Webhook processed successfully"
	msgWebhookFailed  = "Failed to process webhook"
)

func (a *API) registerRoutes(r gin.IRouter) {
	api := r.Group("/api")

	api.POST("/leaderboard", a.submitScore)
	api.GET("/leaderboard", a.listLeaderboard)

	game := api.Group("/game")
	game.GET("/table", a.getTable)
	game.POST("/draw", a.draw)
	game.POST("/sessions", a.createSession)
	game.GET("/sessions/:id", a.getSession)
	game.POST("/sessions/:id/spin", a.spin)
	game.POST("/spin", a.recordSpin)
	game.GET("/spin", a.listSpins)

	api.POST("/webhook", a.handleWebhook)
	api.GET("/webhook", a.webhookHealth)
}

func (a *API) submitScore(c *gin.Context) {
	var req SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.InvalidRequest("decode request: %v", err))
		return
	}

	resp, err := a.SubmitScore(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) listLeaderboard(c *gin.Context) {
	req := ListLeaderboardRequest{Mode: c.Query("mode")}
	// A limit that is not a number falls back to the default.
	req.Limit, _ = strconv.Atoi(c.Query("limit"))

	resp, err := a.ListLeaderboard(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) getTable(c *gin.Context) {
	c.JSON(http.StatusOK, toPayoutTable(a.gen.Stats()))
}

func (a *API) draw(c *gin.Context) {
	var req PlayRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	o, err := a.Draw(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (a *API) createSession(c *gin.Context) {
	var req PlayRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ss, err := a.ss.CreateSession(c.Request.Context(), session.CreateSessionRequest{
		PlayerID: req.FID,
		Mode:     req.Mode,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSession(ss))
}

func (a *API) getSession(c *gin.Context) {
	ss, err := a.ss.GetSession(c.Request.Context(), session.GetSessionRequest{SessionID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(ss))
}

func (a *API) spin(c *gin.Context) {
	resp, err := a.ss.Spin(c.Request.Context(), session.SpinRequest{SessionID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSpinResponse(resp))
}

func (a *API) recordSpin(c *gin.Context) {
	var req RecordSpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.InvalidRequest("decode request: %v", err))
		return
	}

	resp, err := a.ss.RecordSpin(c.Request.Context(), session.RecordSpinRequest{
		PlayerID: req.FID,
		Mode:     req.Mode,
		Score:    *req.Score,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecordSpinResponse{
		Success:    true,
		Score:      resp.Score,
		TotalGames: resp.TotalGames,
	})
}

func (a *API) listSpins(c *gin.Context) {
	fid, err := strconv.ParseInt(c.Query("fid"), 10, 64)
	if err != nil || fid <= 0 {
		writeError(c, errors.InvalidRequest("invalid fid: %q", c.Query("fid")))
		return
	}

	spins, err := a.ss.ListSpins(c.Request.Context(), session.ListSpinsRequest{PlayerID: fid})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]SpinRecord, 0, len(spins))
	for _, s := range spins {
		resp = append(resp, SpinRecord{Score: s.Score, Timestamp: s.Time.UnixMilli()})
	}

	c.JSON(http.StatusOK, gin.H{"fid": fid, "spins": resp})
}

func (a *API) handleWebhook(c *gin.Context) {
	req, err := decodeWebhookEvent(c)
	if err == nil {
		err = a.ws.Handle(c.Request.Context(), req)
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "api: process webhook failed", "error", err)
		c.JSON(http.StatusInternalServerError, WebhookResponse{Error: msgWebhookFailed})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Success: true, Message: msgWebhookOK})
}

func (a *API) webhookHealth(c *gin.Context) {
	c.JSON(http.StatusOK, a.ws.Health())
}

// decodeWebhookEvent accepts any JSON body. Fields of an unexpected type are dropped, so the event is handled
// as unknown rather than failing.
func decodeWebhookEvent(c *gin.Context) (webhook.Event, error) {
	b, err := c.GetRawData()
	if err != nil {
		return webhook.Event{}, fmt.Errorf("read body: %w", err)
	}

	var body any
	if err := json.Unmarshal(b, &body); err != nil {
		return webhook.Event{}, fmt.Errorf("decode body: %w", err)
	}

	var e webhook.Event
	m, ok := body.(map[string]any)
	if !ok {
		return e, nil
	}

	e.Event, _ = m["event"].(string)

	switch fid := m["fid"].(type) {
	case float64:
		if fid == math.Trunc(fid) && fid >= -0x1p63 && fid < 0x1p63 {
			e.FID = int64(fid)
		}
	case string:
		e.FID, _ = strconv.ParseInt(strings.TrimSpace(fid), 10, 64)
	}

	return e, nil
}

// bindOptionalJSON decodes the body when there is one. It writes the error response and returns false on failure.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !stderrors.Is(err, io.EOF) {
		writeError(c, errors.InvalidRequest("decode request: %v", err))
		return false
	}
	return true
}

// writeError hides internal details from clients, they are only logged.
func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)
	status := e.HTTPStatusCode()

	switch {
	case status == http.StatusBadRequest:
		slog.InfoContext(c.Request.Context(), "api: invalid request", "path", c.FullPath(), "error", err)
		c.JSON(status, ErrorResponse{Error: msgInvalidRequest})
	case status >= http.StatusInternalServerError:
		slog.ErrorContext(c.Request.Context(), "api: request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, ErrorResponse{Error: msgInternalError})
	default:
		c.JSON(status, ErrorResponse{Error: e.Message})
	}
}
