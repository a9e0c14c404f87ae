package webhook

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hexvault/warden/internal/db"
	"github.com/hexvault/warden/internal/moderation"
	"github.com/hexvault/warden/internal/platform"
)

// ModerationAPI exposes the sanction lifecycle over HTTP for operator
// tooling: issue and lift bans and mutes, drive the approval workflow,
// manage the infraction ledger.
type ModerationAPI struct {
	bans        *moderation.BanService
	mutes       *moderation.MuteService
	infractions *moderation.InfractionService
}

func NewModerationAPI(
	bans *moderation.BanService,
	mutes *moderation.MuteService,
	infractions *moderation.InfractionService,
) *ModerationAPI {
	return &ModerationAPI{bans: bans, mutes: mutes, infractions: infractions}
}

// RegisterRoutes mounts the API under the given (already authenticated)
// group.
func (a *ModerationAPI) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bans", a.createBan)
	rg.POST("/bans/:id/approve", a.approveBan)
	rg.POST("/bans/:id/deny", a.denyBan)
	rg.POST("/bans/:id/dispute", a.disputeBan)
	rg.DELETE("/bans/user/:userID", a.unban)

	rg.POST("/mutes", a.createMute)
	rg.DELETE("/mutes/user/:userID", a.unmute)

	rg.POST("/infractions", a.createInfraction)
	rg.DELETE("/infractions/:id", a.deleteInfraction)
	rg.GET("/users/:userID/history", a.history)
	rg.POST("/notes", a.createNote)
}

type banPayload struct {
	UserID        int64  `json:"user_id" binding:"required"`
	Duration      string `json:"duration" binding:"required"`
	Reason        string `json:"reason"`
	Evidence      string `json:"evidence"`
	AuthorID      int64  `json:"author_id"`
	AuthorName    string `json:"author_name"`
	NeedsApproval bool   `json:"needs_approval"`
}

func (a *ModerationAPI) createBan(c *gin.Context) {
	payload := banPayload{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := a.bans.Ban(c.Request.Context(), moderation.BanRequest{
		Target:        platform.RefByID(payload.UserID),
		Duration:      payload.Duration,
		Reason:        payload.Reason,
		Evidence:      payload.Evidence,
		AuthorID:      payload.AuthorID,
		AuthorName:    payload.AuthorName,
		NeedsApproval: payload.NeedsApproval,
	})
	renderOutcome(c, resp, err)
}

func (a *ModerationAPI) approveBan(c *gin.Context) {
	banID, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := a.bans.Approve(c.Request.Context(), banID)
	renderOutcome(c, resp, err)
}

func (a *ModerationAPI) denyBan(c *gin.Context) {
	banID, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := a.bans.Deny(c.Request.Context(), banID)
	renderOutcome(c, resp, err)
}

func (a *ModerationAPI) disputeBan(c *gin.Context) {
	banID, ok := pathID(c, "id")
	if !ok {
		return
	}
	payload := struct {
		Duration string `json:"duration" binding:"required"`
	}{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := a.bans.Dispute(c.Request.Context(), banID, payload.Duration)
	renderOutcome(c, resp, err)
}

func (a *ModerationAPI) unban(c *gin.Context) {
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}
	resp, err := a.bans.Unban(c.Request.Context(), userID, true)
	renderOutcome(c, resp, err)
}

type mutePayload struct {
	UserID     int64  `json:"user_id" binding:"required"`
	Duration   string `json:"duration" binding:"required"`
	Reason     string `json:"reason"`
	AuthorID   int64  `json:"author_id"`
	AuthorName string `json:"author_name"`
}

func (a *ModerationAPI) createMute(c *gin.Context) {
	payload := mutePayload{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := a.mutes.Mute(c.Request.Context(), moderation.MuteRequest{
		Target:     platform.RefByID(payload.UserID),
		Duration:   payload.Duration,
		Reason:     payload.Reason,
		AuthorID:   payload.AuthorID,
		AuthorName: payload.AuthorName,
	})
	renderOutcome(c, resp, err)
}

func (a *ModerationAPI) unmute(c *gin.Context) {
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}
	resp, err := a.mutes.Unmute(c.Request.Context(), userID, true)
	renderOutcome(c, resp, err)
}

type infractionPayload struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Weight   int    `json:"weight"`
	Reason   string `json:"reason"`
	AuthorID int64  `json:"author_id"`
}

func (a *ModerationAPI) createInfraction(c *gin.Context) {
	payload := infractionPayload{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := a.infractions.AddInfraction(c.Request.Context(), moderation.InfractionRequest{
		Target:   platform.RefByID(payload.UserID),
		Weight:   payload.Weight,
		Reason:   payload.Reason,
		AuthorID: payload.AuthorID,
	})
	renderOutcome(c, resp, err)
}

func (a *ModerationAPI) deleteInfraction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.infractions.DeleteInfraction(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *ModerationAPI) history(c *gin.Context) {
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}
	history, err := a.infractions.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"infractions":  history.Infractions,
		"notes":        history.Notes,
		"total_weight": history.TotalWeight,
		"needs_review": history.NeedsReview,
	})
}

type notePayload struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Note     string `json:"note" binding:"required"`
	AuthorID int64  `json:"author_id"`
}

func (a *ModerationAPI) createNote(c *gin.Context) {
	payload := notePayload{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := a.infractions.AddNote(c.Request.Context(), payload.UserID, payload.Note, payload.AuthorID)
	renderOutcome(c, resp, err)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// renderOutcome maps a moderation response onto a status code. Sentinel
// not-found errors become 404s; everything else unexpected is a 500.
func renderOutcome(c *gin.Context, resp *moderation.Response, err error) {
	if err != nil {
		if errors.Is(err, moderation.ErrNotBanned) || errors.Is(err, moderation.ErrNotMuted) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	switch resp.Code {
	case moderation.OutcomeExists:
		status = http.StatusConflict
	case moderation.OutcomeInvalidDuration:
		status = http.StatusBadRequest
	case moderation.OutcomeRejected:
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{
		"message": resp.Message,
		"code":    resp.Code,
		"ban_id":  resp.BanID,
	})
}
