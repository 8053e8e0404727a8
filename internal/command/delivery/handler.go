package delivery

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/internal/command/usecase"

	"github.com/gin-gonic/gin"
)

// MaxAudioBytes is the largest upload the transcription endpoint accepts
const MaxAudioBytes = 25 << 20

// CommandHandler handles voice command HTTP requests
type CommandHandler struct {
	commandUsecase  usecase.CommandUsecase
	defaultLanguage string
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(commandUsecase usecase.CommandUsecase, defaultLanguage string) *CommandHandler {
	return &CommandHandler{
		commandUsecase:  commandUsecase,
		defaultLanguage: defaultLanguage,
	}
}

// TextCommandRequest represents the request body for an already transcribed command
type TextCommandRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language"`
}

// CommandResponse is the body returned for every finished run
type CommandResponse struct {
	Run   *domain.RunOutcome `json:"run"`
	Error string             `json:"error,omitempty"`
}

func responseFor(outcome *domain.RunOutcome) CommandResponse {
	resp := CommandResponse{Run: outcome}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	return resp
}

// SubmitText runs a command from text
// POST /api/commands/text
func (h *CommandHandler) SubmitText(c *gin.Context) {
	userID := c.GetString("userID")

	var req TextCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.execute(c, usecase.CommandInput{
		UserID:   userID,
		Source:   usecase.SourceText,
		Text:     req.Text,
		Language: h.language(req.Language),
	})
}

// SubmitVoice runs a command from an uploaded recording
// POST /api/commands/voice (multipart, field "audio", optional "language")
func (h *CommandHandler) SubmitVoice(c *gin.Context) {
	userID := c.GetString("userID")

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	if file.Size > MaxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}
	defer f.Close()

	audio, err := io.ReadAll(io.LimitReader(f, MaxAudioBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}

	h.execute(c, usecase.CommandInput{
		UserID:   userID,
		Source:   usecase.SourceVoice,
		Audio:    audio,
		Filename: file.Filename,
		Language: h.language(c.PostForm("language")),
	})
}

func (h *CommandHandler) execute(c *gin.Context, in usecase.CommandInput) {
	outcome, err := h.commandUsecase.Execute(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyCommand) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// a failed run is still a finished request, the reply says what went wrong
	c.JSON(http.StatusOK, responseFor(outcome))
}

func (h *CommandHandler) language(requested string) string {
	if requested != "" {
		return requested
	}
	return h.defaultLanguage
}

// GetRuns returns the caller's recent runs
// GET /api/commands/runs?limit=20&offset=0
func (h *CommandHandler) GetRuns(c *gin.Context) {
	userID := c.GetString("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, total, err := h.commandUsecase.RecentRuns(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": total,
	})
}

// GetRunByID returns one of the caller's runs
// GET /api/commands/runs/:id
func (h *CommandHandler) GetRunByID(c *gin.Context) {
	userID := c.GetString("userID")
	runID := c.Param("id")

	run, err := h.commandUsecase.GetRun(userID, runID)
	if err != nil {
		if err.Error() == "run not found" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}
