package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voicecmd-backend/internal/command/domain"
	"voicecmd-backend/internal/command/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeCommands struct {
	inputs  []usecase.CommandInput
	outcome *domain.RunOutcome
	runs    map[string]*domain.CommandRun
}

func (f *fakeCommands) Execute(ctx context.Context, in usecase.CommandInput) (*domain.RunOutcome, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Audio) == 0 {
		return nil, usecase.ErrEmptyCommand
	}
	f.inputs = append(f.inputs, in)
	return f.outcome, nil
}

func (f *fakeCommands) GetRun(userID, runID string) (*domain.CommandRun, error) {
	run, ok := f.runs[runID]
	if !ok || run.UserID != userID {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (f *fakeCommands) RecentRuns(userID string, limit, offset int) ([]*domain.CommandRun, int64, error) {
	var out []*domain.CommandRun
	for _, r := range f.runs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func newRouter(f *fakeCommands) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userID", "u1") })
	h := NewCommandHandler(f, "it")
	r.POST("/api/commands/text", h.SubmitText)
	r.POST("/api/commands/voice", h.SubmitVoice)
	r.GET("/api/commands/runs", h.GetRuns)
	r.GET("/api/commands/runs/:id", h.GetRunByID)
	return r
}

func failedOutcome() *domain.RunOutcome {
	return &domain.RunOutcome{
		RunID:  "r1",
		State:  domain.StateFailed,
		Intent: domain.IntentUnknown,
		Err:    domain.NewUnknownIntentError(),
		Reply:  "❌ Non ho capito il comando.",
	}
}

func TestSubmitText(t *testing.T) {
	f := &fakeCommands{outcome: failedOutcome()}
	r := newRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/api/commands/text", strings.NewReader(`{"text":"che tempo fa"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.inputs, 1)
	require.Equal(t, "u1", f.inputs[0].UserID)
	require.Equal(t, usecase.SourceText, f.inputs[0].Source)
	require.Equal(t, "it", f.inputs[0].Language)

	var body struct {
		Run struct {
			State string `json:"state"`
			Reply string `json:"reply"`
		} `json:"run"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "failed", body.Run.State)
	require.Equal(t, "❌ Non ho capito il comando.", body.Run.Reply)
	require.NotEmpty(t, body.Error)
}

func TestSubmitTextRequiresText(t *testing.T) {
	r := newRouter(&fakeCommands{outcome: failedOutcome()})
	req := httptest.NewRequest(http.MethodPost, "/api/commands/text", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitVoice(t *testing.T) {
	f := &fakeCommands{outcome: failedOutcome()}
	r := newRouter(f)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "note.ogg")
	require.NoError(t, err)
	_, err = part.Write([]byte("OggS-audio"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("language", "en"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/commands/voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.inputs, 1)
	require.Equal(t, usecase.SourceVoice, f.inputs[0].Source)
	require.Equal(t, []byte("OggS-audio"), f.inputs[0].Audio)
	require.Equal(t, "note.ogg", f.inputs[0].Filename)
	require.Equal(t, "en", f.inputs[0].Language)
}

func TestSubmitVoiceWithoutFile(t *testing.T) {
	r := newRouter(&fakeCommands{})
	req := httptest.NewRequest(http.MethodPost, "/api/commands/voice", strings.NewReader(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRuns(t *testing.T) {
	f := &fakeCommands{runs: map[string]*domain.CommandRun{
		"a": {ID: "a", UserID: "u1", State: domain.StateDone},
		"b": {ID: "b", UserID: "u2", State: domain.StateDone},
	}}
	r := newRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/commands/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Runs  []domain.CommandRun `json:"runs"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.EqualValues(t, 1, list.Total)
	require.Equal(t, "a", list.Runs[0].ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/commands/runs/a", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/commands/runs/b", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
