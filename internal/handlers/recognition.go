package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/audio"
	"github.com/zfogg/resonate/internal/logger"
)

// maxUploadSize caps audio uploads at 100MB; a 10-minute stereo 44.1kHz WAV
// is ~100MB, anything bigger is not a plausible reference clip.
const maxUploadSize = 100 * 1024 * 1024

// RegisterRecording handles POST /api/v1/recordings: multipart WAV upload
// plus name/artists metadata. Responds 201 with the new recording id.
func (h *Handlers) RegisterRecording(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_name",
			"message": "No recording name provided in 'name' field",
		})
		return
	}
	artists := parseArtists(c)
	if len(artists) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_artists",
			"message": "No artists provided in 'artists' field",
		})
		return
	}

	pcm, ok := h.decodeUpload(c)
	if !ok {
		return
	}

	id, err := h.engine.Register(c.Request.Context(), pcm, name, artists)
	if err != nil {
		logger.ErrorWithFields("registration failed", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recording_id": id})
}

// Identify handles POST /api/v1/identify: multipart WAV query clip.
// No-match is a normal 200 response with matched=false.
func (h *Handlers) Identify(c *gin.Context) {
	pcm, ok := h.decodeUpload(c)
	if !ok {
		return
	}

	result, err := h.engine.Identify(c.Request.Context(), pcm)
	if err != nil {
		logger.ErrorWithFields("identification failed", err)
		respondError(c, err)
		return
	}

	if result == nil {
		c.JSON(http.StatusOK, gin.H{"matched": false, "score": 0})
		return
	}

	resp := gin.H{
		"matched":       true,
		"recording_id":  result.RecordingID,
		"score":         result.Score,
		"offset_frames": result.Offset,
	}
	if rec, err := h.engine.GetRecording(c.Request.Context(), result.RecordingID); err == nil {
		resp["name"] = rec.Name
		resp["artists"] = rec.Artists
	}
	c.JSON(http.StatusOK, resp)
}

// GetRecording handles GET /api/v1/recordings/:id.
func (h *Handlers) GetRecording(c *gin.Context) {
	id, ok := parseRecordingID(c)
	if !ok {
		return
	}

	rec, err := h.engine.GetRecording(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// RemoveRecording handles DELETE /api/v1/recordings/:id.
func (h *Handlers) RemoveRecording(c *gin.Context) {
	id, ok := parseRecordingID(c)
	if !ok {
		return
	}

	if err := h.engine.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": id})
}

// ClearIndex handles DELETE /api/v1/recordings: drops all postings and
// recordings.
func (h *Handlers) ClearIndex(c *gin.Context) {
	if err := h.engine.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// decodeUpload pulls the "audio" multipart file, decodes it to mono PCM, and
// enforces the engine's pinned sample rate. Returns ok=false after writing
// the error response.
func (h *Handlers) decodeUpload(c *gin.Context) ([]float64, bool) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "no_audio_file",
			"message": "No audio file provided in 'audio' field",
		})
		return nil, false
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "file_too_large",
			"message": "Audio file must be under 100MB",
		})
		return nil, false
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "upload_failed",
			"message": "Failed to read uploaded file",
		})
		return nil, false
	}
	defer src.Close()

	pcm, sampleRate, err := audio.DecodeWAV(src)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	if sampleRate != h.engine.Config().SampleRate {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sample_rate_mismatch",
			"message": "audio is " + strconv.Itoa(sampleRate) + " Hz, engine expects " +
				strconv.Itoa(h.engine.Config().SampleRate) + " Hz",
		})
		return nil, false
	}

	return pcm, true
}

func parseRecordingID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.CodeBadRequest),
			"message": "recording id must be a non-negative integer",
		})
		return 0, false
	}
	return uint(id), true
}

// parseArtists accepts either repeated "artists" form fields or one
// comma-separated value.
func parseArtists(c *gin.Context) []string {
	values := c.PostFormArray("artists")
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}

	var artists []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			artists = append(artists, trimmed)
		}
	}
	return artists
}
