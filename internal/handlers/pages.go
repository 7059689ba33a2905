package handlers

import (
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/tomato-leaf-api/internal/content"
	"github.com/Brownie44l1/tomato-leaf-api/internal/detection"
	"github.com/Brownie44l1/tomato-leaf-api/internal/disease"
	"github.com/Brownie44l1/tomato-leaf-api/internal/preprocess"
)

// thumbnailSide is the longest edge of the uploaded image shown with a result.
const thumbnailSide = 256

func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", h.page(c, h.language(c), "home", "Home"))
}

func (h *Handler) DetectPage(c *gin.Context) {
	c.HTML(http.StatusOK, "detect.html", h.page(c, h.language(c), "detect", "Disease Detection"))
}

// Detect handles the upload form and renders the result card, or the message
// for whichever step failed.
func (h *Handler) Detect(c *gin.Context) {
	imageBytes, status, err := h.readUpload(c)
	data := h.page(c, h.language(c), "detect", "Disease Detection")
	if err != nil {
		data.Error = uploadMessage(err)
		c.HTML(status, "detect.html", data)
		return
	}

	res, err := h.detector.Detect(c.Request.Context(), requestIDFrom(c), imageBytes)
	if err != nil {
		status, msg := detectErrorResponse(err)
		data.Error = msg
		c.HTML(status, "detect.html", data)
		return
	}

	data.Upload = h.thumbnail(c, imageBytes)
	switch res.Outcome {
	case detection.OutcomeSupported:
		data.Result = &resultView{Label: res.Label, Confidence: res.Confidence, Fields: res.Record.Fields()}
	case detection.OutcomeUnsupported:
		data.Result = &resultView{Label: res.Label, Confidence: res.Confidence}
		data.Warning = unsupportedMessage(res.Label)
	default:
		data.Warning = msgInvalidPrediction
	}
	c.HTML(http.StatusOK, "detect.html", data)
}

// thumbnail renders the upload as a JPEG data URI, or "" if it cannot be shown.
func (h *Handler) thumbnail(c *gin.Context, imageBytes []byte) template.URL {
	b, err := preprocess.Thumbnail(imageBytes, thumbnailSide, h.maxPixels)
	if err != nil {
		h.logger.Debug("upload preview skipped",
			zap.String("request_id", requestIDFrom(c)), zap.Error(err))
		return ""
	}
	return template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b))
}

// Report serves the plain-text report for a disease label as a download.
func (h *Handler) Report(c *gin.Context) {
	label := c.Query("disease")
	rec, ok := h.resolver.Lookup(label)
	if !ok {
		h.logger.Info("report requested for unknown disease",
			zap.String("request_id", requestIDFrom(c)),
			zap.String("disease", label))
		c.String(http.StatusNotFound, msgUnknownDisease)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+disease.ReportFileName+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(disease.FormatReport(rec)))
}

func (h *Handler) CareGuide(c *gin.Context) {
	c.HTML(http.StatusOK, "guide.html", h.page(c, h.language(c), "guide", "Tomato Care Guide"))
}

// Chatbot shows the questions of the selected category and the answer to the
// selected question. Unknown selections fall back to the first entry.
func (h *Handler) Chatbot(c *gin.Context) {
	data := h.page(c, h.language(c), "chatbot", "Chatbot")
	data.Categories = h.content.Categories()

	cat, ok := h.content.Category(c.Query("category"))
	if !ok {
		if len(h.content.FAQ) == 0 {
			data.Chat.Category = &content.Category{}
			c.HTML(http.StatusOK, "chatbot.html", data)
			return
		}
		cat = &h.content.FAQ[0]
	}
	data.Chat.Category = cat

	question := c.Query("question")
	answer, ok := h.content.Answer(cat.Name, question)
	if !ok && len(cat.Questions) > 0 {
		question = cat.Questions[0].Question
		answer = cat.Questions[0].Answer
	}
	data.Chat.Question = question
	data.Chat.Answer = answer
	c.HTML(http.StatusOK, "chatbot.html", data)
}
