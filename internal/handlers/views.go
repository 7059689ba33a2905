package handlers

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/tomato-leaf-api/internal/content"
	"github.com/Brownie44l1/tomato-leaf-api/internal/disease"
	"github.com/Brownie44l1/tomato-leaf-api/internal/i18n"
)

type languageOption struct {
	Code i18n.Language
	Name string
}

type resultView struct {
	Label      string
	Confidence float32
	Fields     []disease.Field
}

type chatView struct {
	Category *content.Category
	Question string
	Answer   string
}

// pageData is the template context shared by every page.
type pageData struct {
	Title     string
	Active    string
	Lang      i18n.Language
	Languages []languageOption
	Path      string
	T         func(string) string
	Content   *content.Content

	Result  *resultView
	Upload  template.URL
	Error   string
	Warning string

	Categories []string
	Chat       chatView
}

func (h *Handler) page(c *gin.Context, lang i18n.Language, active, title string) *pageData {
	langs := h.catalog.Languages()
	options := make([]languageOption, 0, len(langs))
	for _, l := range langs {
		options = append(options, languageOption{Code: l, Name: l.Name()})
	}
	return &pageData{
		Title:     title,
		Active:    active,
		Lang:      lang,
		Languages: options,
		Path:      c.Request.URL.Path,
		T:         h.catalog.Func(lang),
		Content:   h.content,
	}
}
