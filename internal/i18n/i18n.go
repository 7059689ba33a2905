// Package i18n maps UI phrases to the language chosen for a request.
package i18n

import (
	"fmt"
	"strings"
)

// Language is a UI language code.
type Language string

const (
	English Language = "en"
	Telugu  Language = "te"
)

var names = map[Language]string{
	English: "English",
	Telugu:  "తెలుగు",
}

// ParseLanguage accepts a code or English name, case-insensitively.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return English, nil
	case "te", "telugu":
		return Telugu, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// Name is the language's own name, used in the language picker.
func (l Language) Name() string {
	if n, ok := names[l]; ok {
		return n
	}
	return string(l)
}

// Catalog translates fixed UI phrases. Unknown phrases are returned as given.
type Catalog struct {
	phrases map[Language]map[string]string
}

// NewCatalog copies the supplied phrase tables.
func NewCatalog(phrases map[Language]map[string]string) *Catalog {
	c := &Catalog{phrases: make(map[Language]map[string]string, len(phrases))}
	for lang, table := range phrases {
		cp := make(map[string]string, len(table))
		for k, v := range table {
			cp[k] = v
		}
		c.phrases[lang] = cp
	}
	return c
}

// DefaultCatalog holds the Telugu headings and labels of the web UI.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[Language]map[string]string{Telugu: telugu})
}

// Languages lists the selectable languages, English first.
func (c *Catalog) Languages() []Language {
	return []Language{English, Telugu}
}

// Translate returns the phrase for lang, falling back to text.
func (c *Catalog) Translate(lang Language, text string) string {
	if c == nil {
		return text
	}
	if v, ok := c.phrases[lang][text]; ok && v != "" {
		return v
	}
	return text
}

// Func binds the catalog to lang for use in templates.
func (c *Catalog) Func(lang Language) func(string) string {
	return func(text string) string {
		return c.Translate(lang, text)
	}
}

var telugu = map[string]string{
	"Tomato Leaf Disease Detection System": "టమాటా ఆకు వ్యాధి గుర్తింపు వ్యవస్థ",
	"Home":                                 "హోమ్",
	"Disease Detection":                    "వ్యాధి గుర్తింపు",
	"Tomato Care Guide":                    "టమాటా సంరక్షణ మార్గదర్శి",
	"Chatbot":                              "చాట్‌బాట్",
	"About this System":                    "ఈ వ్యవస్థ గురించి",
	"Features":                             "లక్షణాలు",
	"Upload a Plant Leaf Image":            "మొక్క ఆకు చిత్రాన్ని అప్‌లోడ్ చేయండి",
	"Choose an Image":                      "చిత్రాన్ని ఎంచుకోండి",
	"Predict":                              "అంచనా వేయండి",
	"Uploaded Image":                       "అప్‌లోడ్ చేసిన చిత్రం",
	"Model Prediction":                     "మోడల్ అంచనా",
	"Confidence":                           "నమ్మకం",
	"Symptoms":                             "వ్యాధి లక్షణాలు",
	"Organic Pesticides":                   "సేంద్రీయ పురుగుమందులు",
	"Tips":                                 "చిట్కాలు",
	"Download Report":                      "నివేదికను డౌన్‌లోడ్ చేయండి",
	"Choose a Category":                    "వర్గాన్ని ఎంచుకోండి",
	"Select a Question":                    "ప్రశ్నను ఎంచుకోండి",
	"Answer":                               "సమాధానం",
	"Language":                             "భాష",
}
