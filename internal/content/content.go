// Package content holds the static care guide and FAQ shown by the web UI.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var document []byte

// Raw HTML in a body is dropped; bare URLs become links.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Section is one titled block of the care guide. Body is markdown; HTML is
// its rendering, filled in by Parse.
type Section struct {
	Title string        `yaml:"title"`
	Body  string        `yaml:"body"`
	HTML  template.HTML `yaml:"-"`
}

// QA is a scripted chatbot question and its answer.
type QA struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Category groups related chatbot questions.
type Category struct {
	Name      string `yaml:"category"`
	Questions []QA   `yaml:"questions"`
}

// Content is the read-only document loaded at startup.
type Content struct {
	Title     string     `yaml:"title"`
	About     string     `yaml:"about"`
	Features  []string   `yaml:"features"`
	CareGuide []Section  `yaml:"care_guide"`
	FAQ       []Category `yaml:"faq"`
}

// Load parses the embedded document.
func Load() (*Content, error) {
	return Parse(document)
}

// Parse decodes a YAML content document.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if len(c.FAQ) == 0 {
		return nil, errors.New("parse content: no faq categories")
	}
	for _, cat := range c.FAQ {
		if cat.Name == "" || len(cat.Questions) == 0 {
			return nil, fmt.Errorf("parse content: faq category %q is empty", cat.Name)
		}
	}
	for i := range c.CareGuide {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(c.CareGuide[i].Body), &buf); err != nil {
			return nil, fmt.Errorf("render care guide %q: %w", c.CareGuide[i].Title, err)
		}
		c.CareGuide[i].HTML = template.HTML(buf.String())
	}
	return &c, nil
}

// Categories returns the FAQ category names in document order.
func (c *Content) Categories() []string {
	names := make([]string, 0, len(c.FAQ))
	for _, cat := range c.FAQ {
		names = append(names, cat.Name)
	}
	return names
}

// Category finds a FAQ category by exact name.
func (c *Content) Category(name string) (*Category, bool) {
	for i := range c.FAQ {
		if c.FAQ[i].Name == name {
			return &c.FAQ[i], true
		}
	}
	return nil, false
}

// Answer finds the scripted answer for question within the category.
func (c *Content) Answer(category, question string) (string, bool) {
	cat, ok := c.Category(category)
	if !ok {
		return "", false
	}
	for _, qa := range cat.Questions {
		if qa.Question == question {
			return qa.Answer, true
		}
	}
	return "", false
}
