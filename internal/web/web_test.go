package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"home.html", "detect.html", "guide.html", "chatbot.html", "header", "footer"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestFuncs(t *testing.T) {
	percent := funcs["percent"].(func(float32) string)
	assert.Equal(t, "97.46", percent(97.456))
	assert.Equal(t, "0.00", percent(0))
}

func TestHeaderEscapesTitle(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	data := map[string]interface{}{
		"Title":     "<script>",
		"Lang":      "en",
		"Active":    "home",
		"Path":      "/",
		"Languages": []struct{ Code, Name string }{{"en", "English"}},
		"T":         func(s string) string { return s },
	}
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "header", data))
	assert.Contains(t, buf.String(), "&lt;script&gt;")
	assert.NotContains(t, buf.String(), "<title><script>")
}
