package email

import (
	"html/template"
	"testing"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillTemplateReturnsExecError(t *testing.T) {
	tmpl := template.Must(template.New("broken.html").Parse("{{ .Missing }}"))

	body, err := fillTemplate(tmpl, &BountyEmailFormat{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.html")
	assert.Empty(t, body)
}

func TestBodyWithoutPrefix(t *testing.T) {
	ef := &BountyEmailFormat{Notification: &models.Notification{Title: "Mow lawn", URL: "https://example.com/b/2"}}

	body, err := ef.Body()
	require.NoError(t, err)
	assert.NotContains(t, body, "<p></p>")
	assert.Contains(t, body, "Mow lawn")
}
