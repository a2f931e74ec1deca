package email

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/fiffu/bountywatch/lib/models"
)

var (
	//go:embed bounty.html
	bountyHTML     string
	bountyTemplate = template.Must(template.New("bounty.html").Parse(bountyHTML))
)

func fillTemplate(tmpl *template.Template, values any) (string, error) {
	buf := new(strings.Builder)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

type BountyEmailFormat struct {
	Prefix       string
	Notification *models.Notification
}

func (ef *BountyEmailFormat) Subject() string {
	return fmt.Sprintf("New bounty: %s", ef.Notification.Title)
}

func (ef *BountyEmailFormat) Body() (string, error) {
	return fillTemplate(bountyTemplate, ef)
}
