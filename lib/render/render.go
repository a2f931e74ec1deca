package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fiffu/bountywatch/lib/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	MaxDescriptionLen = 300
	DefaultTitle      = "Untitled Bounty"
	DefaultLocation   = "Remote"
	Footer            = "bountywatch • New Bounty"

	FieldPrice    = "Price"
	FieldCategory = "Category"
	FieldLocation = "Location"
	FieldHours    = "Est. Hours"
	FieldSkills   = "Skills"
)

var printer = message.NewPrinter(language.English)

// Bounty renders a feed item into a notification. Items without a URL link to
// linkBase/<id>.
func Bounty(item models.FeedItem, linkBase string) *models.Notification {
	n := &models.Notification{
		ItemID:      item.ID,
		Title:       item.Title,
		URL:         Link(item, linkBase),
		Description: Truncate(PlainText(item.Description), MaxDescriptionLen),
		Footer:      Footer,
	}
	if n.Title == "" {
		n.Title = DefaultTitle
	}

	if item.Price != nil {
		n.Fields = append(n.Fields, models.NotificationField{Name: FieldPrice, Value: Price(*item.Price), Inline: true})
	}
	if item.Category != "" {
		n.Fields = append(n.Fields, models.NotificationField{Name: FieldCategory, Value: item.Category, Inline: true})
	}

	location := item.Location
	if location == "" {
		location = DefaultLocation
	}
	n.Fields = append(n.Fields, models.NotificationField{Name: FieldLocation, Value: location, Inline: true})

	if item.EstimatedHours != "" && item.EstimatedHours != "0" {
		n.Fields = append(n.Fields, models.NotificationField{Name: FieldHours, Value: item.EstimatedHours, Inline: true})
	}
	if len(item.Skills) > 0 {
		n.Fields = append(n.Fields, models.NotificationField{Name: FieldSkills, Value: strings.Join(item.Skills, ", ")})
	}
	return n
}

func Link(item models.FeedItem, linkBase string) string {
	if item.URL != "" {
		return item.URL
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(linkBase, "/"), item.ID)
}

// Price formats an amount as US dollars with thousands separators, e.g. $1,234.50.
func Price(amount float64) string {
	return printer.Sprintf("$%.2f", amount)
}

// Truncate shortens s to at most max runes, ending it with an ellipsis when cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimRight(string(runes[:max-3]), " ") + "..."
}
