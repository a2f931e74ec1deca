package render

import (
	"strings"
	"testing"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/stretchr/testify/assert"
)

func TestBounty(t *testing.T) {
	price := 1234.5
	item := models.FeedItem{
		ID:             "42",
		Title:          "Walk my dog",
		Price:          &price,
		Category:       "Pets",
		Skills:         []string{"walking", "dogs"},
		Location:       "Paris",
		EstimatedHours: "2",
		Description:    "<p>Needs a <b>friendly</b> human</p>",
	}

	n := Bounty(item, "https://example.com/bounties/")

	assert.Equal(t, "42", n.ItemID)
	assert.Equal(t, "Walk my dog", n.Title)
	assert.Equal(t, "https://example.com/bounties/42", n.URL)
	assert.Equal(t, "Needs a friendly human", n.Description)
	assert.Equal(t, "$1,234.50", n.Field(FieldPrice))
	assert.Equal(t, "Pets", n.Field(FieldCategory))
	assert.Equal(t, "Paris", n.Field(FieldLocation))
	assert.Equal(t, "2", n.Field(FieldHours))
	assert.Equal(t, "walking, dogs", n.Field(FieldSkills))
	assert.Equal(t, Footer, n.Footer)
}

func TestBountyDefaults(t *testing.T) {
	n := Bounty(models.FeedItem{ID: "7", URL: "https://elsewhere/7"}, "https://example.com/bounties")

	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "https://elsewhere/7", n.URL)
	assert.Equal(t, DefaultLocation, n.Field(FieldLocation))
	assert.Empty(t, n.Field(FieldPrice))
	assert.Empty(t, n.Field(FieldSkills))
	assert.Empty(t, n.Field(FieldHours))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 301)
	got := Truncate(long, MaxDescriptionLen)
	assert.Len(t, got, MaxDescriptionLen)
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("b", 300)
	assert.Equal(t, exact, Truncate(exact, MaxDescriptionLen))

	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "hé...", Truncate("héllo wörld", 5))
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "$0.00", Price(0))
	assert.Equal(t, "$25.00", Price(25))
	assert.Equal(t, "$1,000,000.99", Price(1000000.99))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain text", PlainText("  plain \n text "))
	assert.Equal(t, "Tom & Jerry", PlainText("Tom &amp; Jerry"))
	assert.Equal(t, "one two", PlainText("<ul><li>one</li><li>two</li></ul>"))
	assert.Equal(t, "", PlainText("<script>alert(1)</script>"))
}
