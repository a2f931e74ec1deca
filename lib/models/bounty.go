package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FeedItem is a single bounty as published by the feed. Only ID, Title and
// Price outlive a poll cycle, via the seen-item ledger.
type FeedItem struct {
	ID             string
	Title          string
	Price          *float64
	Category       string
	Skills         []string
	Location       string
	EstimatedHours string
	Description    string
	URL            string
}

type FeedItems []FeedItem

func (item FeedItem) PriceOrZero() float64 {
	if item.Price == nil {
		return 0
	}
	return *item.Price
}

type rawFeedItem struct {
	ID             looseString     `json:"id"`
	Title          looseString     `json:"title"`
	Price          json.RawMessage `json:"price"`
	Category       looseString     `json:"category"`
	Skills         json.RawMessage `json:"skills"`
	Location       looseString     `json:"location"`
	EstimatedHours looseString     `json:"estimated_hours"`
	Description    looseString     `json:"description"`
	URL            looseString     `json:"url"`
}

func (item *FeedItem) UnmarshalJSON(b []byte) error {
	var raw rawFeedItem
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*item = FeedItem{
		ID:             strings.TrimSpace(string(raw.ID)),
		Title:          string(raw.Title),
		Price:          parsePrice(raw.Price),
		Category:       string(raw.Category),
		Skills:         parseSkills(raw.Skills),
		Location:       string(raw.Location),
		EstimatedHours: string(raw.EstimatedHours),
		Description:    string(raw.Description),
		URL:            string(raw.URL),
	}
	return nil
}

// looseString accepts JSON strings, numbers and booleans. Anything else,
// including null, decodes to "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}

	switch b[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = looseString(str)
	case 't', 'f':
		*s = looseString(b)
	case 'n', '{', '[':
		*s = ""
	default:
		*s = looseString(b)
	}
	return nil
}

func parsePrice(b json.RawMessage) *float64 {
	var str looseString
	if len(b) == 0 || json.Unmarshal(b, &str) != nil || str == "" {
		return nil
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(string(str)), 64)
	if err != nil {
		return nil
	}
	return &price
}

func parseSkills(b json.RawMessage) []string {
	if len(b) == 0 {
		return nil
	}

	var list []looseString
	if err := json.Unmarshal(b, &list); err == nil {
		skills := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				skills = append(skills, string(s))
			}
		}
		return skills
	}

	var single looseString
	if err := json.Unmarshal(b, &single); err == nil && single != "" {
		return []string{string(single)}
	}
	return nil
}
