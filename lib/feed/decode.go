package feed

import (
	"bytes"
	"encoding/json"

	"github.com/fiffu/bountywatch/lib/models"
)

// envelope is one way the feed may wrap its items. Envelopes are tried in the
// order they appear in Envelopes and the first one that matches wins.
type envelope struct {
	name    string
	extract func(payload json.RawMessage) (json.RawMessage, bool)
}

// Envelopes lists the recognised payload shapes by priority.
var Envelopes = []envelope{
	{"list", bareList},
	{"results", objectKey("results")},
	{"bounties", objectKey("bounties")},
	{"data", objectKey("data")},
}

func bareList(payload json.RawMessage) (json.RawMessage, bool) {
	return payload, isArray(payload)
}

func objectKey(key string) func(json.RawMessage) (json.RawMessage, bool) {
	return func(payload json.RawMessage) (json.RawMessage, bool) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(payload, &obj); err != nil {
			return nil, false
		}
		items, ok := obj[key]
		return items, ok && isArray(items)
	}
}

func isArray(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}

// Decoded is the outcome of normalising one payload.
type Decoded struct {
	Envelope string
	Items    models.FeedItems
	Skipped  int
}

// Decode flattens a well-formed JSON payload into feed items. Unrecognised
// shapes produce no items. Array elements that are not objects are skipped.
func Decode(payload json.RawMessage) Decoded {
	for _, env := range Envelopes {
		list, ok := env.extract(payload)
		if !ok {
			continue
		}

		var elems []json.RawMessage
		if err := json.Unmarshal(list, &elems); err != nil {
			return Decoded{Envelope: env.name}
		}

		out := Decoded{Envelope: env.name, Items: make(models.FeedItems, 0, len(elems))}
		for _, elem := range elems {
			var item models.FeedItem
			if !isObject(elem) || json.Unmarshal(elem, &item) != nil {
				out.Skipped++
				continue
			}
			out.Items = append(out.Items, item)
		}
		return out
	}
	return Decoded{Items: models.FeedItems{}}
}

func isObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
