package models

// Notification is the rendered body of a bounty announcement. Senders decide
// how to lay it out on their platform.
type Notification struct {
	ItemID      string
	Title       string
	URL         string
	Description string
	Fields      []NotificationField
	Footer      string
}

type NotificationField struct {
	Name   string
	Value  string
	Inline bool
}

// Field returns the value of the named field, or "".
func (n *Notification) Field(name string) string {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}
