package subscriber

// Message is a published message delivered to the application.
//
// Topic is the channel name exactly as the server sent it, prefix included.
// Pattern is set only for messages received through a pattern subscription.
type Message struct {
	Topic   string `json:"topic" yaml:"topic"`
	Payload string `json:"payload" yaml:"payload"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// IsPattern reports whether the message arrived through a pattern subscription.
func (m Message) IsPattern() bool {
	return m.Pattern != ""
}
