package mailbox

import "time"

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	UID       uint32
}

// Message holds an envelope with its decoded body.
type Message struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}

// Body returns the plain-text body, falling back to the HTML body with
// markup removed.
func (m Message) Body() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	return stripHTML(m.HTMLBody)
}
