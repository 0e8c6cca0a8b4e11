package bot

// Update is the deserialized inbound event handed to the processor.
// It carries at most one of Message or Callback; an update with neither
// is ignored.
type Update struct {
	ID       int64
	Message  *Message
	Callback *Callback
}

// Message is an inbound text message.
type Message struct {
	From int64 // sender's Telegram user id
	Text string
}

// Callback is an inbound button press with its opaque payload.
type Callback struct {
	From int64 // sender's Telegram user id
	Data string
}

// SenderID returns the Telegram user id of whoever triggered the update.
func (u *Update) SenderID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.From
	case u.Callback != nil:
		return u.Callback.From
	default:
		return 0
	}
}

// Status classifies the outcome of processing one update.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusIgnored   Status = "ignored"
	StatusError     Status = "error"
)

// Reply is the handler-level output: text plus an optional button layout.
type Reply struct {
	Text     string
	Keyboard *Keyboard
}

// Result is the processor's structured outcome for one update. The
// webhook layer uses Text/Keyboard to build the outbound reply and
// Status/Reason for logging and metrics.
type Result struct {
	Status   Status
	Reason   string // set for ignored and error results
	Command  string // echoed command token or callback payload
	Text     string
	Keyboard *Keyboard
	UserID   int64 // owning user's internal id, 0 if not resolved
	UpdateID int64
}
