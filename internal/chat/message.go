package chat

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting seeds every new or reset transcript.
const Greeting = "Hi there! I'm Efstathios's AI assistant. Ask me anything about Compliance, Blockchain, or my services! ⚡"

// FallbackReply is appended when a turn fails for any reason.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered list of messages shown to the user.
// It is not safe for concurrent use; Session serializes access.
type Transcript struct {
	greeting string
	messages []Message
}

// NewTranscript returns a transcript seeded with a single assistant greeting.
// An empty greeting falls back to Greeting.
func NewTranscript(greeting string) *Transcript {
	if greeting == "" {
		greeting = Greeting
	}
	t := &Transcript{greeting: greeting}
	t.Reset()
	return t
}

// Reset drops every message and reseeds the greeting.
func (t *Transcript) Reset() {
	t.messages = []Message{{Role: RoleAssistant, Content: t.greeting}}
}

// Append adds a message at the end of the transcript.
func (t *Transcript) Append(m Message) {
	t.messages = append(t.messages, m)
}

// Apply folds a reducer mutation into the transcript. AppendToLast overwrites
// the last message only when it is an assistant message past the greeting;
// otherwise the mutation degrades to AppendNew.
func (t *Transcript) Apply(m Mutation) {
	if m.Kind == AppendToLast && len(t.messages) > 1 {
		last := &t.messages[len(t.messages)-1]
		if last.Role == RoleAssistant {
			last.Content = m.Content
			return
		}
	}
	t.Append(Message{Role: RoleAssistant, Content: m.Content})
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recent message.
func (t *Transcript) Last() Message {
	return t.messages[len(t.messages)-1]
}

// Len returns the number of messages, greeting included.
func (t *Transcript) Len() int {
	return len(t.messages)
}
