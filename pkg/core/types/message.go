package types

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of conversation history passed to the text source.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
