package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of a conversation. The core treats incoming
// history as read-only context; persistence belongs to the client's chat
// manager.
type ChatMessage struct {
	Role    Role   `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}
