package conversation

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one role-tagged line of the transcript handed to the oracle.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
