package store

import "time"

type User struct {
	ID           string    `json:"_id"` // UUID, client-facing identifier
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type Conversation struct {
	ID                string    `json:"_id"` // UUID
	User1             string    `json:"user1"`
	User2             string    `json:"user2"`
	HasUnreadMessages bool      `json:"hasUnreadMessages"`
	CreatedAt         time.Time `json:"created_at"`
}

// ConversationWithPeer carries the other participant's record so
// clients don't have to join it themselves.
type ConversationWithPeer struct {
	Conversation
	Peer *User `json:"userData,omitempty"`
}

type Message struct {
	ID             string    `json:"_id"` // UUID
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Likes          []string  `json:"likes"` // in schema, no operation mutates it yet
}

// MessageWithSender is a message joined with its sender's record.
type MessageWithSender struct {
	Message
	Sender User `json:"senderInfo"`
}

// DeleteResult reports how many rows a cascading conversation delete
// removed.
type DeleteResult struct {
	DeletedConversationCount int64 `json:"deletedConversationCount"`
	DeletedMessagesCount     int64 `json:"deletedMessagesCount"`
}
