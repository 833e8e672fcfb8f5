package client

import (
	"context"
	"sync"

	"chatpalace/internal/store"
)

// messageAction is the closed set of mutations a MessageCache accepts.
type messageAction interface{ isMessageAction() }

type setMessages struct{ messages []store.MessageWithSender }
type appendMessage struct{ message store.MessageWithSender }
type resetMessages struct{}

func (setMessages) isMessageAction()   {}
func (appendMessage) isMessageAction() {}
func (resetMessages) isMessageAction() {}

// MessageCache holds the messages of whatever conversation was last
// fetched into it.
type MessageCache struct {
	mu       sync.RWMutex
	messages []store.MessageWithSender
	client   *Client
}

func NewMessageCache(c *Client) *MessageCache {
	return &MessageCache{client: c}
}

func (mc *MessageCache) apply(a messageAction) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	switch act := a.(type) {
	case setMessages:
		mc.messages = act.messages
	case appendMessage:
		mc.messages = append(mc.messages, act.message)
	case resetMessages:
		mc.messages = nil
	}
}

// Fetch loads the conversation's messages, replacing whatever was
// cached. On the server side this clears the unread flag when the
// caller is the conversation's second participant.
func (mc *MessageCache) Fetch(ctx context.Context, conversationID string) error {
	messages, err := mc.client.ListMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	mc.apply(setMessages{messages: messages})
	return nil
}

// Post sends a message and appends the server's stored record to the
// cache on success.
func (mc *MessageCache) Post(ctx context.Context, conversationID, content string) (*store.Message, error) {
	msg, err := mc.client.PostMessage(ctx, conversationID, content)
	if err != nil {
		return nil, err
	}
	entry := store.MessageWithSender{Message: *msg}
	if sender, err := mc.client.GetUser(ctx, msg.SenderID); err == nil {
		entry.Sender = *sender
	}
	mc.apply(appendMessage{message: entry})
	return msg, nil
}

func (mc *MessageCache) Reset() {
	mc.apply(resetMessages{})
}

// Snapshot returns a copy of the cached messages in order.
func (mc *MessageCache) Snapshot() []store.MessageWithSender {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make([]store.MessageWithSender, len(mc.messages))
	copy(out, mc.messages)
	return out
}

func (mc *MessageCache) Count() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.messages)
}
