package client

import (
	"context"
	"sync"

	"chatpalace/internal/store"
)

// conversationAction is the closed set of mutations a
// ConversationCache accepts.
type conversationAction interface{ isConversationAction() }

type setConversations struct{ conversations []store.ConversationWithPeer }
type addConversation struct{ conversation store.ConversationWithPeer }
type removeConversation struct{ id string }
type resetConversations struct{}

func (setConversations) isConversationAction()   {}
func (addConversation) isConversationAction()    {}
func (removeConversation) isConversationAction() {}
func (resetConversations) isConversationAction() {}

// ConversationCache caches the caller's conversations. The active
// conversation selection lives with the UI, not here.
type ConversationCache struct {
	mu            sync.RWMutex
	conversations []store.ConversationWithPeer
	client        *Client
}

func NewConversationCache(c *Client) *ConversationCache {
	return &ConversationCache{client: c}
}

func (cc *ConversationCache) apply(a conversationAction) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	switch act := a.(type) {
	case setConversations:
		cc.conversations = act.conversations
	case addConversation:
		cc.conversations = append(cc.conversations, act.conversation)
	case removeConversation:
		filtered := cc.conversations[:0]
		for _, conv := range cc.conversations {
			if conv.ID != act.id {
				filtered = append(filtered, conv)
			}
		}
		cc.conversations = filtered
	case resetConversations:
		cc.conversations = nil
	}
}

// Fetch re-synchronizes the cache with the server.
func (cc *ConversationCache) Fetch(ctx context.Context) error {
	convs, err := cc.client.ListConversations(ctx)
	if err != nil {
		return err
	}
	cc.apply(setConversations{conversations: convs})
	return nil
}

// StartOrGet returns the ID of the conversation with the other user,
// checking the cache for an existing pair before asking the server to
// find-or-create one.
func (cc *ConversationCache) StartOrGet(ctx context.Context, otherUserID string) (string, error) {
	self := ""
	if s := cc.client.Session(); s != nil {
		self = s.UserID
	}

	cc.mu.RLock()
	for _, conv := range cc.conversations {
		if (conv.User1 == self && conv.User2 == otherUserID) ||
			(conv.User1 == otherUserID && conv.User2 == self) {
			cc.mu.RUnlock()
			return conv.ID, nil
		}
	}
	cc.mu.RUnlock()

	conv, err := cc.client.CreateConversation(ctx, otherUserID)
	if err != nil {
		return "", err
	}

	entry := store.ConversationWithPeer{Conversation: *conv}
	if peer, err := cc.client.GetUser(ctx, otherUserID); err == nil {
		entry.Peer = peer
	}
	cc.apply(addConversation{conversation: entry})
	return conv.ID, nil
}

// Delete removes the conversation on the server and drops it from the
// cache on success.
func (cc *ConversationCache) Delete(ctx context.Context, conversationID string) (*store.DeleteResult, error) {
	result, err := cc.client.DeleteConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	cc.apply(removeConversation{id: conversationID})
	return result, nil
}

func (cc *ConversationCache) Reset() {
	cc.apply(resetConversations{})
}

// Snapshot returns a copy of the cached conversations in order.
func (cc *ConversationCache) Snapshot() []store.ConversationWithPeer {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	out := make([]store.ConversationWithPeer, len(cc.conversations))
	copy(out, cc.conversations)
	return out
}

func (cc *ConversationCache) Count() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.conversations)
}
