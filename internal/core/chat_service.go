package core

import (
	"go.uber.org/zap"

	"chatpalace/internal/apperr"
	"chatpalace/internal/store"
)

type ChatService struct {
	dbStore *store.SQLiteStore
	logger  *zap.Logger
}

func NewChatService(db *store.SQLiteStore, logger *zap.Logger) *ChatService {
	return &ChatService{dbStore: db, logger: logger}
}

// FindOrCreateConversation returns the conversation between the two
// users, creating it with the unread flag down when none exists. The
// pair matches in either order. The reported bool is true when a new
// conversation was inserted.
//
// Lookup and insert are two statements with no pair constraint
// underneath, so two concurrent calls for the same pair can both
// insert. Known race, deliberately not fixed.
func (s *ChatService) FindOrCreateConversation(callerID, otherUserID string) (*store.Conversation, bool, error) {
	if otherUserID == "" {
		return nil, false, apperr.InvalidArg("user2 is required")
	}

	existing, err := s.dbStore.FindConversationByPair(callerID, otherUserID)
	if err != nil {
		s.logger.Error("failed to look up conversation pair", zap.Error(err))
		return nil, false, apperr.Wrap(apperr.CodeInternal, "failed to create conversation", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	conv, err := s.dbStore.CreateConversation(callerID, otherUserID)
	if err != nil {
		s.logger.Error("failed to create conversation", zap.Error(err))
		return nil, false, apperr.Wrap(apperr.CodeInternal, "failed to create conversation", err)
	}
	return conv, true, nil
}

func (s *ChatService) ListConversations(callerID string) ([]store.ConversationWithPeer, error) {
	convs, err := s.dbStore.ListConversationsByUserID(callerID)
	if err != nil {
		s.logger.Error("failed to list conversations", zap.String("userID", callerID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list conversations", err)
	}
	return convs, nil
}

// GetConversation returns the conversation when the caller is a
// participant. Absent and not-a-participant both read as not found.
func (s *ChatService) GetConversation(conversationID, callerID string) (*store.Conversation, error) {
	conv, err := s.dbStore.GetConversationByID(conversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to fetch conversation", err)
	}
	if conv == nil || !isParticipant(conv, callerID) {
		return nil, apperr.NotFound("conversation not found or unauthorized access")
	}
	return conv, nil
}

// DeleteConversation removes the conversation and all its messages.
// Only a participant may delete; deleting a conversation with zero
// messages is fine.
func (s *ChatService) DeleteConversation(conversationID, callerID string) (*store.DeleteResult, error) {
	conv, err := s.dbStore.GetConversationByID(conversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to delete conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found or already deleted")
	}
	if !isParticipant(conv, callerID) {
		return nil, apperr.Forbidden("you are not a participant in this conversation")
	}

	result, err := s.dbStore.DeleteConversationCascade(conversationID)
	if err != nil {
		s.logger.Error("failed to delete conversation", zap.String("conversationID", conversationID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to delete conversation", err)
	}
	return &result, nil
}

// ListMessages returns the conversation's messages joined with sender
// identity, oldest first. When the caller is the conversation's user2
// the unread flag is cleared as a side effect; a fetch by user1 never
// touches it.
func (s *ChatService) ListMessages(conversationID, callerID string) ([]store.MessageWithSender, error) {
	conv, err := s.dbStore.GetConversationByID(conversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to fetch messages", err)
	}
	if conv == nil || !isParticipant(conv, callerID) {
		return nil, apperr.NotFound("conversation not found or unauthorized access")
	}

	messages, err := s.dbStore.GetMessagesWithSender(conversationID)
	if err != nil {
		s.logger.Error("failed to fetch messages", zap.String("conversationID", conversationID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to fetch messages", err)
	}

	if err := s.dbStore.ClearUnreadOnFetch(conversationID, callerID); err != nil {
		s.logger.Error("failed to clear unread flag", zap.String("conversationID", conversationID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to fetch messages", err)
	}
	return messages, nil
}

// PostMessage stores a message with a server-assigned ID and timestamp
// and raises the unread flag for the non-sending side.
func (s *ChatService) PostMessage(conversationID, senderID, content string) (*store.Message, error) {
	if content == "" {
		return nil, apperr.InvalidArg("message content cannot be empty")
	}

	conv, err := s.dbStore.GetConversationByID(conversationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to post message", err)
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	if !isParticipant(conv, senderID) {
		return nil, apperr.Forbidden("you are not a participant in this conversation")
	}

	msg := store.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.dbStore.CreateMessage(&msg); err != nil {
		s.logger.Error("failed to store message", zap.String("conversationID", conversationID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to post message", err)
	}

	if err := s.dbStore.SetUnreadOnPost(conversationID, senderID); err != nil {
		s.logger.Error("failed to set unread flag", zap.String("conversationID", conversationID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to post message", err)
	}
	return &msg, nil
}

func isParticipant(conv *store.Conversation, userID string) bool {
	return conv.User1 == userID || conv.User2 == userID
}
