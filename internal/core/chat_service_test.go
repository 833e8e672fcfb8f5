package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatpalace/internal/apperr"
	"chatpalace/internal/store"
)

type chatFixture struct {
	chat  *ChatService
	alice *store.User
	bob   *store.User
	carol *store.User
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := newTestStore(t)
	users := NewUserService(db, zap.NewNop())

	f := &chatFixture{chat: NewChatService(db, zap.NewNop())}
	var err error
	f.alice, err = users.Register("alice12345", "", "pw", "pw")
	require.NoError(t, err)
	f.bob, err = users.Register("bob123456", "", "pw", "pw")
	require.NoError(t, err)
	f.carol, err = users.Register("carol7890", "", "pw", "pw")
	require.NoError(t, err)
	return f
}

func TestFindOrCreateConversationSymmetric(t *testing.T) {
	f := newChatFixture(t)

	conv, created, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, conv.HasUnreadMessages)

	// same pair again, either order, yields the same conversation
	same, created, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, same.ID)

	reversed, created, err := f.chat.FindOrCreateConversation(f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, reversed.ID)

	// a different pair gets its own conversation
	other, created, err := f.chat.FindOrCreateConversation(f.alice.ID, f.carol.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, conv.ID, other.ID)
}

func TestFindOrCreateConversationRequiresOtherUser(t *testing.T) {
	f := newChatFixture(t)
	_, _, err := f.chat.FindOrCreateConversation(f.alice.ID, "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestListConversationsOnlyForParticipants(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	for _, id := range []string{f.alice.ID, f.bob.ID} {
		convs, err := f.chat.ListConversations(id)
		require.NoError(t, err)
		require.Len(t, convs, 1)
		assert.Equal(t, conv.ID, convs[0].ID)
	}

	convs, err := f.chat.ListConversations(f.carol.ID)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestGetConversationHidesFromOutsiders(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	got, err := f.chat.GetConversation(conv.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = f.chat.GetConversation(conv.ID, f.carol.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.chat.GetConversation("no-such-conversation", f.alice.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestPostAndListMessages(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	before := time.Now().UTC()
	msg, err := f.chat.PostMessage(conv.ID, f.alice.ID, "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.Before(before))

	// flag raised for the non-sender side
	got, err := f.chat.GetConversation(conv.ID, f.alice.ID)
	require.NoError(t, err)
	assert.True(t, got.HasUnreadMessages)

	// a fetch by user1 (the sender) leaves the flag alone
	_, err = f.chat.ListMessages(conv.ID, f.alice.ID)
	require.NoError(t, err)
	got, err = f.chat.GetConversation(conv.ID, f.alice.ID)
	require.NoError(t, err)
	assert.True(t, got.HasUnreadMessages)

	// the fetch by user2 returns the message joined with its sender
	// and clears the flag
	messages, err := f.chat.ListMessages(conv.ID, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "alice12345", messages[0].Sender.Username)

	got, err = f.chat.GetConversation(conv.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, got.HasUnreadMessages)
}

func TestPostByUser2DoesNotRaiseFlag(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.chat.PostMessage(conv.ID, f.bob.ID, "hello")
	require.NoError(t, err)

	// only user2's unread state is modeled; user1 is assumed caught up
	got, err := f.chat.GetConversation(conv.ID, f.alice.ID)
	require.NoError(t, err)
	assert.False(t, got.HasUnreadMessages)
}

func TestPostMessageValidation(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.chat.PostMessage(conv.ID, f.alice.ID, "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = f.chat.PostMessage("no-such-conversation", f.alice.ID, "hi")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.chat.PostMessage(conv.ID, f.carol.ID, "let me in")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
}

func TestDeleteConversationForbiddenForOutsiders(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.chat.PostMessage(conv.ID, f.alice.ID, "hi")
	require.NoError(t, err)

	_, err = f.chat.DeleteConversation(conv.ID, f.carol.ID)
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))

	// conversation and messages intact after the forbidden attempt
	messages, err := f.chat.ListMessages(conv.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestDeleteConversationCascades(t *testing.T) {
	f := newChatFixture(t)
	conv, _, err := f.chat.FindOrCreateConversation(f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.chat.PostMessage(conv.ID, f.alice.ID, "hi")
	require.NoError(t, err)
	_, err = f.chat.PostMessage(conv.ID, f.bob.ID, "hello")
	require.NoError(t, err)

	result, err := f.chat.DeleteConversation(conv.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedConversationCount)
	assert.Equal(t, int64(2), result.DeletedMessagesCount)

	for _, id := range []string{f.alice.ID, f.bob.ID} {
		convs, err := f.chat.ListConversations(id)
		require.NoError(t, err)
		assert.Empty(t, convs)
	}

	_, err = f.chat.ListMessages(conv.ID, f.alice.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.chat.DeleteConversation(conv.ID, f.alice.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
