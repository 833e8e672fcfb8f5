package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// database/sql is the connection pool; bound it instead of opening
	// an ad hoc connection per request.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        username TEXT UNIQUE NOT NULL,
        profile_image TEXT NOT NULL DEFAULT '',
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id TEXT PRIMARY KEY, -- UUID
        user1 TEXT NOT NULL,
        user2 TEXT NOT NULL,
        has_unread_messages BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user1) REFERENCES users (id),
        FOREIGN KEY (user2) REFERENCES users (id)
    );
    -- No unique index on the (user1, user2) pair: two concurrent
    -- find-or-create calls for the same pair can race and insert
    -- duplicates. Accepted behavior, kept as is.

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        conversation_id TEXT NOT NULL,
        sender_id TEXT NOT NULL,
        content TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        likes TEXT NOT NULL DEFAULT '[]', -- JSON array of user IDs
        FOREIGN KEY (conversation_id) REFERENCES conversations (id),
        FOREIGN KEY (sender_id) REFERENCES users (id)
    );

    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, timestamp);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(user *User) error {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO users (id, username, profile_image, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Username, user.ProfileImage, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByUsername(username string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, username, profile_image, password_hash, created_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &user.ProfileImage, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	var user User
	err := s.db.QueryRow(
		"SELECT id, username, profile_image, password_hash, created_at FROM users WHERE id = ?",
		id,
	).Scan(&user.ID, &user.Username, &user.ProfileImage, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) ListUsers() ([]User, error) {
	rows, err := s.db.Query("SELECT id, username, profile_image, password_hash, created_at FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.ProfileImage, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser overwrites only the supplied fields; nil means the field
// was omitted and keeps its stored value. Returns the number of rows
// modified.
func (s *SQLiteStore) UpdateUser(id string, username, profileImage, passwordHash *string) (int64, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *username)
	}
	if profileImage != nil {
		sets = append(sets, "profile_image = ?")
		args = append(args, *profileImage)
	}
	if passwordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *passwordHash)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, id)

	res, err := s.db.Exec("UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute user update: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// Conversation methods

// FindConversationByPair matches the {a, b} pair in either order.
func (s *SQLiteStore) FindConversationByPair(a, b string) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		`SELECT id, user1, user2, has_unread_messages, created_at FROM conversations
         WHERE (user1 = ? AND user2 = ?) OR (user1 = ? AND user2 = ?)`,
		a, b, b, a,
	).Scan(&conv.ID, &conv.User1, &conv.User2, &conv.HasUnreadMessages, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query conversation pair: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) CreateConversation(user1, user2 string) (*Conversation, error) {
	conv := Conversation{
		ID:                uuid.NewString(),
		User1:             user1,
		User2:             user2,
		HasUnreadMessages: false,
		CreatedAt:         time.Now().UTC(),
	}
	_, err := s.db.Exec(
		"INSERT INTO conversations (id, user1, user2, has_unread_messages, created_at) VALUES (?, ?, ?, ?, ?)",
		conv.ID, conv.User1, conv.User2, conv.HasUnreadMessages, conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) GetConversationByID(id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(
		"SELECT id, user1, user2, has_unread_messages, created_at FROM conversations WHERE id = ?",
		id,
	).Scan(&conv.ID, &conv.User1, &conv.User2, &conv.HasUnreadMessages, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversationsByUserID returns every conversation the user takes
// part in, each joined with the other participant's record.
func (s *SQLiteStore) ListConversationsByUserID(userID string) ([]ConversationWithPeer, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.user1, c.user2, c.has_unread_messages, c.created_at,
                u.id, u.username, u.profile_image, u.created_at
         FROM conversations c
         LEFT JOIN users u ON u.id = CASE WHEN c.user1 = ? THEN c.user2 ELSE c.user1 END
         WHERE c.user1 = ? OR c.user2 = ?
         ORDER BY c.created_at ASC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []ConversationWithPeer
	for rows.Next() {
		var conv ConversationWithPeer
		var peerID, peerName, peerImage sql.NullString
		var peerCreated sql.NullTime
		if err := rows.Scan(
			&conv.ID, &conv.User1, &conv.User2, &conv.HasUnreadMessages, &conv.CreatedAt,
			&peerID, &peerName, &peerImage, &peerCreated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if peerID.Valid {
			conv.Peer = &User{
				ID:           peerID.String,
				Username:     peerName.String,
				ProfileImage: peerImage.String,
				CreatedAt:    peerCreated.Time,
			}
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// DeleteConversationCascade removes the conversation and every message
// referencing it, reporting how many rows went away. Zero messages is
// not an error.
func (s *SQLiteStore) DeleteConversationCascade(id string) (DeleteResult, error) {
	var result DeleteResult

	res, err := s.db.Exec("DELETE FROM messages WHERE conversation_id = ?", id)
	if err != nil {
		return result, fmt.Errorf("failed to delete messages: %w", err)
	}
	result.DeletedMessagesCount, _ = res.RowsAffected()

	res, err = s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return result, fmt.Errorf("failed to delete conversation: %w", err)
	}
	result.DeletedConversationCount, _ = res.RowsAffected()
	return result, nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now().UTC()
	if msg.Likes == nil {
		msg.Likes = []string{}
	}
	likesJSON, err := json.Marshal(msg.Likes)
	if err != nil {
		return fmt.Errorf("failed to marshal likes: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO messages (id, conversation_id, sender_id, content, timestamp, likes) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.Timestamp, string(likesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessagesWithSender returns the conversation's messages joined
// with their senders, oldest first; ties keep insertion order.
func (s *SQLiteStore) GetMessagesWithSender(conversationID string) ([]MessageWithSender, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.conversation_id, m.sender_id, m.content, m.timestamp, m.likes,
                u.id, u.username, u.profile_image, u.created_at
         FROM messages m
         JOIN users u ON u.id = m.sender_id
         WHERE m.conversation_id = ?
         ORDER BY m.timestamp ASC, m.rowid ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []MessageWithSender
	for rows.Next() {
		var msg MessageWithSender
		var likesJSON string
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.Timestamp, &likesJSON,
			&msg.Sender.ID, &msg.Sender.Username, &msg.Sender.ProfileImage, &msg.Sender.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if err := json.Unmarshal([]byte(likesJSON), &msg.Likes); err != nil {
			msg.Likes = []string{}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SetUnreadOnPost flags the conversation as unread for whoever is not
// the sender. Only the user2 side is modeled: the flag flips when
// user2 differs from the sender.
func (s *SQLiteStore) SetUnreadOnPost(conversationID, senderID string) error {
	_, err := s.db.Exec(
		"UPDATE conversations SET has_unread_messages = TRUE WHERE id = ? AND user2 != ?",
		conversationID, senderID,
	)
	if err != nil {
		return fmt.Errorf("failed to set unread flag: %w", err)
	}
	return nil
}

// ClearUnreadOnFetch clears the flag when the fetching caller is the
// conversation's user2. A fetch by user1 leaves it untouched.
func (s *SQLiteStore) ClearUnreadOnFetch(conversationID, callerID string) error {
	_, err := s.db.Exec(
		"UPDATE conversations SET has_unread_messages = FALSE WHERE id = ? AND user2 = ?",
		conversationID, callerID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear unread flag: %w", err)
	}
	return nil
}
