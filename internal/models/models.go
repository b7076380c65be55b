// Package models holds the persistent entities of the chat core, as
// described in the data model: users, sessions, friendships, groups
// and encrypted messages.
package models

// User is a registered account. IDs are UUIDv4 strings rather than a
// native UUID column so the same schema runs on Postgres and SQLite.
type User struct {
	ID       string
	Username string
	IsOnline bool
}

// SessionEventType is the kind of lifecycle event appended to the
// session event log.
type SessionEventType string

const (
	SessionEventLogin   SessionEventType = "login"
	SessionEventLogout  SessionEventType = "logout"
	SessionEventExpired SessionEventType = "expired"
)

// Session is a live login token. A user may hold several concurrently.
type Session struct {
	Token     string
	UserID    string
	CreatedAt int64
	ExpiresAt int64
}

// FriendStatus is the lifecycle state of a FriendRequest.
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
	FriendRejected FriendStatus = "rejected"
)

// FriendRequest records one ordered friendship proposal.
type FriendRequest struct {
	ID         int64
	FromUserID string
	ToUserID   string
	Message    string
	Status     FriendStatus
	CreatedAt  int64
}

// Group is a named chat room with a founding owner.
type Group struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt int64
}

// GroupMember is one row of the group roster.
type GroupMember struct {
	GroupID  string
	UserID   string
	JoinedAt int64
}

// InviteStatus mirrors FriendStatus for group invites.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

// GroupInvite is a pending (or resolved) invitation to join a group.
type GroupInvite struct {
	ID         int64
	GroupID    string
	FromUserID string
	ToUserID   string
	Status     InviteStatus
	CreatedAt  int64
}

// EncryptedMessage is one stored chat line. Payload is the opaque
// envelope produced by package chatcrypto: either a JSON
// ciphertext+nonce object or, for rows written before encryption was
// enabled, legacy plaintext.
type EncryptedMessage struct {
	ID       int64
	ChatID   string
	SenderID string
	Payload  string
	SentAt   int64
}
