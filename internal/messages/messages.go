// Package messages implements MessageService: encrypted send/read/
// delete for both private and group chats, grounded line-for-line on
// original_source's src/server/messages.rs (encrypt_message_for_storage,
// send_group_message, send_private_message, get_group_messages,
// get_private_messages, delete_group_messages, delete_private_messages).
package messages

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
	"github.com/ruggine/chatcore/internal/store"
	"github.com/ruggine/chatcore/internal/wire"
	"github.com/ruggine/chatcore/pkg/chatcrypto"
)

// DecryptionFailedPlaceholder is substituted for any row whose
// envelope fails to decrypt, so a batch read stays total even when one
// row is unreadable.
const DecryptionFailedPlaceholder = "[DECRYPTION FAILED]"

// Publisher is the real-time fan-out side of a send: RealtimeHub (or
// a RedisBridge wrapping it) implements it. MessageService depends
// only on this narrow interface, never on the hub's connection
// registries.
type Publisher interface {
	Publish(channel, senderID string, frame wire.DataFrame) error
}

// Service is the MessageService.
type Service struct {
	store             *store.Store
	publisher         Publisher
	masterKey         []byte
	maxMessageLength  int
	encryptionEnabled bool
}

// Config controls how Service seals new messages.
type Config struct {
	MasterKey         []byte
	MaxMessageLength  int
	EncryptionEnabled bool
}

// New builds a Service backed by st, fanning out through pub.
func New(st *store.Store, pub Publisher, cfg Config) *Service {
	return &Service{
		store:             st,
		publisher:         pub,
		masterKey:         cfg.MasterKey,
		maxMessageLength:  cfg.MaxMessageLength,
		encryptionEnabled: cfg.EncryptionEnabled,
	}
}

// SendPrivate stores and fans out a 1:1 message from senderID to the
// user named recipientUsername.
func (s *Service) SendPrivate(senderID, recipientUsername, text string) error {
	if len(text) > s.maxMessageLength {
		return apperr.ErrMessageTooLong
	}

	recipient, _, err := s.store.UserByUsername(recipientUsername)
	if err != nil {
		return apperr.ErrUserNotFound
	}

	sender, err := s.store.UserByID(senderID)
	if err != nil {
		return err
	}

	chatID := chatcrypto.ChatID(senderID, recipient.ID)
	payload, err := s.seal(text, []string{senderID, recipient.ID})
	if err != nil {
		return err
	}
	if _, err := s.store.InsertMessage(chatID, senderID, payload); err != nil {
		return err
	}

	return s.publish("private:"+recipient.ID, senderID, wire.PrivateMessage, sender.Username, recipient.ID, text)
}

// SendGroup stores and fans out a message from senderID into groupID.
func (s *Service) SendGroup(senderID, groupID, text string) error {
	if len(text) > s.maxMessageLength {
		return apperr.ErrMessageTooLong
	}
	if _, err := s.store.GroupByID(groupID); err != nil {
		return err
	}
	isMember, err := s.store.IsGroupMember(groupID, senderID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.ErrNotAMember
	}

	sender, err := s.store.UserByID(senderID)
	if err != nil {
		return err
	}

	members, err := s.store.GroupMemberIDs(groupID)
	if err != nil {
		return err
	}

	chatID := chatcrypto.GroupChatID(groupID)
	payload, err := s.seal(text, members)
	if err != nil {
		return err
	}
	if _, err := s.store.InsertMessage(chatID, senderID, payload); err != nil {
		return err
	}

	return s.publish("group:"+groupID, senderID, wire.GroupMessage, sender.Username, groupID, text)
}

// GetPrivateMessages returns the formatted history of actorID's 1:1
// chat with the user named peerUsername, oldest first.
func (s *Service) GetPrivateMessages(actorID, peerUsername string) ([]string, error) {
	peer, _, err := s.store.UserByUsername(peerUsername)
	if err != nil {
		return nil, apperr.ErrUserNotFound
	}

	actor, err := s.store.UserByID(actorID)
	if err != nil {
		return nil, err
	}

	chatID := chatcrypto.ChatID(actorID, peer.ID)
	key, err := chatcrypto.DeriveKey(s.masterKey, []string{actorID, peer.ID})
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Messages(chatID)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		displaySender := peer.Username
		if row.SenderID == actorID {
			displaySender = actor.Username
		}
		lines = append(lines, formatLine(row, displaySender, key))
	}
	return lines, nil
}

// GetGroupMessages returns the formatted history of groupID, oldest
// first. actorID must be a current member.
func (s *Service) GetGroupMessages(actorID, groupID string) ([]string, error) {
	if _, err := s.store.GroupByID(groupID); err != nil {
		return nil, err
	}
	isMember, err := s.store.IsGroupMember(groupID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperr.ErrNotAMember
	}

	members, err := s.store.GroupMemberIDs(groupID)
	if err != nil {
		return nil, err
	}
	key, err := chatcrypto.DeriveKey(s.masterKey, members)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Messages(chatcrypto.GroupChatID(groupID))
	if err != nil {
		return nil, err
	}

	usernames := map[string]string{}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		displaySender, ok := usernames[row.SenderID]
		if !ok {
			u, err := s.store.UserByID(row.SenderID)
			if err != nil {
				displaySender = row.SenderID
			} else {
				displaySender = u.Username
			}
			usernames[row.SenderID] = displaySender
		}
		lines = append(lines, formatLine(row, displaySender, key))
	}
	return lines, nil
}

// DeletePrivateMessages removes every row of actorID's 1:1 chat with
// peerUsername. The peer must exist.
func (s *Service) DeletePrivateMessages(actorID, peerUsername string) error {
	peer, _, err := s.store.UserByUsername(peerUsername)
	if err != nil {
		return apperr.ErrUserNotFound
	}
	_, err = s.store.DeleteMessages(chatcrypto.ChatID(actorID, peer.ID))
	return err
}

// DeleteGroupMessages removes every message in groupID. actorID must
// be a current member.
func (s *Service) DeleteGroupMessages(actorID, groupID string) error {
	if _, err := s.store.GroupByID(groupID); err != nil {
		return err
	}
	isMember, err := s.store.IsGroupMember(groupID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.ErrNotAMember
	}
	_, err = s.store.DeleteMessages(chatcrypto.GroupChatID(groupID))
	return err
}

func (s *Service) seal(text string, participants []string) (string, error) {
	if !s.encryptionEnabled {
		return text, nil
	}
	key, err := chatcrypto.DeriveKey(s.masterKey, participants)
	if err != nil {
		return "", err
	}
	return chatcrypto.Seal(key, text)
}

func (s *Service) publish(channel, senderID string, msgType wire.MessageType, sender, target, content string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(channel, senderID, wire.DataFrame{
		ID:          uuid.New().String(),
		MessageType: msgType,
		Sender:      sender,
		Target:      target,
		Content:     content,
		Timestamp:   nowUnix(),
	})
}

func nowUnix() int64 {
	return time.Now().Unix()
}

func formatLine(row models.EncryptedMessage, displaySender string, key []byte) string {
	plaintext, err := chatcrypto.Open(key, row.Payload)
	if err != nil {
		plaintext = DecryptionFailedPlaceholder
	}
	return fmt.Sprintf("[%d] %s: %s", row.SentAt, displaySender, plaintext)
}
