package store

import (
	"github.com/ruggine/chatcore/internal/models"
)

// InsertMessage appends one encrypted row to a chat, grounded on
// original_source's send_group_message/send_private_message which
// both reduce to "insert the ciphertext envelope under a chat_id".
// lib/pq's Result never implements LastInsertId (Postgres has no
// such driver-level concept without RETURNING), so the Postgres path
// scans the id back out of a RETURNING clause instead of calling it.
func (s *Store) InsertMessage(chatID, senderID, payload string) (int64, error) {
	t := now()

	if s.Dialect == Postgres {
		var id int64
		err := s.queryRow(`INSERT INTO encrypted_messages (chat_id, sender_id, payload, sent_at)
			VALUES (?, ?, ?, ?) RETURNING id`, chatID, senderID, payload, t).Scan(&id)
		return id, err
	}

	res, err := s.exec(`INSERT INTO encrypted_messages (chat_id, sender_id, payload, sent_at) VALUES (?, ?, ?, ?)`,
		chatID, senderID, payload, t)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Messages returns every row stored under chatID in send order,
// grounded on original_source's get_group_messages/get_private_messages.
func (s *Store) Messages(chatID string) ([]models.EncryptedMessage, error) {
	rows, err := s.query(`SELECT id, chat_id, sender_id, payload, sent_at
		FROM encrypted_messages WHERE chat_id = ? ORDER BY sent_at, id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EncryptedMessage
	for rows.Next() {
		var m models.EncryptedMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Payload, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMessages removes every row stored under chatID, grounded on
// original_source's delete_group_messages/delete_private_messages.
func (s *Store) DeleteMessages(chatID string) (int64, error) {
	res, err := s.exec(`DELETE FROM encrypted_messages WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
