package realtime

import (
	"strings"

	"github.com/ruggine/chatcore/internal/wire"
)

// route demultiplexes a channel name by its prefix and delivers frame
// to the matching local connections, excluding excludeUserID. It is
// shared by Publish and the RedisBridge subscriber; both pass the
// originating sender as excludeUserID so the sender never receives
// their own message back.
func (h *Hub) route(channel string, frame wire.DataFrame, excludeUserID string) error {
	switch {
	case strings.HasPrefix(channel, "private:"):
		target := strings.TrimPrefix(channel, "private:")
		if target == excludeUserID {
			return nil
		}
		return h.SendToUser(target, frame)

	case strings.HasPrefix(channel, "group:"):
		groupID := strings.TrimPrefix(channel, "group:")
		return h.SendToGroup(groupID, frame, excludeUserID)

	case channel == "system", channel == "notifications":
		h.Broadcast(frame, excludeUserID)
		return nil

	default:
		return nil
	}
}

// Publish implements messages.Publisher: a locally-originated event is
// routed to every matching local connection, excluding the sender so a
// group or broadcast member never receives their own message back.
func (h *Hub) Publish(channel, senderID string, frame wire.DataFrame) error {
	return h.route(channel, frame, senderID)
}
