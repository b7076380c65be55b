// Package protocol implements the CommandDispatcher: a line-framed
// text RPC, grounded on original_source's Server::handle_command match
// arms in src/server/connection.rs, which fixes the exact command
// table, argument-count guards and response text this package
// reproduces.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/directory"
	"github.com/ruggine/chatcore/internal/friends"
	"github.com/ruggine/chatcore/internal/groups"
	"github.com/ruggine/chatcore/internal/messages"
	"github.com/ruggine/chatcore/internal/ratelimit"
	"github.com/ruggine/chatcore/internal/session"
)

// Dispatcher parses one request line at a time, authorises it,
// routes it to the owning component, and formats the response.
type Dispatcher struct {
	sessions  *session.Manager
	directory *directory.Directory
	friends   *friends.Graph
	groups    *groups.Service
	messages  *messages.Service
	limiter   *ratelimit.Limiter

	maxMessageLength int
}

// New builds a Dispatcher wiring every service it routes to.
func New(sessions *session.Manager, dir *directory.Directory, fg *friends.Graph, gs *groups.Service,
	ms *messages.Service, limiter *ratelimit.Limiter, maxMessageLength int) *Dispatcher {
	return &Dispatcher{
		sessions:         sessions,
		directory:        dir,
		friends:          fg,
		groups:           gs,
		messages:         ms,
		limiter:          limiter,
		maxMessageLength: maxMessageLength,
	}
}

// Dispatch handles exactly one request line and returns the full
// response text, including its terminating newline(s). An empty input
// line yields an empty response; the caller must not write anything
// for it.
func (d *Dispatcher) Dispatch(ctx context.Context, line, remoteAddr string) string {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	command, args := splitCommand(line)

	handler, ok := commandTable[command]
	if !ok {
		return d.errLine(apperr.ErrUnknownCommand)
	}

	if handler.rateLimited && d.limiter != nil {
		if err := d.limiter.Allow(ctx, command, remoteAddr); err != nil {
			return d.errLine(err)
		}
	}

	if len(args) != handler.argCount {
		return d.errLine(apperr.ErrUnknownCommand)
	}

	var callerID string
	if handler.requiresAuth {
		userID, err := d.sessions.Validate(args[0])
		if err != nil {
			return d.errLine(apperr.ErrInvalidSession)
		}
		callerID = userID
	}

	if handler.multi != nil {
		lines, err := handler.multi(d, callerID, args)
		if err != nil {
			return d.errLine(err)
		}
		return formatMulti(lines)
	}

	payload, err := handler.single(d, callerID, args)
	if err != nil {
		return d.errLine(err)
	}
	return "OK: " + payload + "\n"
}

// splitCommand separates the leading "/command" token from its
// arguments. For the two send commands, the trailing argument absorbs
// the remainder of the line verbatim, whitespace included, since it is
// free-form message text.
func splitCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	command := fields[0]

	switch command {
	case "/send_group_message", "/send_private_message":
		parts := strings.SplitN(line, " ", 4)
		if len(parts) < 4 {
			return command, parts[1:]
		}
		return command, []string{parts[1], parts[2], parts[3]}
	default:
		return command, fields[1:]
	}
}

func (d *Dispatcher) errLine(err error) string {
	return "ERR: " + d.humanReason(err) + "\n"
}

func formatMulti(lines []string) string {
	var b strings.Builder
	b.WriteString("OK: Messages:\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	return b.String()
}

func (d *Dispatcher) humanReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidSession):
		return "Invalid or expired session"
	case errors.Is(err, apperr.ErrUsernameTaken):
		return "Username already taken"
	case errors.Is(err, apperr.ErrWeakCredential):
		return "Password too weak"
	case errors.Is(err, apperr.ErrInvalidCredential):
		return "Invalid username or password"
	case errors.Is(err, apperr.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, apperr.ErrSelfNotAllowed):
		return "Cannot target yourself"
	case errors.Is(err, apperr.ErrAlreadyPending):
		return "Already pending"
	case errors.Is(err, apperr.ErrAlreadyFriends):
		return "Already friends"
	case errors.Is(err, apperr.ErrNoSuchRequest):
		return "No such request"
	case errors.Is(err, apperr.ErrGroupNotFound):
		return "Group not found"
	case errors.Is(err, apperr.ErrNotAMember):
		return "Not a group member"
	case errors.Is(err, apperr.ErrAlreadyMember):
		return "Already a group member"
	case errors.Is(err, apperr.ErrMessageTooLong):
		return fmt.Sprintf("Message too long (max %d chars)", d.maxMessageLength)
	case errors.Is(err, apperr.ErrRateLimited):
		return "Too many attempts, try again later"
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return "Store unavailable"
	case errors.Is(err, apperr.ErrUnknownCommand):
		return "Unknown or invalid command"
	default:
		return "Internal error"
	}
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
