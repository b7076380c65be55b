package protocol

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ruggine/chatcore/internal/apperr"
	"github.com/ruggine/chatcore/internal/models"
)

// commandHandler describes one recognised command: how many
// arguments it takes (after the command token), whether its first
// argument is a session token that must validate, and which of the
// two handler shapes (single-line or multi-line) answers it.
type commandHandler struct {
	argCount     int
	requiresAuth bool
	rateLimited  bool
	single       func(d *Dispatcher, callerID string, args []string) (string, error)
	multi        func(d *Dispatcher, callerID string, args []string) ([]string, error)
}

// commandTable is the authoritative command list: unknown commands,
// or known commands called with the wrong argument count, both yield
// "ERR: Unknown or invalid command".
var commandTable = map[string]commandHandler{
	"/register": {argCount: 2, rateLimited: true, single: cmdRegister},
	"/login":    {argCount: 2, rateLimited: true, single: cmdLogin},
	"/logout":   {argCount: 1, requiresAuth: true, single: cmdLogout},

	"/validate_session": {argCount: 1, requiresAuth: true, single: cmdValidateSession},

	"/users":     {argCount: 0, single: cmdUsers},
	"/all_users": {argCount: 0, single: cmdAllUsers},

	"/create_group": {argCount: 2, requiresAuth: true, single: cmdCreateGroup},
	"/my_groups":    {argCount: 1, requiresAuth: true, single: cmdMyGroups},
	"/invite":       {argCount: 3, requiresAuth: true, single: cmdInvite},
	"/accept_invite": {argCount: 2, requiresAuth: true, single: cmdAcceptInvite},
	"/reject_invite": {argCount: 2, requiresAuth: true, single: cmdRejectInvite},
	"/my_invites":    {argCount: 1, requiresAuth: true, single: cmdMyInvites},
	"/join_group":    {argCount: 2, requiresAuth: true, single: cmdJoinGroup},
	"/leave_group":   {argCount: 2, requiresAuth: true, single: cmdLeaveGroup},

	"/send_group_message":   {argCount: 3, requiresAuth: true, single: cmdSendGroupMessage},
	"/send_private_message": {argCount: 3, requiresAuth: true, single: cmdSendPrivateMessage},
	"/get_group_messages":   {argCount: 2, requiresAuth: true, multi: cmdGetGroupMessages},
	"/get_private_messages": {argCount: 2, requiresAuth: true, multi: cmdGetPrivateMessages},
	"/delete_group_messages":   {argCount: 2, requiresAuth: true, single: cmdDeleteGroupMessages},
	"/delete_private_messages": {argCount: 2, requiresAuth: true, single: cmdDeletePrivateMessages},

	"/send_friend_request":     {argCount: 2, requiresAuth: true, single: cmdSendFriendRequest},
	"/accept_friend_request":   {argCount: 2, requiresAuth: true, single: cmdAcceptFriendRequest},
	"/reject_friend_request":   {argCount: 2, requiresAuth: true, single: cmdRejectFriendRequest},
	"/list_friends":            {argCount: 1, requiresAuth: true, single: cmdListFriends},
	"/received_friend_requests": {argCount: 1, requiresAuth: true, single: cmdReceivedFriendRequests},
	"/sent_friend_requests":     {argCount: 1, requiresAuth: true, single: cmdSentFriendRequests},

	"/help": {argCount: 0, single: cmdHelp},
	"/quit": {argCount: 0, single: cmdQuit},
}

func cmdRegister(d *Dispatcher, _ string, args []string) (string, error) {
	if _, err := d.sessions.Register(args[0], args[1]); err != nil {
		return "", err
	}
	return "Registered", nil
}

func cmdLogin(d *Dispatcher, _ string, args []string) (string, error) {
	token, err := d.sessions.Login(args[0], args[1])
	if err != nil {
		return "", err
	}
	return "Logged in SESSION:" + token, nil
}

func cmdLogout(d *Dispatcher, _ string, args []string) (string, error) {
	if err := d.sessions.Logout(args[0]); err != nil {
		return "", err
	}
	return "Logged out", nil
}

func cmdValidateSession(d *Dispatcher, callerID string, _ []string) (string, error) {
	user, err := d.directory.FindByID(callerID)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func cmdUsers(d *Dispatcher, _ string, _ []string) (string, error) {
	users, err := d.directory.ListOnline()
	if err != nil {
		return "", err
	}
	return usernameCSV(users), nil
}

func cmdAllUsers(d *Dispatcher, _ string, _ []string) (string, error) {
	users, err := d.directory.ListAll("")
	if err != nil {
		return "", err
	}
	return usernameCSV(users), nil
}

func cmdCreateGroup(d *Dispatcher, callerID string, args []string) (string, error) {
	id, err := d.groups.CreateGroup(callerID, args[1])
	if err != nil {
		return "", err
	}
	return id, nil
}

func cmdMyGroups(d *Dispatcher, callerID string, _ []string) (string, error) {
	gs, err := d.groups.MyGroups(callerID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(gs))
	for _, g := range gs {
		parts = append(parts, g.ID+":"+g.Name)
	}
	return strings.Join(parts, ","), nil
}

func cmdInvite(d *Dispatcher, callerID string, args []string) (string, error) {
	groupID, username := args[1], args[2]
	if err := d.groups.Invite(callerID, groupID, username); err != nil {
		return "", err
	}
	return "Invited", nil
}

func cmdAcceptInvite(d *Dispatcher, callerID string, args []string) (string, error) {
	id, err := parseInt(args[1])
	if err != nil {
		return "", apperr.ErrNoSuchRequest
	}
	if err := d.groups.AcceptInvite(callerID, id); err != nil {
		return "", err
	}
	return "Joined", nil
}

func cmdRejectInvite(d *Dispatcher, callerID string, args []string) (string, error) {
	id, err := parseInt(args[1])
	if err != nil {
		return "", apperr.ErrNoSuchRequest
	}
	if err := d.groups.RejectInvite(callerID, id); err != nil {
		return "", err
	}
	return "Rejected", nil
}

func cmdMyInvites(d *Dispatcher, callerID string, _ []string) (string, error) {
	invites, err := d.groups.MyInvites(callerID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(invites))
	for _, inv := range invites {
		parts = append(parts, strconv.FormatInt(inv.ID, 10)+":"+inv.GroupID)
	}
	return strings.Join(parts, "|"), nil
}

func cmdJoinGroup(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.groups.Join(callerID, args[1]); err != nil {
		return "", err
	}
	return "Joined", nil
}

func cmdLeaveGroup(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.groups.Leave(callerID, args[1]); err != nil {
		return "", err
	}
	return "Left", nil
}

func cmdSendGroupMessage(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.messages.SendGroup(callerID, args[1], args[2]); err != nil {
		return "", err
	}
	return "Message sent", nil
}

func cmdSendPrivateMessage(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.messages.SendPrivate(callerID, args[1], args[2]); err != nil {
		return "", err
	}
	return "Message sent", nil
}

func cmdGetGroupMessages(d *Dispatcher, callerID string, args []string) ([]string, error) {
	return d.messages.GetGroupMessages(callerID, args[1])
}

func cmdGetPrivateMessages(d *Dispatcher, callerID string, args []string) ([]string, error) {
	return d.messages.GetPrivateMessages(callerID, args[1])
}

func cmdDeleteGroupMessages(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.messages.DeleteGroupMessages(callerID, args[1]); err != nil {
		return "", err
	}
	return "Deleted", nil
}

func cmdDeletePrivateMessages(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.messages.DeletePrivateMessages(callerID, args[1]); err != nil {
		return "", err
	}
	return "Deleted", nil
}

func cmdSendFriendRequest(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.friends.SendRequest(callerID, args[1], ""); err != nil {
		return "", err
	}
	return "Request sent", nil
}

func cmdAcceptFriendRequest(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.friends.Accept(callerID, args[1]); err != nil {
		return "", err
	}
	return "Accepted", nil
}

func cmdRejectFriendRequest(d *Dispatcher, callerID string, args []string) (string, error) {
	if err := d.friends.Reject(callerID, args[1]); err != nil {
		return "", err
	}
	return "Rejected", nil
}

func cmdListFriends(d *Dispatcher, callerID string, _ []string) (string, error) {
	users, err := d.friends.ListFriends(callerID)
	if err != nil {
		return "", err
	}
	return usernameCSV(users), nil
}

func cmdReceivedFriendRequests(d *Dispatcher, callerID string, _ []string) (string, error) {
	reqs, err := d.friends.ReceivedRequests(callerID)
	if err != nil {
		return "", err
	}
	return friendRequestList(d, reqs, true), nil
}

func cmdSentFriendRequests(d *Dispatcher, callerID string, _ []string) (string, error) {
	reqs, err := d.friends.SentRequests(callerID)
	if err != nil {
		return "", err
	}
	return friendRequestList(d, reqs, false), nil
}

func cmdHelp(_ *Dispatcher, _ string, _ []string) (string, error) {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return "Commands: " + strings.Join(names, " "), nil
}

func cmdQuit(_ *Dispatcher, _ string, _ []string) (string, error) {
	return "Bye", nil
}

func usernameCSV(users []models.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return strings.Join(names, ",")
}

// friendRequestList formats a batch of pending friend requests as a
// "|"-separated list of "<counterpart_username>:<message>" entries.
// fromPerspectiveOfReceiver selects which side of the request is the
// counterpart to display: the sender for received requests, the
// recipient for sent ones.
func friendRequestList(d *Dispatcher, reqs []models.FriendRequest, fromPerspectiveOfReceiver bool) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		counterpartID := r.ToUserID
		if fromPerspectiveOfReceiver {
			counterpartID = r.FromUserID
		}
		username := counterpartID
		if u, err := d.directory.FindByID(counterpartID); err == nil {
			username = u.Username
		}
		parts = append(parts, username+":"+r.Message)
	}
	return strings.Join(parts, "|")
}
