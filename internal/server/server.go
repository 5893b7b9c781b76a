package server

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/stats"
)

const (
	StatActiveConnections       = "ActiveConnections"
	StatEvictedConnections      = "EvictedConnections"
	StatDirectMessagesDelivered = "DirectMessagesDelivered"
	StatGroupMessagesDelivered  = "GroupMessagesDelivered"
)

// dbTimeout bounds repository calls made from socket event handlers, which
// have no request context of their own.
const dbTimeout = 5 * time.Second

// Pusher delivers out-of-band notifications to a single recipient.
type Pusher interface {
	Notify(ctx context.Context, recipientId string, n push.Notification) (push.Result, error)
}

type ChatServer struct {
	log      *log.Logger
	db       database.Repository
	presence *PresenceRegistry
	pusher   Pusher
	stats    stats.StatsProvider

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewChatServer(logger *log.Logger, db database.Repository, presence *PresenceRegistry, pusher Pusher, sp stats.StatsProvider) *ChatServer {
	sp.RegisterMetric(StatActiveConnections)
	sp.RegisterMetric(StatEvictedConnections)
	sp.RegisterMetric(StatDirectMessagesDelivered)
	sp.RegisterMetric(StatGroupMessagesDelivered)

	return &ChatServer{
		log:      logger,
		db:       db,
		presence: presence,
		pusher:   pusher,
		stats:    sp,
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
	}
}

func (cs *ChatServer) Register(c *Client) {
	cs.mu.Lock()
	cs.clients[c] = struct{}{}
	cs.mu.Unlock()

	cs.stats.Incr(StatActiveConnections)
	cs.log.Printf("client %s connected for user %s", c.connId, c.user.Id)
}

// Deregister removes the client from the server, its rooms and, if its
// connection still owns the presence entry, the online set. An evicted
// client's deregistration leaves the newer connection's presence intact.
func (cs *ChatServer) Deregister(c *Client) {
	cs.mu.Lock()
	delete(cs.clients, c)
	for groupId, members := range cs.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(cs.rooms, groupId)
			}
		}
	}
	cs.mu.Unlock()

	cs.stats.Decr(StatActiveConnections)

	if cs.presence.Release(c.user.Id, c.connId) {
		cs.broadcastPresence(c)
	}
	cs.log.Printf("client %s disconnected for user %s", c.connId, c.user.Id)
}

func (cs *ChatServer) handleAnnounce(msg *ClientMessage) {
	evicted, changed := cs.presence.Announce(msg.UserId, msg.client.connId, msg.client)
	if evicted != nil {
		cs.log.Printf("evicting connection %s for user %s", evicted.connId, msg.UserId)
		cs.stats.Incr(StatEvictedConnections)
		evicted.stopClient()
	}

	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{
		"online_users": cs.presence.Snapshot(),
	}))

	if changed {
		cs.broadcastPresence(msg.client)
	}
}

// broadcastPresence sends the current online set to every connected client
// except skip.
func (cs *ChatServer) broadcastPresence(skip *Client) {
	note := notification(&Notification{
		OnlineUsers: &OnlineUsers{UserIds: cs.presence.Snapshot()},
	})

	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for c := range cs.clients {
		if c == skip {
			continue
		}
		c.queueMessage(note)
	}
}

func (cs *ChatServer) handleJoinRoom(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	group, err := cs.db.GetGroup(ctx, msg.JoinRoom.GroupId)
	if err != nil {
		cs.log.Printf("join room %q: %v", msg.JoinRoom.GroupId, err)
		msg.client.queueMessage(errResponse(msg.Id, err))
		return
	}

	if !slices.Contains(group.Members, msg.UserId) {
		msg.client.queueMessage(errResponse(msg.Id, ErrNotMember))
		return
	}

	cs.mu.Lock()
	members, ok := cs.rooms[group.Id]
	if !ok {
		members = make(map[*Client]struct{})
		cs.rooms[group.Id] = members
	}
	members[msg.client] = struct{}{}
	cs.mu.Unlock()

	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"group_id": group.Id}))
}

func (cs *ChatServer) handleLeaveRoom(msg *ClientMessage) {
	cs.removeFromRoom(msg.LeaveRoom.GroupId, msg.client)
	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"group_id": msg.LeaveRoom.GroupId}))
}

func (cs *ChatServer) removeFromRoom(groupId string, c *Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if members, ok := cs.rooms[groupId]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(cs.rooms, groupId)
		}
	}
}

// broadcastRoom fans a message out to every client subscribed to groupId,
// except skip. Returns the number of clients reached.
func (cs *ChatServer) broadcastRoom(groupId string, msg *ServerMessage, skip *Client) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var n int
	for c := range cs.rooms[groupId] {
		if c == skip {
			continue
		}
		if c.queueMessage(msg) {
			n++
		}
	}

	return n
}

// roomClients returns the clients currently subscribed to groupId.
func (cs *ChatServer) roomClients(groupId string) map[*Client]struct{} {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	members := make(map[*Client]struct{}, len(cs.rooms[groupId]))
	for c := range cs.rooms[groupId] {
		members[c] = struct{}{}
	}

	return members
}

// CloseRoom tears down a deleted group's room and tells its online members
// the group is gone.
func (cs *ChatServer) CloseRoom(groupId string, memberIds []string) {
	cs.mu.Lock()
	delete(cs.rooms, groupId)
	cs.mu.Unlock()

	note := notification(&Notification{
		GroupDeleted: &GroupDeleted{GroupId: groupId},
	})

	for _, userId := range memberIds {
		if c := cs.presence.ClientFor(userId); c != nil {
			c.queueMessage(note)
		}
	}
}

func (cs *ChatServer) Shutdown() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for c := range cs.clients {
		c.stopClient()
	}
	cs.log.Println("chat server shut down")
}
