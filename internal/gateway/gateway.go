package gateway

import (
	"context"
	"log"

	"github.com/commhub/chatserver/internal/chat"
	"github.com/commhub/chatserver/internal/stats"
	"github.com/commhub/chatserver/internal/types"
)

// Channel name constructors. Clients never pick channel names; they are
// derived from ids so membership is deterministic.
func UserChannel(userId string) string {
	return "user:" + userId
}

func RoomChannel(roomId string) string {
	return "room:" + roomId
}

// ConversationChannel names the shared channel for a user pair. The pair
// is sorted so both ends derive the same name regardless of who joined
// first.
func ConversationChannel(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "dm:" + userA + ":" + userB
}

type subscription struct {
	client  *Client
	channel string
	leave   bool
}

type broadcast struct {
	channel string
	msg     *ServerMessage
}

// Gateway owns every websocket client and their channel subscriptions.
// All membership state is confined to the Run goroutine; other
// goroutines talk to it exclusively over channels.
type Gateway struct {
	log   *log.Logger
	chat  *chat.Service
	stats stats.StatsProvider

	clients  map[*Client]struct{}
	channels map[string]map[*Client]struct{}

	RegisterChan   chan *Client
	deRegisterChan chan *Client
	subChan        chan subscription
	broadcastChan  chan broadcast

	stop chan struct{}
	done chan struct{}
}

func NewGateway(logger *log.Logger, chatService *chat.Service, statsProvider stats.StatsProvider) *Gateway {
	statsProvider.RegisterMetric(stats.MetricActiveConnections)
	statsProvider.RegisterMetric(stats.MetricConversationsJoined)
	statsProvider.RegisterMetric(stats.MetricBroadcastsDropped)
	statsProvider.RegisterMetric(stats.MetricNotificationReadSyncs)

	return &Gateway{
		log:            logger,
		chat:           chatService,
		stats:          statsProvider,
		clients:        make(map[*Client]struct{}),
		channels:       make(map[string]map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		subChan:        make(chan subscription, 256),
		broadcastChan:  make(chan broadcast, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (g *Gateway) Run() {
	for {
		select {
		case client := <-g.RegisterChan:
			g.log.Printf("adding connection from %q", client.user.Username)
			g.addClient(client)
		case client := <-g.deRegisterChan:
			g.log.Printf("removing connection from %q", client.user.Username)
			g.removeClient(client)
		case sub := <-g.subChan:
			if sub.leave {
				g.unsubscribe(sub.client, sub.channel)
			} else {
				g.subscribe(sub.client, sub.channel)
			}
		case b := <-g.broadcastChan:
			g.deliver(b.channel, b.msg)
		case <-g.stop:
			g.log.Println("closing client connections")
			for c := range g.clients {
				c.stopClient()
			}
			close(g.done)
			return
		}
	}
}

// Shutdown stops the run loop and waits for it to drain, bounded by ctx.
func (g *Gateway) Shutdown(ctx context.Context) error {
	close(g.stop)

	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// addClient registers the connection and subscribes it to its personal
// channel and the hub room channel. Hub membership is established as a
// side effect, the same as sending or reading would.
func (g *Gateway) addClient(c *Client) {
	g.clients[c] = struct{}{}
	g.stats.Incr(stats.MetricActiveConnections)

	g.subscribe(c, UserChannel(c.user.Id))

	room, err := g.chat.GetHubRoom()
	if err != nil {
		g.log.Println("hub room unavailable on connect:", err)
		c.queueMessage(errFromService(-1, err))
		return
	}
	if _, err := g.chat.AddUserToRoom(c.user.Id, room.Id); err != nil {
		g.log.Println("hub join on connect:", err)
		c.queueMessage(ErrInternalError(-1))
		return
	}

	g.subscribe(c, RoomChannel(room.Id))
}

func (g *Gateway) removeClient(c *Client) {
	if _, ok := g.clients[c]; !ok {
		return
	}

	delete(g.clients, c)
	g.stats.Decr(stats.MetricActiveConnections)

	for name, members := range g.channels {
		delete(members, c)
		if len(members) == 0 {
			delete(g.channels, name)
		}
	}
}

func (g *Gateway) subscribe(c *Client, channel string) {
	members, ok := g.channels[channel]
	if !ok {
		members = make(map[*Client]struct{})
		g.channels[channel] = members
	}
	members[c] = struct{}{}
}

func (g *Gateway) unsubscribe(c *Client, channel string) {
	members, ok := g.channels[channel]
	if !ok {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(g.channels, channel)
	}
}

func (g *Gateway) deliver(channel string, msg *ServerMessage) {
	for c := range g.channels[channel] {
		c.queueMessage(msg)
	}
}

// ToUser, ToRoom and ToConversation satisfy chat.Broadcaster. Pushes are
// best-effort; a full broadcast queue drops the event rather than block
// the mutation that produced it.
func (g *Gateway) ToUser(userId string, ev types.Event) {
	g.push(UserChannel(userId), ev)
}

func (g *Gateway) ToRoom(roomId string, ev types.Event) {
	g.push(RoomChannel(roomId), ev)
}

func (g *Gateway) ToConversation(userA, userB string, ev types.Event) {
	g.push(ConversationChannel(userA, userB), ev)
}

func (g *Gateway) push(channel string, ev types.Event) {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: chat.Now()},
		Event:       &ev,
	}

	select {
	case g.broadcastChan <- broadcast{channel: channel, msg: msg}:
	default:
		g.stats.Incr(stats.MetricBroadcastsDropped)
		g.log.Printf("broadcast queue full, dropping event for %q", channel)
	}
}
