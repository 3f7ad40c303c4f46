package gateway

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/commhub/chatserver/internal/chat"
	"github.com/commhub/chatserver/internal/stats"
	"github.com/commhub/chatserver/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type Client struct {
	conn    *websocket.Conn
	gateway *Gateway
	log     *log.Logger
	user    types.User
	send    chan *ServerMessage
	stop    chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, g *Gateway, l *log.Logger) *Client {
	return &Client{
		conn:    conn,
		gateway: g,
		log:     l,
		user:    user,
		send:    make(chan *ServerMessage, 256),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.Timestamp = chat.Now()

		c.dispatch(&msg)
	}
}

// dispatch routes an inbound frame to its handler. Every mutation goes
// through the chat service, so a socket caller is held to the same
// validation and authorization as the matching HTTP endpoint.
func (c *Client) dispatch(msg *ClientMessage) {
	switch {
	case msg.JoinConversation != nil:
		c.joinConversation(msg)
	case msg.HubMessage != nil:
		if _, err := c.gateway.chat.CreateHubMessage(c.user, msg.HubMessage.Content); err != nil {
			c.queueMessage(errFromService(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id))
	case msg.HubMessageUpdate != nil:
		if _, err := c.gateway.chat.UpdateHubMessage(c.user, msg.HubMessageUpdate.MessageId, msg.HubMessageUpdate.Content); err != nil {
			c.queueMessage(errFromService(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id))
	case msg.HubMessageDelete != nil:
		if err := c.gateway.chat.DeleteHubMessage(c.user, msg.HubMessageDelete.MessageId); err != nil {
			c.queueMessage(errFromService(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id))
	case msg.DirectMessage != nil:
		if _, err := c.gateway.chat.SendDirectMessage(c.user, msg.DirectMessage.ReceiverId, msg.DirectMessage.Content); err != nil {
			c.queueMessage(errFromService(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id))
	case msg.DirectMessageUpdate != nil:
		if _, err := c.gateway.chat.UpdateDirectMessage(c.user, msg.DirectMessageUpdate.MessageId, msg.DirectMessageUpdate.Content); err != nil {
			c.queueMessage(errFromService(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id))
	case msg.DirectMessageDelete != nil:
		if err := c.gateway.chat.DeleteDirectMessage(c.user, msg.DirectMessageDelete.MessageId); err != nil {
			c.queueMessage(errFromService(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id))
	case msg.NotificationRead != nil:
		c.markNotificationRead(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

// joinConversation subscribes the client to the channel shared with the
// named counterpart so it receives that conversation's events live.
func (c *Client) joinConversation(msg *ClientMessage) {
	if msg.JoinConversation.UserId == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	channel := ConversationChannel(c.user.Id, msg.JoinConversation.UserId)
	select {
	case c.gateway.subChan <- subscription{client: c, channel: channel}:
	default:
		c.log.Println("subscription queue full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
		return
	}

	c.gateway.stats.Incr(stats.MetricConversationsJoined)
	c.queueMessage(NoErrOK(msg.Id, map[string]any{"channel": channel}))
}

// markNotificationRead flips the flag, then pushes the refreshed
// notification list back on this connection only. Other connections
// learn about it next time they sync.
func (c *Client) markNotificationRead(msg *ClientMessage) {
	if err := c.gateway.chat.MarkNotificationRead(c.user, msg.NotificationRead.NotificationId); err != nil {
		c.queueMessage(errFromService(msg.Id, err))
		return
	}
	c.gateway.stats.Incr(stats.MetricNotificationReadSyncs)

	notifications, _, err := c.gateway.chat.ListNotifications(c.user, "", 1, 0)
	if err != nil {
		c.log.Println("refresh notifications:", err)
		c.queueMessage(NoErrAccepted(msg.Id))
		return
	}

	unread, err := c.gateway.chat.UnreadNotificationCount(c.user.Id)
	if err != nil {
		c.log.Println("unread notification count:", err)
		c.queueMessage(NoErrAccepted(msg.Id))
		return
	}

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: chat.Now()},
		Event: &types.Event{NotificationList: &types.NotificationListPayload{
			Notifications: notifications,
			Unread:        unread,
		}},
	})
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	close(c.stop)
}

func (c *Client) cleanup() {
	// the run loop may already be gone at shutdown; never block on it
	select {
	case c.gateway.deRegisterChan <- c:
	case <-c.gateway.done:
	}

	select {
	case <-c.stop:
	default:
		c.stopClient()
	}
}
