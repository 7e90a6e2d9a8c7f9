package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Socket tunables. The wallet feed is low volume, so these lean toward
// patience over fast failure.
const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 10 * time.Second
	wsReadTimeout      = 60 * time.Second
	wsPingInterval     = 30 * time.Second
	wsSubscribeTimeout = 30 * time.Second
	wsReconnectBase    = 1 * time.Second
	wsReconnectMax     = 30 * time.Second

	// Dispatch blocks rather than drop a notification; the buffer only
	// absorbs bursts while the handler is busy parsing.
	wsNotifyBuffer = 10000
)

// logsSub is one live subscription: the filter to replay after a
// reconnect and the channel the consumer reads.
type logsSub struct {
	filter LogsFilter
	ch     chan LogNotification
}

// WSConn is the gorilla/websocket implementation of WSClient. It keeps
// one connection to the RPC node, reconnects with exponential backoff
// and replays every live subscription on the fresh socket.
type WSConn struct {
	endpoint string
	log      zerolog.Logger

	mu   sync.Mutex // guards conn
	conn *websocket.Conn

	closed       atomic.Bool
	reconnecting atomic.Bool
	nextReq      atomic.Uint64

	// subMu guards subs (by granted subscription id) and waiting
	// (confirmation channels by request id).
	subMu   sync.Mutex
	subs    map[int64]*logsSub
	waiting map[uint64]chan int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient dials the endpoint and starts the read and keepalive
// loops.
func NewWSClient(ctx context.Context, endpoint string, log zerolog.Logger) (*WSConn, error) {
	c := &WSConn{
		endpoint: endpoint,
		log:      log.With().Str("component", "solana_ws").Logger(),
		subs:     make(map[int64]*logsSub),
		waiting:  make(map[uint64]chan int64),
		done:     make(chan struct{}),
	}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

func (c *WSConn) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// SubscribeLogs subscribes to log notifications mentioning the filter's
// addresses. The returned channel stays valid across reconnects and is
// closed by Close.
func (c *WSConn) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	subID, err := c.requestSubscription(ctx, filter)
	if err != nil {
		return nil, err
	}

	ch := make(chan LogNotification, wsNotifyBuffer)
	c.subMu.Lock()
	c.subs[subID] = &logsSub{filter: filter, ch: ch}
	c.subMu.Unlock()
	return ch, nil
}

// requestSubscription sends logsSubscribe and waits for the node to
// grant a subscription id.
func (c *WSConn) requestSubscription(ctx context.Context, filter LogsFilter) (int64, error) {
	if c.closed.Load() {
		return 0, errors.New("client closed")
	}

	reqID := c.nextReq.Add(1)
	confirm := make(chan int64, 1)
	c.subMu.Lock()
	c.waiting[reqID] = confirm
	c.subMu.Unlock()
	forget := func() {
		c.subMu.Lock()
		delete(c.waiting, reqID)
		c.subMu.Unlock()
	}

	var scope any = "all"
	if len(filter.Mentions) > 0 {
		scope = map[string]any{"mentions": filter.Mentions}
	}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params:  []any{scope, map[string]string{"commitment": "confirmed"}},
	}
	if err := c.writeJSON(req); err != nil {
		forget()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirm:
		if subID == 0 {
			return 0, errors.New("client closed")
		}
		return subID, nil
	case <-time.After(wsSubscribeTimeout):
		forget()
		return 0, fmt.Errorf("no subscribe confirmation within %s", wsSubscribeTimeout)
	case <-c.done:
		return 0, errors.New("client closed")
	case <-ctx.Done():
		forget()
		return 0, ctx.Err()
	}
}

func (c *WSConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// Close shuts the connection down and closes every subscription
// channel. Idempotent.
func (c *WSConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.mu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.mu.Unlock()

	c.subMu.Lock()
	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	for id, ch := range c.waiting {
		close(ch)
		delete(c.waiting, id)
	}
	c.subMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop pumps messages off the socket. A read error kicks off one
// reconnect attempt at the current backoff and keeps polling; the
// backoff resets on the first successful read.
func (c *WSConn) readLoop() {
	defer c.wg.Done()

	delay := wsReconnectBase
	for !c.closed.Load() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			if !c.pause() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if !c.reconnecting.Swap(true) {
				go c.reconnect(delay)
			}
			delay *= 2
			if delay > wsReconnectMax {
				delay = wsReconnectMax
			}
			if !c.pause() {
				return
			}
			continue
		}

		delay = wsReconnectBase
		c.handleMessage(message)
	}
}

// pause waits a beat between read attempts on a broken connection.
// Reports false when the client is shutting down.
func (c *WSConn) pause() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(100 * time.Millisecond):
		return true
	}
}

func (c *WSConn) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)
	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.dial(ctx); err != nil {
		c.log.Warn().Err(err).Msg("reconnect failed, retrying on next read error")
		return
	}
	c.log.Info().Msg("websocket reconnected")

	c.resubscribe()
}

// resubscribe replays every live filter on the fresh connection and
// re-keys the subscription map to the newly granted ids. Consumers keep
// their channels; a filter that fails to replay keeps its old mapping
// and is retried on the next reconnect.
func (c *WSConn) resubscribe() {
	c.subMu.Lock()
	live := make(map[int64]*logsSub, len(c.subs))
	for id, sub := range c.subs {
		live[id] = sub
	}
	c.subMu.Unlock()

	for oldID, sub := range live {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.requestSubscription(ctx, sub.filter)
		cancel()
		if err != nil {
			c.log.Warn().Err(err).Int64("subscription", oldID).Msg("resubscribe failed")
			continue
		}
		c.subMu.Lock()
		delete(c.subs, oldID)
		c.subs[newID] = sub
		c.subMu.Unlock()
	}
}

// handleMessage triages one frame: subscription grant, logs
// notification, or an RPC error response.
func (c *WSConn) handleMessage(message []byte) {
	var grant wsSubscribeResponse
	if err := json.Unmarshal(message, &grant); err == nil && grant.Result > 0 {
		c.confirm(grant.ID, grant.Result)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		c.dispatch(&notif)
		return
	}

	var fail wsErrorResponse
	if err := json.Unmarshal(message, &fail); err == nil && fail.Error != nil {
		c.log.Warn().Int("code", fail.Error.Code).Str("msg", fail.Error.Message).
			Msg("websocket error response")
	}
}

func (c *WSConn) confirm(reqID uint64, subID int64) {
	c.subMu.Lock()
	ch, ok := c.waiting[reqID]
	if ok {
		delete(c.waiting, reqID)
	}
	c.subMu.Unlock()

	if ok {
		select {
		case ch <- subID:
		default:
		}
	}
}

func (c *WSConn) dispatch(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	out := LogNotification{
		Signature: notif.Params.Result.Value.Signature,
		Logs:      notif.Params.Result.Value.Logs,
		Err:       notif.Params.Result.Value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}

	c.subMu.Lock()
	sub, ok := c.subs[notif.Params.Subscription]
	c.subMu.Unlock()
	if !ok {
		return
	}

	select {
	case sub.ch <- out:
	case <-c.done:
	}
}

// pingLoop keeps the connection alive through provider idle timeouts.
// A failed ping is left for the read loop to notice.
func (c *WSConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.mu.Unlock()
		}
	}
}

// Wire shapes for the logsSubscribe RPC.

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // granted subscription id
}

type wsErrorResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string   `json:"signature"`
	Logs      []string `json:"logs"`
	Err       any      `json:"err"`
}
