package wsrpc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bcspragu/Codewords"
	"github.com/gorilla/websocket"
)

// Client is a store whose reads and writes travel over a single websocket
// to a Server. Calls are safe to make concurrently; replies are matched back
// to callers by request ID.
type Client struct {
	ws *websocket.Conn

	// Guards writes; gorilla allows only one concurrent writer.
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan *response

	done    chan struct{}
	readErr error // set once, before done is closed
}

// Dial connects to a Server at a ws:// or wss:// URL.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store server: %w", err)
	}

	c := &Client{
		ws:      ws,
		pending: make(map[uint64]chan *response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	for {
		var resp response
		if err := c.ws.ReadJSON(&resp); err != nil {
			c.readErr = err
			close(c.done)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

// Close tears down the connection. In-flight calls fail.
func (c *Client) Close() error {
	c.writeMu.Lock()
	// Best effort goodbye so the server logs a clean close.
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

func (c *Client) CreateRoom(ctx context.Context, rm *codewords.Room) error {
	resp, err := c.call(ctx, &request{Op: opCreate, Room: rm})
	if err != nil {
		return err
	}
	return fromWire(resp.ErrCode, resp.ErrMsg)
}

func (c *Client) Room(ctx context.Context, code string) (*codewords.Room, error) {
	resp, err := c.call(ctx, &request{Op: opGet, Code: code})
	if err != nil {
		return nil, err
	}
	if err := fromWire(resp.ErrCode, resp.ErrMsg); err != nil {
		return nil, err
	}
	if resp.Room == nil {
		return nil, fmt.Errorf("wsrpc: %s reply carried no room", opGet)
	}
	return resp.Room, nil
}

func (c *Client) UpdateRoom(ctx context.Context, rm *codewords.Room, fromVersion int64) error {
	resp, err := c.call(ctx, &request{Op: opUpdate, Room: rm, FromVersion: fromVersion})
	if err != nil {
		return err
	}
	return fromWire(resp.ErrCode, resp.ErrMsg)
}

func (c *Client) call(ctx context.Context, req *request) (*response, error) {
	ch := make(chan *response, 1)

	c.mu.Lock()
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.ws.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return nil, fmt.Errorf("failed to send %s: %w", req.Op, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	case <-c.done:
		c.forget(req.ID)
		return nil, fmt.Errorf("store connection lost: %w", c.readErr)
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
