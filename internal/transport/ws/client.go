package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blockevo.ai/internal/protocol"
	"blockevo.ai/internal/sim/encoding"
	"blockevo.ai/internal/sim/voxel"
	"blockevo.ai/internal/sink"
)

// ErrRemote matches every error reported by the world server.
var ErrRemote = errors.New("ws: remote error")

// RemoteError is an ERROR response. It is never retried.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ws: remote %s: %s", e.Code, e.Message)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

type Options struct {
	URL        string
	ClientName string
	RunID      string

	// RetryAttempts bounds tries per request, the first one included.
	RetryAttempts int
	// RetryBackoff is the wait before the second try; it doubles after each failure.
	RetryBackoff time.Duration
	// Timeout bounds each round trip when ctx carries no earlier deadline.
	Timeout time.Duration

	Dialer *websocket.Dialer
}

// Client is a WorldSink talking to a remote world. Paint only queues; Flush,
// Fill and Snapshot each cost one round trip. A broken connection is
// redialed on the next try.
type Client struct {
	sink.Buffer

	opts Options
	log  *log.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	seq     uint64
	session string
	bounds  *voxel.Box
	closed  bool
}

var _ sink.WorldSink = (*Client)(nil)

// Dial connects and completes the handshake.
func Dial(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ClientName == "" {
		opts.ClientName = "evolve"
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	c := &Client{opts: opts, log: logger}
	err := c.retry(ctx, "dial", func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.connectLocked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// Session is the id the server assigned in WELCOME.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Bounds is the world border the server announced, if any.
func (c *Client) Bounds() *voxel.Box {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounds == nil {
		return nil
	}
	b := *c.bounds
	return &b
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Flush sends everything queued as one SPAWN_BLOCKS. On failure the batch is
// put back in the queue so a later Flush can deliver it.
func (c *Client) Flush(ctx context.Context) error {
	batch := c.Drain()
	if len(batch) == 0 {
		return nil
	}
	blocks := make([]protocol.Placement, len(batch))
	for i, p := range batch {
		blocks[i] = protocol.Placement{Pos: p.Pos.ToArray(), Kind: p.Kind.String(), Orientation: p.Facing.String()}
	}
	err := c.retry(ctx, "flush", func() error {
		_, err := c.roundTrip(ctx, func(seq uint64) any {
			return protocol.SpawnBlocksMsg{Type: protocol.TypeSpawnBlocks, ProtocolVersion: protocol.Version, Seq: seq, Blocks: blocks}
		})
		return err
	})
	if err != nil {
		c.Requeue(batch)
		return fmt.Errorf("ws: flush %d blocks: %w", len(batch), err)
	}
	return nil
}

func (c *Client) Fill(ctx context.Context, box voxel.Box, kind voxel.Kind) error {
	err := c.retry(ctx, "fill", func() error {
		_, err := c.roundTrip(ctx, func(seq uint64) any {
			return protocol.FillCubeMsg{
				Type: protocol.TypeFillCube, ProtocolVersion: protocol.Version, Seq: seq,
				Min: box.Min.ToArray(), Max: box.Max.ToArray(), Kind: kind.String(),
			}
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("ws: fill %v..%v: %w", box.Min, box.Max, err)
	}
	return nil
}

func (c *Client) Snapshot(ctx context.Context, box voxel.Box) (map[voxel.Vec3i]voxel.Kind, error) {
	var cube protocol.CubeMsg
	err := c.retry(ctx, "snapshot", func() error {
		raw, err := c.roundTrip(ctx, func(seq uint64) any {
			return protocol.ReadCubeMsg{
				Type: protocol.TypeReadCube, ProtocolVersion: protocol.Version, Seq: seq,
				Min: box.Min.ToArray(), Max: box.Max.ToArray(),
			}
		})
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &cube)
	})
	if err != nil {
		return nil, fmt.Errorf("ws: snapshot %v..%v: %w", box.Min, box.Max, err)
	}
	if cube.Type != protocol.TypeCube || cube.Encoding != protocol.EncodingRLE {
		return nil, fmt.Errorf("ws: snapshot: unexpected reply %s/%s", cube.Type, cube.Encoding)
	}
	got := voxel.NewBox(voxel.FromArray(cube.Min), voxel.FromArray(cube.Max))
	vol, ok := got.VolumeChecked()
	if !ok || vol > maxReadVolume {
		return nil, fmt.Errorf("ws: snapshot: reply box %v..%v exceeds %d cells", got.Min, got.Max, maxReadVolume)
	}
	ids, err := encoding.DecodeRLE(cube.Data, vol)
	if err != nil {
		return nil, fmt.Errorf("ws: snapshot: %w", err)
	}
	out := map[voxel.Vec3i]voxel.Kind{}
	for i, id := range ids {
		if int(id) >= len(cube.Palette) {
			continue
		}
		kind, err := voxel.ParseKind(cube.Palette[id])
		if err != nil || kind == voxel.Air {
			continue
		}
		out[got.At(i)] = kind
	}
	return out, nil
}

// retry runs fn up to RetryAttempts times with doubling backoff. Remote
// errors, sink.ErrClosed and context errors end it early.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	backoff := c.opts.RetryBackoff
	var err error
	for attempt := 1; attempt <= c.opts.RetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, ErrRemote) || errors.Is(err, sink.ErrClosed) || ctx.Err() != nil {
			return err
		}
		if attempt == c.opts.RetryAttempts {
			break
		}
		c.logf("%s: attempt %d/%d failed: %v", op, attempt, c.opts.RetryAttempts, err)
		if backoff > 0 {
			t := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			backoff *= 2
		}
	}
	return err
}

// roundTrip sends one request and waits for the reply carrying its seq.
func (c *Client) roundTrip(ctx context.Context, build func(seq uint64) any) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, sink.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	conn := c.conn
	c.seq++
	seq := c.seq

	deadline := time.Now().Add(c.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	raw, err := c.exchangeLocked(conn, build(seq), seq, deadline)
	if err != nil {
		var remote *RemoteError
		if !errors.As(err, &remote) {
			c.dropLocked()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}
		return nil, err
	}
	return raw, nil
}

func (c *Client) exchangeLocked(conn *websocket.Conn, req any, seq uint64, deadline time.Time) ([]byte, error) {
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(req); err != nil {
		return nil, err
	}
	for {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Seq != seq && !(base.Type == protocol.TypeError && base.Seq == 0) {
			continue
		}
		if base.Type == protocol.TypeError {
			return nil, decodeRemote(msg)
		}
		return msg, nil
	}
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.closed {
		return sink.ErrClosed
	}
	dctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	conn, _, err := c.opts.Dialer.DialContext(dctx, c.opts.URL, nil)
	if err != nil {
		return err
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      c.opts.ClientName,
		RunID:           c.opts.RunID,
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.Timeout))
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return fmt.Errorf("send HELLO: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.Timeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return fmt.Errorf("read WELCOME: %w", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read WELCOME: %w", err)
	}
	switch base.Type {
	case protocol.TypeWelcome:
	case protocol.TypeError:
		conn.Close()
		return decodeRemote(msg)
	default:
		conn.Close()
		return fmt.Errorf("expected WELCOME, got %q", base.Type)
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &w); err != nil {
		conn.Close()
		return fmt.Errorf("read WELCOME: %w", err)
	}
	c.conn = conn
	c.session = w.SessionID
	c.bounds = nil
	if w.Bounds != nil {
		b := voxel.NewBox(voxel.FromArray(w.Bounds.Min), voxel.FromArray(w.Bounds.Max))
		c.bounds = &b
	}
	c.logf("connected %s session=%s", c.opts.URL, w.SessionID)
	return nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func decodeRemote(msg []byte) error {
	var e protocol.ErrorMsg
	if err := json.Unmarshal(msg, &e); err != nil {
		return fmt.Errorf("read ERROR: %w", err)
	}
	return &RemoteError{Code: e.Code, Message: e.Message}
}
