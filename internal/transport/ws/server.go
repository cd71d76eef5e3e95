package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"blockevo.ai/internal/protocol"
	"blockevo.ai/internal/sim/encoding"
	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
	"blockevo.ai/internal/sink"
)

const (
	maxFillVolume = 1 << 24
	maxReadVolume = 1 << 21
	outQueue      = 16
)

// Server exposes a memory world over the websocket protocol.
type Server struct {
	world *sink.Memory
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *sink.Memory, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session, client := s.handshake(conn)
		if session == "" {
			return
		}
		s.logf("session %s open client=%s remote=%s", session, client, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, outQueue)

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		requests := 0
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			requests++
			resp := s.handle(ctx, msg)
			b, err := json.Marshal(resp)
			if err != nil {
				break
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-done
		s.logf("session %s closed requests=%d", session, requests)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (session, client string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", ""
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, errorMsg(0, protocol.ErrProtoVersion, fmt.Sprintf("unsupported protocol_version %q", hello.ProtocolVersion)))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", ""
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		Palette:         voxel.Palette(),
		Orientations:    orientationNames(),
	}
	if b := s.world.Bounds(); b != nil {
		welcome.Bounds = &protocol.BoxRef{Min: b.Min.ToArray(), Max: b.Max.ToArray()}
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", ""
	}
	return welcome.SessionID, hello.ClientName
}

// handle answers one request. Every request gets exactly one response.
func (s *Server) handle(ctx context.Context, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg(0, protocol.ErrProtoBadRequest, "malformed json")
	}
	if base.ProtocolVersion != protocol.Version {
		return errorMsg(base.Seq, protocol.ErrProtoVersion, fmt.Sprintf("unsupported protocol_version %q", base.ProtocolVersion))
	}

	switch base.Type {
	case protocol.TypeSpawnBlocks:
		var req protocol.SpawnBlocksMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return errorMsg(base.Seq, protocol.ErrProtoBadRequest, err.Error())
		}
		ps := make([]sink.Placement, 0, len(req.Blocks))
		for i, b := range req.Blocks {
			kind, err := voxel.ParseKind(b.Kind)
			if err != nil {
				return errorMsg(req.Seq, protocol.ErrUnknownKind, fmt.Sprintf("blocks[%d]: %v", i, err))
			}
			facing, err := orient.ParseAbsolute(b.Orientation)
			if err != nil {
				return errorMsg(req.Seq, protocol.ErrOrientation, fmt.Sprintf("blocks[%d]: %v", i, err))
			}
			ps = append(ps, sink.Placement{Pos: voxel.FromArray(b.Pos), Facing: facing, Kind: kind})
		}
		return ack(req.Seq, s.world.Apply(ps))

	case protocol.TypeFillCube:
		var req protocol.FillCubeMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return errorMsg(base.Seq, protocol.ErrProtoBadRequest, err.Error())
		}
		kind, err := voxel.ParseKind(req.Kind)
		if err != nil {
			return errorMsg(req.Seq, protocol.ErrUnknownKind, err.Error())
		}
		box := voxel.NewBox(voxel.FromArray(req.Min), voxel.FromArray(req.Max))
		vol, ok := box.VolumeChecked()
		if !ok || vol > maxFillVolume {
			return errorMsg(req.Seq, protocol.ErrTooLarge, fmt.Sprintf("fill box %v..%v exceeds %d cells", box.Min, box.Max, maxFillVolume))
		}
		if err := s.world.Fill(ctx, box, kind); err != nil {
			return errorMsg(req.Seq, protocol.ErrInternal, err.Error())
		}
		return ack(req.Seq, vol)

	case protocol.TypeReadCube:
		var req protocol.ReadCubeMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return errorMsg(base.Seq, protocol.ErrProtoBadRequest, err.Error())
		}
		box := voxel.NewBox(voxel.FromArray(req.Min), voxel.FromArray(req.Max))
		if vol, ok := box.VolumeChecked(); !ok || vol > maxReadVolume {
			return errorMsg(req.Seq, protocol.ErrTooLarge, fmt.Sprintf("read box %v..%v exceeds %d cells", box.Min, box.Max, maxReadVolume))
		}
		return protocol.CubeMsg{
			Type:            protocol.TypeCube,
			ProtocolVersion: protocol.Version,
			Seq:             req.Seq,
			Min:             box.Min.ToArray(),
			Max:             box.Max.ToArray(),
			Palette:         voxel.Palette(),
			Encoding:        protocol.EncodingRLE,
			Data:            encoding.EncodeRLE(s.world.Cube(box)),
		}

	case protocol.TypeHello:
		return errorMsg(base.Seq, protocol.ErrProtoHandshake, "already greeted")
	default:
		return errorMsg(base.Seq, protocol.ErrBadRequest, fmt.Sprintf("unknown message type %q", base.Type))
	}
}

func ack(seq uint64, applied int) protocol.AckMsg {
	return protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, Seq: seq, Applied: applied}
}

func errorMsg(seq uint64, code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Seq: seq, Code: code, Message: message}
}

func orientationNames() []string {
	out := make([]string, 0, orient.NumDirections)
	for _, a := range orient.Absolutes {
		out = append(out, a.String())
	}
	return out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
