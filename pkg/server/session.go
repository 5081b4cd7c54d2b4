package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-go/petal/pkg/dom"
	"github.com/petal-go/petal/pkg/protocol"
)

// Session owns one connected client: its WebSocket connection, its
// bound document, and the loops moving events in and patches out.
//
// All document access happens on the event loop goroutine; the read
// loop only decodes and queues.
type Session struct {
	ID string

	conn    *websocket.Conn
	doc     *dom.Document
	config  *SessionConfig
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	events chan *protocol.Event
	done   chan struct{}
	closed atomic.Bool

	// mu guards connection writes.
	mu sync.Mutex

	sendSeq    atomic.Uint64
	bytesSent  atomic.Uint64
	patchCount atomic.Uint64
	lastActive atomic.Int64

	// pending collects patches emitted while handling one event. The
	// batch flushes as a single frame when the handler returns.
	pending []dom.Patch

	onClose func(*Session)
}

// NewSession creates a session over an upgraded connection. The
// document is attached separately, once its sink can point at the
// session.
func NewSession(id string, conn *websocket.Conn, config *SessionConfig, logger *slog.Logger, metrics *Metrics) *Session {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		ID:      id,
		conn:    conn,
		config:  config,
		logger:  logger.With("session", id),
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		events:  make(chan *protocol.Event, config.MaxEventQueue),
		done:    make(chan struct{}),
	}
	s.touch()
	return s
}

// AttachDocument hands the session its bound document. The document's
// sink must already be wired to CollectPatch.
func (s *Session) AttachDocument(doc *dom.Document) {
	s.doc = doc
}

// CollectPatch is the document sink. Patches accumulate until the
// current event finishes, then flush as one frame.
func (s *Session) CollectPatch(p dom.Patch) {
	s.pending = append(s.pending, p)
}

// Start launches the session loops after the handshake.
func (s *Session) Start() {
	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}

// QueueEvent hands a decoded event to the event loop. It fails when
// the queue is full rather than blocking the read loop.
func (s *Session) QueueEvent(ev *protocol.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// LastActive returns the time of the last client activity.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Closed reports whether the session has shut down.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close tears the session down: the connection, the loops, and the
// document's bindings. Safe to call more than once.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	if s.doc != nil {
		s.doc.Close()
	}
	if s.onClose != nil {
		s.onClose(s)
	}

	s.logger.Info("session closed",
		"bytes_sent", s.bytesSent.Load(),
		"patches_sent", s.patchCount.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// handleEvent runs one client event through the document and flushes
// the resulting patches.
func (s *Session) handleEvent(pe *protocol.Event) {
	_, span := s.tracer.Start(eventContext(), "petal.event",
		trace.WithAttributes(eventAttributes(s.ID, pe)...))
	defer span.End()

	start := time.Now()

	err := s.dispatchEvent(pe)

	flushed := len(s.pending)
	if flushed > 0 {
		s.sendPatches(s.pending)
		s.pending = nil
	}

	s.metrics.observeEvent(pe.Type, err, time.Since(start), flushed)
	recordSpanResult(span, err, flushed)

	if err != nil {
		s.logger.Warn("event failed",
			"target", pe.Target, "type", pe.Type, "error", err)
		s.sendError(err.Error())
	}
}

// dispatchEvent runs the handler with a panic guard. A panicking
// handler expression must not take the whole session down; the client
// gets an error frame instead.
func (s *Session) dispatchEvent(pe *protocol.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.recordHandlerPanic()
			s.logger.Error("handler panic",
				"target", pe.Target, "type", pe.Type, "panic", r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return s.doc.HandleEvent(pe.Target, dom.Event{
		Type:    pe.Type,
		Value:   pe.Value,
		Checked: pe.Checked,
		Key:     pe.Key,
	})
}

// sendPatches writes the event's patches as sequenced frames. Batches
// too large for one frame are split; a client missing any part of the
// batch would render a permanently stale document, so an unsendable
// patch closes the session instead of being dropped.
func (s *Session) sendPatches(patches []dom.Patch) {
	pp := make([]protocol.Patch, len(patches))
	for i, p := range patches {
		pp[i] = toProtocolPatch(p)
	}

	chunks, err := splitPatchChunks(pp)
	if err != nil {
		s.logger.Error("unsendable patch batch", "error", err)
		go s.Close()
		return
	}

	for _, chunk := range chunks {
		pf := &protocol.PatchesFrame{
			Seq:     s.sendSeq.Add(1),
			Patches: chunk,
		}
		if !s.writeFrame(protocol.FramePatches, protocol.EncodePatches(pf)) {
			return
		}
		s.patchCount.Add(uint64(len(chunk)))
	}
}

// errPatchTooLarge marks a single patch whose encoding alone exceeds
// the frame payload limit.
var errPatchTooLarge = errors.New("server: patch exceeds frame payload limit")

// patchChunkLimit leaves room below MaxPayloadSize for the sequence
// varint, which is measured at its smallest when sizing chunks.
const patchChunkLimit = protocol.MaxPayloadSize - 16

// splitPatchChunks partitions patches into batches that each encode
// within the frame payload limit, preserving order.
func splitPatchChunks(patches []protocol.Patch) ([][]protocol.Patch, error) {
	size := len(protocol.EncodePatches(&protocol.PatchesFrame{Patches: patches}))
	if size <= patchChunkLimit {
		return [][]protocol.Patch{patches}, nil
	}
	if len(patches) == 1 {
		return nil, errPatchTooLarge
	}

	mid := len(patches) / 2
	left, err := splitPatchChunks(patches[:mid])
	if err != nil {
		return nil, err
	}
	right, err := splitPatchChunks(patches[mid:])
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

func (s *Session) sendError(message string) {
	e := protocol.NewEncoder()
	e.WriteString(message)
	s.writeFrame(protocol.FrameError, e.Bytes())
}

func (s *Session) sendPong(timestamp uint64) {
	s.writeFrame(protocol.FrameControl, protocol.EncodePong(timestamp))
}

func (s *Session) sendPing() bool {
	return s.writeFrame(protocol.FrameControl,
		protocol.EncodePing(uint64(time.Now().UnixMilli())))
}

// writeFrame encodes and writes a frame, reporting success. A write
// failure closes the session.
func (s *Session) writeFrame(ft protocol.FrameType, payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return false
	}

	frame := &protocol.Frame{Type: ft, Payload: payload}
	buf, err := frame.Encode()
	if err != nil {
		// Dropping a frame would leave the client out of sync.
		s.logger.Error("frame encode error", "type", ft, "error", err)
		go s.Close()
		return false
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		s.logger.Error("write error", "error", err)
		s.metrics.recordWebSocketError("write")
		go s.Close()
		return false
	}

	s.bytesSent.Add(uint64(len(buf)))
	if ft == protocol.FramePatches {
		s.metrics.recordPatchBytes(len(buf))
	}
	return true
}

// toProtocolPatch converts a document patch to its wire form.
func toProtocolPatch(p dom.Patch) protocol.Patch {
	return protocol.Patch{
		Op:       toProtocolOp(p.Op),
		Target:   p.Target,
		Key:      p.Key,
		Value:    p.Value,
		ParentID: p.ParentID,
		Index:    p.Index,
		Bool:     p.Bool,
	}
}

func toProtocolOp(op dom.PatchOp) protocol.PatchOp {
	switch op {
	case dom.PatchSetText:
		return protocol.PatchSetText
	case dom.PatchSetHTML:
		return protocol.PatchSetHTML
	case dom.PatchSetAttr:
		return protocol.PatchSetAttr
	case dom.PatchRemoveAttr:
		return protocol.PatchRemoveAttr
	case dom.PatchShowNode:
		return protocol.PatchShowNode
	case dom.PatchHideNode:
		return protocol.PatchHideNode
	case dom.PatchInsertNode:
		return protocol.PatchInsertNode
	case dom.PatchRemoveNode:
		return protocol.PatchRemoveNode
	case dom.PatchReplaceNode:
		return protocol.PatchReplaceNode
	case dom.PatchSetValue:
		return protocol.PatchSetValue
	case dom.PatchSetChecked:
		return protocol.PatchSetChecked
	default:
		return protocol.PatchSetText
	}
}
