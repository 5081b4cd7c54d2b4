package protocol

import "fmt"

// ProtocolVersion is the current wire protocol version. The server
// rejects handshakes from newer clients.
const ProtocolVersion = 1

// Handshake opens a session. The client sends one with an empty
// SessionID; the server replies with the assigned ID.
type Handshake struct {
	Version   uint64
	SessionID string
}

// EncodeHandshake encodes a handshake payload.
func EncodeHandshake(h *Handshake) []byte {
	e := NewEncoder()
	e.WriteUvarint(h.Version)
	e.WriteString(h.SessionID)
	return e.Bytes()
}

// DecodeHandshake decodes a handshake payload.
func DecodeHandshake(payload []byte) (*Handshake, error) {
	d := NewDecoder(payload)
	h := &Handshake{}
	var err error

	if h.Version, err = d.ReadUvarint(); err != nil {
		return nil, fmt.Errorf("handshake version: %w", err)
	}
	if h.SessionID, err = d.ReadString(); err != nil {
		return nil, fmt.Errorf("handshake session id: %w", err)
	}
	return h, nil
}
