package protocol

import "fmt"

// ControlType identifies a control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01
	ControlPong  ControlType = 0x02
	ControlClose ControlType = 0x03
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// PingPong carries the sender's timestamp for round-trip measurement.
type PingPong struct {
	Timestamp uint64 // Unix milliseconds
}

// CloseMessage tells the peer the connection is going away.
type CloseMessage struct {
	Reason string
}

// EncodePing encodes a ping control payload.
func EncodePing(timestamp uint64) []byte {
	return encodePingPong(ControlPing, timestamp)
}

// EncodePong encodes a pong control payload.
func EncodePong(timestamp uint64) []byte {
	return encodePingPong(ControlPong, timestamp)
}

func encodePingPong(ct ControlType, timestamp uint64) []byte {
	e := NewEncoder()
	e.WriteByte(byte(ct))
	e.WriteUvarint(timestamp)
	return e.Bytes()
}

// EncodeClose encodes a close control payload.
func EncodeClose(reason string) []byte {
	e := NewEncoder()
	e.WriteByte(byte(ControlClose))
	e.WriteString(reason)
	return e.Bytes()
}

// DecodeControl decodes a control payload. The second return value is a
// *PingPong or *CloseMessage depending on the control type.
func DecodeControl(payload []byte) (ControlType, any, error) {
	d := NewDecoder(payload)

	b, err := d.ReadByte()
	if err != nil {
		return 0, nil, fmt.Errorf("control type: %w", err)
	}
	ct := ControlType(b)

	switch ct {
	case ControlPing, ControlPong:
		ts, err := d.ReadUvarint()
		if err != nil {
			return ct, nil, fmt.Errorf("control timestamp: %w", err)
		}
		return ct, &PingPong{Timestamp: ts}, nil

	case ControlClose:
		reason, err := d.ReadString()
		if err != nil {
			return ct, nil, fmt.Errorf("control reason: %w", err)
		}
		return ct, &CloseMessage{Reason: reason}, nil

	default:
		return ct, nil, fmt.Errorf("protocol: unknown control type 0x%02x", b)
	}
}
