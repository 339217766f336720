package graph

import (
	"encoding/json"
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// FileLocation is a position reported by the compiler.
type FileLocation struct {
	Name string `json:"file" msgpack:"file"`
	Row  int    `json:"row" msgpack:"row"`
	Col  int    `json:"col" msgpack:"col"`
}

// String formats the location as file:row:col.
func (l FileLocation) String() string {
	if l.Name == "" && l.Row == 0 && l.Col == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.Name, l.Row, l.Col)
}

// SameLine reports whether both locations point into the same row of the same file.
func (l FileLocation) SameLine(other FileLocation) bool {
	return l.Name == other.Name && l.Row == other.Row
}

// ErrNegativePosition is returned for a location with a negative row or column.
var ErrNegativePosition = errors.New("negative row or column")

// Validate rejects locations that no encoding can carry.
func (l FileLocation) Validate() error {
	if l.Row < 0 || l.Col < 0 {
		return fmt.Errorf("%w: %d:%d", ErrNegativePosition, l.Row, l.Col)
	}
	return nil
}

type plainLocation FileLocation

// MarshalJSON encodes the location as {"file","row","col"}.
func (l FileLocation) MarshalJSON() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(plainLocation(l))
}

// UnmarshalJSON decodes and validates a location.
func (l *FileLocation) UnmarshalJSON(data []byte) error {
	var p plainLocation
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := FileLocation(p).Validate(); err != nil {
		return err
	}
	*l = FileLocation(p)
	return nil
}

// EncodeMsgpack writes the location as a compact [file, row, col] array.
func (l FileLocation) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := l.Validate(); err != nil {
		return err
	}
	row, err := safecast.Conv[uint32](l.Row)
	if err != nil {
		return fmt.Errorf("row %d: %w", l.Row, err)
	}
	col, err := safecast.Conv[uint32](l.Col)
	if err != nil {
		return fmt.Errorf("col %d: %w", l.Col, err)
	}
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeString(l.Name); err != nil {
		return err
	}
	if err := enc.EncodeUint32(row); err != nil {
		return err
	}
	return enc.EncodeUint32(col)
}

// DecodeMsgpack reads a location written by EncodeMsgpack.
func (l *FileLocation) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 3 {
		return fmt.Errorf("file location: expected 3 fields, got %d", n)
	}
	name, err := dec.DecodeString()
	if err != nil {
		return err
	}
	row, err := dec.DecodeUint32()
	if err != nil {
		return err
	}
	col, err := dec.DecodeUint32()
	if err != nil {
		return err
	}
	r, err := safecast.Conv[int](row)
	if err != nil {
		return err
	}
	c, err := safecast.Conv[int](col)
	if err != nil {
		return err
	}
	*l = FileLocation{Name: name, Row: r, Col: c}
	return nil
}
