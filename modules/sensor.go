package modules

import (
	"strconv"
	"strings"

	"github.com/frappy-project/frappy-core/datatype"
	"github.com/frappy-project/frappy-core/module"
	"github.com/frappy-project/frappy-core/secoperr"
	"github.com/frappy-project/frappy-core/stream"
)

// StreamSensor is a Readable backed by a line-oriented hardware
// connection: reading "value" sends a query string and parses the
// numeric reply (spec.md §4.F "stream I/O" driving a §4.C module).
type StreamSensor struct {
	*module.Module
	Conn *stream.Connection

	// QueryCmd is the request line sent to read "value" (e.g. "R?").
	QueryCmd string
}

// NewStreamSensor builds a StreamSensor bound to conn, reading value
// with queryCmd.
func NewStreamSensor(mod *module.Module, conn *stream.Connection, queryCmd string) (*StreamSensor, error) {
	s := &StreamSensor{Module: mod, Conn: conn, QueryCmd: queryCmd}
	if err := mod.BindRead("value", s.readValue); err != nil {
		return nil, err
	}
	if err := mod.BindRead("status", s.readStatus); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StreamSensor) readValue(mod *module.Module) (any, error) {
	reply, err := s.Conn.Communicate(s.QueryCmd)
	if err != nil {
		return nil, secoperr.CommFailed("query %q: %v", s.QueryCmd, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return nil, secoperr.BadValue("parse reply %q: %v", reply, err)
	}
	return v, nil
}

func (s *StreamSensor) readStatus(mod *module.Module) (any, error) {
	if !s.Conn.IsConnected() {
		return datatype.MakeStatus("ERROR", "not connected"), nil
	}
	return datatype.MakeStatus("IDLE", ""), nil
}
