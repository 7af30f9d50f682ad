// Package wire implements the SECoP line protocol codec (spec.md
// §4.G): parsing one line into an action/specifier/data triple and
// rendering replies and async updates back to wire text.
package wire

import (
	"encoding/json"
	"strings"

	"github.com/frappy-project/frappy-core/secoperr"
)

// Message is one parsed protocol line: action [specifier [data]].
type Message struct {
	Action    string
	Specifier string
	Data      json.RawMessage
}

// Module and Qualifier split a "module:parameter"-shaped specifier.
// Qualifier returns ("", false) when the specifier names a bare module.
func (m Message) Module() string {
	mod, _, _ := strings.Cut(m.Specifier, ":")
	return mod
}

func (m Message) Qualifier() (string, bool) {
	_, q, ok := strings.Cut(m.Specifier, ":")
	return q, ok
}

// Parse splits one incoming line into a Message (spec.md §4.G "a line
// is action[space specifier[space data]]").
func Parse(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, secoperr.ProtocolError("empty line")
	}
	action, rest, hasRest := strings.Cut(line, " ")
	msg := Message{Action: action}
	if !hasRest {
		return msg, nil
	}
	rest = strings.TrimLeft(rest, " ")
	specifier, data, hasData := strings.Cut(rest, " ")
	msg.Specifier = specifier
	if hasData {
		msg.Data = json.RawMessage(strings.TrimLeft(data, " "))
	}
	return msg, nil
}

// Render serialises action/specifier/value into one outgoing wire
// line (no trailing newline; the caller's framer adds it).
func Render(action, specifier string, value any) (string, error) {
	var b strings.Builder
	b.WriteString(action)
	if specifier != "" {
		b.WriteByte(' ')
		b.WriteString(specifier)
	}
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return "", secoperr.Internal("encode reply: %v", err)
		}
		b.WriteByte(' ')
		b.Write(data)
	}
	return b.String(), nil
}

// ReplyPayload builds the [value, {"t": timestamp}] pair used by
// read/change/update replies (spec.md §4.G).
func ReplyPayload(value any, timestamp float64) []any {
	return []any{value, map[string]any{"t": timestamp}}
}

// ErrorPayload builds the [kind, message, {"t": timestamp}] triple
// used by error_<x> replies (spec.md §4.G).
func ErrorPayload(kind, message string, timestamp float64, detail any) []any {
	d := map[string]any{"t": timestamp}
	if detail != nil {
		d["detail"] = detail
	}
	return []any{kind, message, d}
}

// ErrorAction maps a request action to its error_<x> reply action
// (spec.md §4.G error reply naming, e.g. "error_read", "error_change").
func ErrorAction(requestAction string) string {
	return "error_" + requestAction
}
