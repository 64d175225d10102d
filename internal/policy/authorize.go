package policy

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Flag is a chat tag that may arrive as a JSON bool, a number, or a string
// such as "1", "0", "true". Anything unrecognized decodes as false.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Flag(truthy(v))
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return false
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n != 0
		}
		return s == "true" || s == "yes" || s == "on"
	default:
		return false
	}
}

// Tags carries the role markers the chat platform attaches to a message.
type Tags struct {
	Mod         Flag `json:"mod"`
	Broadcaster Flag `json:"broadcaster"`
	Subscriber  Flag `json:"subscriber,omitempty"`
	VIP         Flag `json:"vip,omitempty"`
}

// IsPrivileged reports whether the sender may run moderator commands.
func IsPrivileged(tags Tags) bool {
	return bool(tags.Mod) || bool(tags.Broadcaster)
}
