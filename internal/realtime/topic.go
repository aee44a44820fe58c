package realtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 主题前缀
const (
	TopicGroup  = "group"
	TopicDirect = "dm"
	TopicUser   = "user"
)

var ErrInvalidTopic = errors.New("invalid topic")

// Topic 解析后的主题；dm 主题的 IDs 按升序
type Topic struct {
	Kind string
	IDs  []uint64
}

func GroupTopic(groupID uint64) string {
	return fmt.Sprintf("%s:%d", TopicGroup, groupID)
}

// DirectTopic 与参数顺序无关
func DirectTopic(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%d:%d", TopicDirect, a, b)
}

func UserTopic(userID uint64) string {
	return fmt.Sprintf("%s:%d", TopicUser, userID)
}

func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	t := Topic{Kind: parts[0]}
	for _, p := range parts[1:] {
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil || id == 0 {
			return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
		}
		t.IDs = append(t.IDs, id)
	}
	switch t.Kind {
	case TopicGroup, TopicUser:
		if len(t.IDs) != 1 {
			return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
		}
	case TopicDirect:
		if len(t.IDs) != 2 || t.IDs[0] >= t.IDs[1] {
			return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
		}
	default:
		return Topic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	return t, nil
}
