package redis

import (
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	return newStore(c, ""), c
}

func hashDoc(key string, kv ...string) []rueidis.RedisMessage {
	fields := make([]rueidis.RedisMessage, len(kv))
	for i, v := range kv {
		fields[i] = mock.RedisString(v)
	}
	return []rueidis.RedisMessage{mock.RedisString(key), mock.RedisArray(fields...)}
}

func searchReply(total int64, docs ...[]rueidis.RedisMessage) rueidis.RedisResult {
	msgs := []rueidis.RedisMessage{mock.RedisInt64(total)}
	for _, d := range docs {
		msgs = append(msgs, d...)
	}
	return mock.Result(mock.RedisArray(msgs...))
}

func indexOf(cmd []string, token string) int {
	for i, c := range cmd {
		if c == token {
			return i
		}
	}
	return -1
}
