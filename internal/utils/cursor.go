package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedCursor 游标解码失败。游标来自客户端，可能被篡改或截断，
// 解不开就报错，绝不静默退回首页
var ErrMalformedCursor = errors.New("malformed cursor")

// 游标是分页断点的 base64(JSON) 封装，对客户端完全不透明。
// 两种排序的断点形状不同，所以用两个类型区分，解码时按排序方式选择：
//   - new 排序只需要最后一行的 createdAt
//   - hot 排序需要 (点赞数, createdAt) 二元组，否则同赞数的帖子会跨页重复或丢失

// NewCursor 按时间排序的分页断点
type NewCursor struct {
	CreatedAt time.Time
}

// HotCursor 按热度排序的分页断点
type HotCursor struct {
	LikeCount int
	CreatedAt time.Time
}

// Encode 序列化为不透明字符串。负载是时间戳的 JSON 字符串
func (c NewCursor) Encode() string {
	return encodeCursor(c.CreatedAt.UTC().Format(time.RFC3339Nano))
}

// Encode 序列化为不透明字符串。负载是 [点赞数, 时间戳] 的 JSON 数组
func (c HotCursor) Encode() string {
	return encodeCursor([2]interface{}{c.LikeCount, c.CreatedAt.UTC().Format(time.RFC3339Nano)})
}

// DecodeNewCursor 解码 new 排序的游标
func DecodeNewCursor(cursor string) (NewCursor, error) {
	var ts string
	if err := decodeCursor(cursor, &ts); err != nil {
		return NewCursor{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return NewCursor{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedCursor, ts)
	}
	return NewCursor{CreatedAt: t}, nil
}

// DecodeHotCursor 解码 hot 排序的游标
func DecodeHotCursor(cursor string) (HotCursor, error) {
	var pair [2]json.RawMessage
	if err := decodeCursor(cursor, &pair); err != nil {
		return HotCursor{}, err
	}
	var likeCount int
	if err := json.Unmarshal(pair[0], &likeCount); err != nil {
		return HotCursor{}, fmt.Errorf("%w: bad like count", ErrMalformedCursor)
	}
	var ts string
	if err := json.Unmarshal(pair[1], &ts); err != nil {
		return HotCursor{}, fmt.Errorf("%w: bad timestamp", ErrMalformedCursor)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return HotCursor{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedCursor, ts)
	}
	return HotCursor{LikeCount: likeCount, CreatedAt: t}, nil
}

func encodeCursor(payload interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// 负载只有字符串和整数，正常情况下不可能失败
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func decodeCursor(cursor string, dst interface{}) error {
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return fmt.Errorf("%w: not base64", ErrMalformedCursor)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: not valid payload", ErrMalformedCursor)
	}
	return nil
}
