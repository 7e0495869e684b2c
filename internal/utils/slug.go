package utils

import (
	"math/rand"
	"strings"
)

// slug 词表：形容词-名词-动词 三段式，生成好记又不会撞车的帖子地址，
// 比如 "quiet-pandas-wander"。名词和动词都用复数/第三人称以外的原形拼起来更顺口
var (
	slugAdjectives = []string{
		"quiet", "brave", "sunny", "misty", "mellow", "witty", "lucky", "fuzzy",
		"gentle", "rapid", "shiny", "cosmic", "gloomy", "vivid", "eager", "calm",
		"proud", "clever", "rustic", "tidy", "warm", "bold", "crisp", "dusty",
	}
	slugNouns = []string{
		"pandas", "otters", "maples", "rivers", "clouds", "larks", "ferns",
		"comets", "dunes", "owls", "pines", "waves", "foxes", "cranes",
		"lanterns", "meadows", "pebbles", "sparrows", "tigers", "willows",
	}
	slugVerbs = []string{
		"wander", "gather", "listen", "drift", "bloom", "glow", "hum",
		"settle", "wonder", "ramble", "shine", "dream", "roam", "rest",
		"float", "sing", "dance", "sketch", "ponder", "sail",
	}
)

// NewSlug 生成一个随机三段 slug，最长不超过数据库的 30 字符限制。
// 唯一性由调用方配合唯一索引重试保证
func NewSlug() string {
	for {
		parts := []string{
			slugAdjectives[rand.Intn(len(slugAdjectives))],
			slugNouns[rand.Intn(len(slugNouns))],
			slugVerbs[rand.Intn(len(slugVerbs))],
		}
		slug := strings.Join(parts, "-")
		if len(slug) <= 30 {
			return slug
		}
	}
}
