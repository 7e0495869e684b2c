package utils

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// 用户输入一律按纯文本处理，任何 HTML 标签直接剥掉
var strictPolicy = bluemonday.StrictPolicy()

// CleanText 剥掉字符串里的 HTML 标签，还原实体转义后返回纯文本
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// docNode 富文本文档的节点。编辑器产出的是一棵 JSON 树，
// 这里只认识提取链接和文本需要的字段，其余原样忽略
type docNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Marks   []docMark `json:"marks"`
	Content []docNode `json:"content"`
}

type docMark struct {
	Type  string `json:"type"`
	Attrs struct {
		Href string `json:"href"`
	} `json:"attrs"`
}

// ExtractLinks 遍历文档树，收集所有文本节点上 link 标记的 href（去重，保持出现顺序）
func ExtractLinks(doc json.RawMessage) []string {
	var root docNode
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	var traverse func(n docNode)
	traverse = func(n docNode) {
		if n.Type == "text" {
			for _, mark := range n.Marks {
				if mark.Type == "link" && mark.Attrs.Href != "" && !seen[mark.Attrs.Href] {
					seen[mark.Attrs.Href] = true
					links = append(links, mark.Attrs.Href)
				}
			}
		}
		for _, child := range n.Content {
			traverse(child)
		}
	}
	traverse(root)
	return links
}

// SanitizeDoc 遍历原始 JSON 树，对所有 "text" 字段做 CleanText。
// 只动文本，节点结构和排版属性原样保留；解析失败时原样返回，由存储层兜底
func SanitizeDoc(doc json.RawMessage) json.RawMessage {
	var root interface{}
	if err := json.Unmarshal(doc, &root); err != nil {
		return doc
	}
	cleaned := sanitizeNode(root)
	out, err := json.Marshal(cleaned)
	if err != nil {
		return doc
	}
	return out
}

func sanitizeNode(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for key, val := range node {
			if key == "text" {
				if s, ok := val.(string); ok {
					// 不做 TrimSpace，行内文本的首尾空格是排版的一部分
					node[key] = html.UnescapeString(strictPolicy.Sanitize(s))
					continue
				}
			}
			node[key] = sanitizeNode(val)
		}
		return node
	case []interface{}:
		for i, item := range node {
			node[i] = sanitizeNode(item)
		}
		return node
	default:
		return v
	}
}
