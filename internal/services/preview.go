package services

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"kyoumi/internal/utils"

	"github.com/PuerkitoBio/goquery"
)

// LinkPreview 帖子里外链的元信息卡片
type LinkPreview struct {
	URL         string `json:"url"`
	SiteName    string `json:"siteName"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// PreviewService 外链预览抓取服务
type PreviewService struct {
	client *http.Client
}

var previewService *PreviewService

// GetPreviewService 获取单例预览服务
func GetPreviewService() *PreviewService {
	if previewService == nil {
		previewService = &PreviewService{
			client: &http.Client{
				Timeout: 10 * time.Second,
			},
		}
	}
	return previewService
}

// 站点标题常见的 " - 站点名" / " | 站点名" 后缀，预览卡片里去掉
var titleSuffixRe = regexp.MustCompile(`\s[-/|>]+\s.*$`)

// GetPreviews 并发抓取一组链接的预览。抓取失败或非 HTML 的链接直接跳过，
// 不算错误——预览是锦上添花，不应该拖垮详情页
func (s *PreviewService) GetPreviews(links []string) []LinkPreview {
	results := make([]*LinkPreview, len(links))

	var wg sync.WaitGroup
	for i, link := range links {
		wg.Add(1)
		go func(i int, link string) {
			defer wg.Done()
			results[i] = s.fetchCached(link)
		}(i, link)
	}
	wg.Wait()

	previews := make([]LinkPreview, 0, len(links))
	for _, p := range results {
		if p != nil {
			previews = append(previews, *p)
		}
	}
	return previews
}

// fetchCached 带缓存的单链接抓取，外站内容变化不频繁，缓存一小时
func (s *PreviewService) fetchCached(link string) *LinkPreview {
	cacheKey := "preview:" + link
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if preview, ok := cached.(LinkPreview); ok {
			return &preview
		}
	}

	preview, err := s.fetchPreview(link)
	if err != nil {
		return nil
	}

	utils.GetCache().Set(cacheKey, *preview, 1*time.Hour)
	return preview
}

// fetchPreview 抓取页面并解析元信息
func (s *PreviewService) fetchPreview(link string) (*LinkPreview, error) {
	req, err := http.NewRequest("GET", link, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	// 模拟浏览器，部分站点对裸 UA 返回 403
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}
	// 只给 HTML 页面出卡片，图片/PDF 等直链忽略
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return nil, fmt.Errorf("非 HTML 内容: %s", resp.Header.Get("Content-Type"))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	cleanTitle := strings.TrimSpace(titleSuffixRe.ReplaceAllString(title, ""))

	preview := &LinkPreview{
		URL:         link,
		Title:       cleanTitle,
		SiteName:    metaContent(doc, `meta[property="og:site_name"]`),
		Description: metaContent(doc, `meta[property="og:description"]`),
		Image:       metaContent(doc, `meta[property="og:image"]`),
	}
	if preview.SiteName == "" {
		preview.SiteName = cleanTitle
	}
	if preview.Description == "" {
		preview.Description = metaContent(doc, `meta[name="description"]`)
	}

	if href, ok := doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href"); ok {
		preview.Favicon = resolveURL(link, href)
	}

	return preview, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// resolveURL 把相对地址（常见于 favicon）补全成绝对地址
func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
