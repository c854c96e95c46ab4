// Package digest clusters the enriched batch into a ranked Markdown
// briefing using the chat model, with a deterministic listing as the
// fallback when the model is unavailable.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VandeeFeng/wisecrawl/internal/llm"
	"github.com/VandeeFeng/wisecrawl/internal/model"
	"github.com/VandeeFeng/wisecrawl/internal/retry"
)

// maxTopics bounds how many clusters the rendering accepts regardless
// of what the model returns.
const maxTopics = 20

// fallbackItems is the size of the no-model listing.
const fallbackItems = 10

// topicSummaryCap limits the summary shown under each heading.
const topicSummaryCap = 100

const rankSystemPrompt = "你是一个专业的新闻编辑助手，擅长归纳总结热点新闻。"

// simplifiedItem is what the model sees per article: enough to cluster
// on, small enough to fit many items in one prompt.
type simplifiedItem struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Summary string `json:"summary"`
}

// topic is one cluster in the model's reply.
type topic struct {
	Title      string `json:"title"`
	RelatedIDs []int  `json:"related_ids"`
}

// Generator builds the daily digest.
type Generator struct {
	chat     llm.ChatClient
	logger   *zap.Logger
	dataDir  string
	nameMap  map[string]string
	policy   retry.Policy
	techOnly bool
}

// New builds a Generator. dataDir may be empty to skip input/output
// archiving; nameMap translates raw source IDs to display names.
func New(chat llm.ChatClient, dataDir string, nameMap map[string]string, techOnly bool, logger *zap.Logger) *Generator {
	return &Generator{
		chat:     chat,
		logger:   logger,
		dataDir:  dataDir,
		nameMap:  nameMap,
		policy:   retry.Policy{Attempts: 3, Delay: 5 * time.Second},
		techOnly: techOnly,
	}
}

// Generate returns the Markdown digest for the batch. Model failure
// degrades to the top-N fallback listing, never to an empty digest.
func (g *Generator) Generate(ctx context.Context, articles []model.Article) string {
	if len(articles) == 0 {
		return ""
	}

	markdown, err := g.generateWithModel(ctx, articles)
	if err != nil {
		g.logger.Warn("digest model failed, using fallback listing", zap.Error(err))
		return g.fallback(articles)
	}
	return markdown
}

func (g *Generator) generateWithModel(ctx context.Context, articles []model.Article) (string, error) {
	simplified := make([]simplifiedItem, len(articles))
	for i, art := range articles {
		simplified[i] = simplifiedItem{
			ID:      i,
			Title:   art.Title,
			Source:  g.displayName(art.Source),
			Summary: art.Summary,
		}
	}
	payload, err := json.Marshal(simplified)
	if err != nil {
		return "", err
	}
	g.archive("inputs", "digest_input", "json", payload)

	var raw string
	err = g.policy.Do(ctx, func() error {
		var cerr error
		raw, cerr = g.chat.Complete(ctx, []llm.Message{
			{Role: "system", Content: rankSystemPrompt},
			{Role: "user", Content: g.prompt(string(payload))},
		}, 1000)
		return cerr
	})
	if err != nil {
		return "", err
	}
	g.archive("outputs", "digest_output", "json", []byte(raw))

	topics, err := parseTopics(raw)
	if err != nil {
		return "", err
	}

	markdown := g.render(topics, articles)
	g.archive("outputs", "digest", "md", []byte(markdown))
	return markdown, nil
}

func (g *Generator) prompt(itemsJSON string) string {
	var b strings.Builder
	if g.techOnly {
		b.WriteString("以下是今日科技热点信息列表（包含新闻和社交媒体帖子，JSON格式），部分条目包含内容摘要：\n")
		b.WriteString(itemsJSON)
		b.WriteString("\n请总结出10条最重要的科技新闻，优先选择AI相关新闻，去除重复和无关内容。")
		b.WriteString("重点关注最新发布的AI技术或者模型等，相关新闻在返回的结果排序中需要前置；公众号的文章权重更高，其余结果按重要性排序。\n")
	} else {
		b.WriteString("以下是今日热点信息列表（包含新闻和社交媒体帖子，JSON格式），部分条目包含内容摘要：\n")
		b.WriteString(itemsJSON)
		b.WriteString("\n请总结出10条最重要的热点新闻，优先选择科技和AI相关新闻，但也要包含其他领域（如社会、娱乐、体育等）的重要新闻，去除重复内容。\n")
	}
	b.WriteString("你需要将相似的新闻合并为一条，并提供一个直观简洁的中文标题，需要讲清楚新闻内容不要太泛化（不超过30个字）。\n")
	b.WriteString("同时，也请关注来自 Twitter 等社交媒体源 (source: Twitter) 的重要信息，特别是关于最新 AI 技术突破、模型发布或重要行业动态的帖子。\n")
	b.WriteString("相关新闻的ID列表最多选择其中4条，取最典型的。如果同一家媒体在多个渠道发布相同的内容，或新闻标题相似度极高，仅需列出1条。\n")
	b.WriteString("如果有摘要信息，请参考摘要提供更准确的标题。\n\n")
	b.WriteString("请以JSON格式返回结果，格式如下：\n")
	b.WriteString("```json\n[\n  {\"title\": \"热点标题\", \"related_ids\": [相关热点的ID列表]},\n  ...\n]\n```\n")
	b.WriteString("只返回JSON数据，不要有任何额外说明。")
	return b.String()
}

// parseTopics tolerates fenced replies: a ```json block is unwrapped
// before decoding.
func parseTopics(raw string) ([]topic, error) {
	candidate := raw
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate = rest[:end]
		} else {
			candidate = rest
		}
	}
	candidate = strings.TrimSpace(candidate)

	var topics []topic
	if err := json.Unmarshal([]byte(candidate), &topics); err != nil {
		return nil, fmt.Errorf("parse ranking reply: %w", err)
	}
	return topics, nil
}

func (g *Generator) render(topics []topic, articles []model.Article) string {
	var b strings.Builder
	for i, t := range topics {
		if i >= maxTopics {
			break
		}
		title := t.Title
		if title == "" {
			title = "未知标题"
		}
		fmt.Fprintf(&b, "## ** %02d %s **  \n", i+1, title)
		b.WriteString(g.topicSummary(t, articles, title))
		b.WriteString("\n\n")

		for _, id := range t.RelatedIDs {
			if id < 0 || id >= len(articles) {
				continue
			}
			art := articles[id]
			fmt.Fprintf(&b, "- [%s](%s) `🏷️%s`\n",
				flattenTitle(art.Title), g.linkFor(art), g.displayName(art.Source))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// topicSummary picks the longest substantial summary among the related
// articles, capped for display.
func (g *Generator) topicSummary(t topic, articles []model.Article, title string) string {
	best := ""
	for _, id := range t.RelatedIDs {
		if id < 0 || id >= len(articles) {
			continue
		}
		s := strings.TrimSpace(articles[id].Summary)
		if len([]rune(s)) > 20 && len(s) > len(best) {
			best = s
		}
	}
	if best == "" {
		return title + "相关信息，详情请查看以下链接。"
	}
	return capRunes(best, topicSummaryCap)
}

// fallback lists the first items verbatim when no model verdict exists.
func (g *Generator) fallback(articles []model.Article) string {
	var b strings.Builder
	for i, art := range articles {
		if i >= fallbackItems {
			break
		}
		title := flattenTitle(art.Title)
		fmt.Fprintf(&b, "## ** %02d %s **  \n", i+1, title)

		summary := strings.TrimSpace(art.Summary)
		if summary == "" {
			summary = title + "相关信息，详情请查看以下链接。"
		} else {
			summary = capRunes(summary, topicSummaryCap)
		}
		b.WriteString(summary)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "- [%s](%s) `🏷️%s` \n\n", title, g.linkFor(art), g.displayName(art.Source))
	}
	return b.String()
}

// linkFor falls back to the account profile for tweets that lost their
// URL somewhere upstream.
func (g *Generator) linkFor(art model.Article) string {
	if art.URL != "" && art.URL != "#" {
		return art.URL
	}
	if strings.HasPrefix(art.Source, "Twitter-") {
		account := strings.ReplaceAll(strings.TrimPrefix(art.Source, "Twitter-"), " ", "")
		return "https://twitter.com/" + account
	}
	return "#"
}

func (g *Generator) displayName(source string) string {
	if mapped, ok := g.nameMap[source]; ok {
		return mapped
	}
	return source
}

// archive saves digest inputs/outputs beside the snapshots for later
// inspection. Failures only warn.
func (g *Generator) archive(subdir, prefix, ext string, data []byte) {
	if g.dataDir == "" {
		return
	}
	dir := filepath.Join(g.dataDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		g.logger.Warn("digest archive dir failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("2006-01-02_15-04-05"), ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		g.logger.Warn("digest archive write failed", zap.Error(err))
	}
}

func flattenTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

func capRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
