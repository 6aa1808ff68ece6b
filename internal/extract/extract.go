// Package extract runs the structured menu extraction against the reasoning
// service, including the bounded tool-call loop for price normalization.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/menuscan/menuscan/internal/model"
	"github.com/menuscan/menuscan/internal/price"
	"github.com/menuscan/menuscan/internal/scrape"
	"github.com/menuscan/menuscan/pkg/anthropic"
)

// Extraction failure sentinels. An extraction error means the page could not
// be understood, which is different from "no daily menu today", so these are
// fatal to the request rather than degrading to an empty menu.
var (
	ErrExtractionFailed = errors.New("extract: extraction failed")
	ErrInvalidJSON      = errors.New("extract: invalid json")
	ErrInvalidSchema    = errors.New("extract: invalid schema")
)

// Options configures the extraction pipeline.
type Options struct {
	Model        string
	MaxTokens    int64
	MaxToolTurns int
	MaxTextChars int
	MaxHTMLChars int
}

func (o *Options) applyDefaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4096
	}
	if o.MaxToolTurns <= 0 {
		o.MaxToolTurns = 5
	}
	if o.MaxTextChars <= 0 {
		o.MaxTextChars = 15000
	}
	if o.MaxHTMLChars <= 0 {
		o.MaxHTMLChars = 8000
	}
}

// Extractor submits page content to the reasoning service and validates the
// structured result.
type Extractor struct {
	client anthropic.Client
	opts   Options
}

// New creates an Extractor.
func New(client anthropic.Client, opts Options) *Extractor {
	opts.applyDefaults()
	return &Extractor{client: client, opts: opts}
}

const extractSystemPrompt = `You are a structured-data engine that extracts a restaurant's daily lunch menu from web page content.

Return ONLY a JSON object, no commentary, of this exact shape:
{"items": [{"name": string, "price": number or null, "allergens": array of strings or null, "weight": string or null, "category": one of "soup", "main", "side", "dessert", "drink", "other"}]}

Rules:
- Include only items from the daily/lunch menu, not the permanent menu.
- Every item must have a non-empty name and a category.
- The price field must be a plain number. When the page shows a price as text such as "145,-" or "145,50 Kč", call the normalize_price tool and use its result.
- Use null for anything the page does not state.
- If the page has no daily menu items, return {"items": []}.`

// normalizePriceTool lets the model hand raw price text to the local
// normalizer instead of guessing at Czech price notation.
var normalizePriceTool = anthropic.Tool{
	Name:        "normalize_price",
	Description: "Convert a raw price string such as \"145,-\" or \"145,50 Kč\" into a plain number.",
	Properties: map[string]any{
		"raw": map[string]any{
			"type":        "string",
			"description": "The raw price text exactly as it appears on the page.",
		},
	},
	Required: []string{"raw"},
}

// ExtractMenu submits page content and drives the conversation until the
// service produces a final structured answer. The exchange is a bounded
// loop: tool invocations are executed locally via the price normalizer and
// fed back; a final text turn is parsed and schema-validated. Exhausting the
// turn budget fails with ErrExtractionFailed.
func (e *Extractor) ExtractMenu(ctx context.Context, page *scrape.Page, day string) ([]model.MenuItem, error) {
	prompt := fmt.Sprintf(`Day of week: %s
Page URL: %s

Page text:
%s

Page HTML (truncated):
%s`,
		day,
		page.URL,
		truncate(page.Text, e.opts.MaxTextChars),
		truncate(page.HTML, e.opts.MaxHTMLChars),
	)

	messages := []anthropic.Message{
		{Role: "user", Content: prompt},
	}
	system := anthropic.BuildCachedSystemBlocks(extractSystemPrompt)

	for turn := 0; turn < e.opts.MaxToolTurns; turn++ {
		resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.opts.Model,
			MaxTokens: e.opts.MaxTokens,
			System:    system,
			Messages:  messages,
			Tools:     []anthropic.Tool{normalizePriceTool},
		})
		if err != nil {
			return nil, eris.Wrapf(ErrExtractionFailed, "create message: %v", err)
		}
		resp.Usage.LogCost(e.opts.Model, "extract")

		if uses := resp.ToolUses(); len(uses) > 0 {
			results := make([]anthropic.ToolResult, len(uses))
			for i, use := range uses {
				results[i] = runTool(use)
			}
			messages = append(messages,
				anthropic.Message{Role: "assistant", Content: resp.Text(), ToolUses: uses},
				anthropic.Message{Role: "user", ToolResults: results},
			)
			continue
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return nil, eris.Wrap(ErrInvalidJSON, "empty response")
		}
		return parseItems(cleanJSON(text))
	}

	return nil, eris.Wrapf(ErrExtractionFailed, "no final answer after %d turns", e.opts.MaxToolTurns)
}

// runTool executes a single tool invocation locally.
func runTool(use anthropic.ToolUse) anthropic.ToolResult {
	if use.Name != normalizePriceTool.Name {
		return anthropic.ToolResult{
			ToolUseID: use.ID,
			Content:   fmt.Sprintf("unknown tool %q", use.Name),
			IsError:   true,
		}
	}

	var in struct {
		Raw any `json:"raw"`
	}
	if err := json.Unmarshal(use.Input, &in); err != nil {
		return anthropic.ToolResult{
			ToolUseID: use.ID,
			Content:   "invalid tool input",
			IsError:   true,
		}
	}

	normalized := price.Normalize(in.Raw)
	zap.L().Debug("extract: normalize_price tool",
		zap.Any("raw", in.Raw),
		zap.Float64("normalized", normalized),
	)
	return anthropic.ToolResult{
		ToolUseID: use.ID,
		Content:   strconv.FormatFloat(normalized, 'f', -1, 64),
	}
}

type rawItem struct {
	Name      any   `json:"name"`
	Price     any   `json:"price"`
	Allergens []any `json:"allergens"`
	Weight    any   `json:"weight"`
	Category  any   `json:"category"`
}

// parseItems validates the final answer against the strict schema and
// normalizes every price unconditionally — the loop's tool usage is an
// optimization, not a correctness dependency.
func parseItems(text string) ([]model.MenuItem, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return nil, eris.Wrapf(ErrInvalidJSON, "parse answer: %v", err)
	}
	if root == nil {
		return nil, eris.Wrap(ErrInvalidSchema, "answer is null")
	}

	itemsRaw, ok := root["items"]
	if !ok || string(itemsRaw) == "null" {
		return nil, eris.Wrap(ErrInvalidSchema, "missing items array")
	}
	var raw []rawItem
	if err := json.Unmarshal(itemsRaw, &raw); err != nil {
		return nil, eris.Wrapf(ErrInvalidSchema, "items is not an array of objects: %v", err)
	}

	items := make([]model.MenuItem, 0, len(raw))
	for i, r := range raw {
		name, _ := r.Name.(string)
		if name == "" {
			return nil, eris.Wrapf(ErrInvalidSchema, "item %d: missing name", i)
		}
		category, _ := r.Category.(string)
		if category == "" {
			return nil, eris.Wrapf(ErrInvalidSchema, "item %d: missing category", i)
		}

		item := model.MenuItem{
			Name:     name,
			Category: model.NormalizeCategory(category),
		}
		if r.Price != nil {
			p := price.Normalize(r.Price)
			item.Price = &p
		}
		if w, ok := r.Weight.(string); ok {
			item.Weight = w
		}
		for _, a := range r.Allergens {
			item.Allergens = append(item.Allergens, stringifyAllergen(a))
		}
		items = append(items, item)
	}
	return items, nil
}

// stringifyAllergen keeps allergen codes as string tokens regardless of
// whether the model emitted them as numbers or strings.
func stringifyAllergen(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", a)
	}
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// truncate cuts s to at most limit characters, rune-safe.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
