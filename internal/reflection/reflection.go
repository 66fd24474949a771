// Package reflection generates a short daily motivational quote for the
// group based on its progress.
//
// Generation is strictly best-effort: any API error, timeout, or unparseable
// response degrades to a fixed fallback reflection. Nothing in the sync path
// depends on this package.
package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// requestTimeout caps how long we wait for the model before falling back.
const requestTimeout = 8 * time.Second

const model = anthropic.ModelClaudeSonnet4_20250514

// Reflection is a quote with its source and a short encouragement.
type Reflection struct {
	Quote     string `json:"quote"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// Fallback is served whenever generation fails.
var Fallback = Reflection{
	Quote:     "แท้จริงหลังความยากลำบาก จะมีความง่ายดาย",
	Reference: "อัลกุรอาน 94:5",
	Message:   "ขอให้ทุกคนรักษาความดีต่อไป อัลลอฮฺทรงเห็นในความพยายาม",
}

// Messenger is the Anthropic Messages surface this package needs, extracted
// so tests can stub the API.
type Messenger interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator produces daily reflections.
type Generator struct {
	messages Messenger
}

// New creates a generator using ambient credentials (ANTHROPIC_API_KEY).
func New() *Generator {
	client := anthropic.NewClient()
	return &Generator{messages: &client.Messages}
}

// NewWithMessenger creates a generator over a custom Messages implementation.
func NewWithMessenger(m Messenger) *Generator {
	return &Generator{messages: m}
}

// Daily returns a reflection for the given progress summary. It never
// returns an error to callers: failures yield Fallback.
func (g *Generator) Daily(ctx context.Context, progressSummary string) Reflection {
	r, err := g.daily(ctx, progressSummary)
	if err != nil {
		return Fallback
	}
	return r
}

func (g *Generator) daily(ctx context.Context, progressSummary string) (Reflection, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		`สรุปความคืบหน้ากลุ่ม: %q ช่วยหาคำคมอิสลาม (อัลกุรอานหรือหะดีษ) เป็นภาษาไทย พร้อมแหล่งที่มา และข้อความให้กำลังใจสั้นๆ `+
			`Respond with JSON only: {"quote": "...", "reference": "...", "message": "..."}`,
		progressSummary)

	msg, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Reflection{}, fmt.Errorf("reflection request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return parse(text.String())
}

// parse extracts the JSON object from the model's reply, tolerating prose
// around it.
func parse(text string) (Reflection, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Reflection{}, fmt.Errorf("no JSON object in reply")
	}

	var r Reflection
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return Reflection{}, fmt.Errorf("invalid reflection JSON: %w", err)
	}
	if r.Quote == "" || r.Message == "" {
		return Reflection{}, fmt.Errorf("incomplete reflection")
	}
	return r, nil
}
