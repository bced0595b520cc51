// Package aitest provides a scripted eino chat model for tests.
package aitest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Call records one request made to the model.
type Call struct {
	System    string
	User      string
	MaxTokens int
}

// ChatModel answers every request with Respond (or Err) after Delay.
type ChatModel struct {
	Respond func(system, user string) string
	Err     error
	Delay   time.Duration

	mu    sync.Mutex
	calls []Call
}

// Generate implements model.ChatModel.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	call := m.record(input, opts)

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	content := ""
	if m.Respond != nil {
		content = m.Respond(call.System, call.User)
	}
	return schema.AssistantMessage(content, nil), nil
}

// Stream implements model.ChatModel by splitting the answer into word chunks.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}

	words := strings.SplitAfter(msg.Content, " ")
	chunks := make([]*schema.Message, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, schema.AssistantMessage(w, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

// BindTools implements model.ChatModel.
func (m *ChatModel) BindTools([]*schema.ToolInfo) error { return nil }

// Calls returns a copy of the recorded requests.
func (m *ChatModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountSystem returns how many requests had a system prompt containing substr.
func (m *ChatModel) CountSystem(substr string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.Contains(c.System, substr) {
			n++
		}
	}
	return n
}

func (m *ChatModel) record(input []*schema.Message, opts []model.Option) Call {
	var call Call
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			call.System = msg.Content
		case schema.User:
			call.User = msg.Content
		}
	}
	if o := model.GetCommonOptions(nil, opts...); o.MaxTokens != nil {
		call.MaxTokens = *o.MaxTokens
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	return call
}
