// Package ocr defines the model engine contract and the prompts sent
// to it. Engines wrap a vision/text generation provider behind a single
// generate call; everything downstream treats the reply as untrusted
// free text.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Engine interface {
	Name() string
	GetModel() string
	// Generate sends a prompt, optionally with an image, and returns
	// the raw model text. There is no format contract on the reply.
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
}

type Engines struct {
	Gemini Engine
	OpenAI Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini":
		if e.Gemini == nil {
			return nil, fmt.Errorf("gemini engine is not configured")
		}
		return e.Gemini, nil
	case "gpt", "openai":
		if e.OpenAI == nil {
			return nil, fmt.Errorf("openai engine is not configured")
		}
		return e.OpenAI, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// Manager keeps a per-chat engine override with a shared default.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
