package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ragchat/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolFailed   = errors.New("tool call failed")
	ErrDuplicate    = errors.New("tool already registered")
)

// Registry holds tools by name for in-process calls.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.tools)
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	return lo.Map(r.Names(), func(name string, _ int) Tool {
		t, _ := r.Get(name)
		return t
	})
}

func (r *Registry) Contracts(ctx context.Context) ([]models.ToolContract, error) {
	return lo.Map(r.Tools(), func(t Tool, _ int) models.ToolContract {
		return Contract(t)
	}), nil
}

func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", notFound(name, r.Names())
	}

	log.Info().Str("tool", name).Interface("args", args).Msg("Executing tool")
	result, err := t.Call(ctx, args)
	if err != nil {
		log.Error().Err(err).Str("tool", name).Msg("Tool execution failed")
		return "", fmt.Errorf("%w: %s: %w", ErrToolFailed, name, err)
	}

	log.Debug().Str("tool", name).Str("result", truncateForLog(result)).Msg("Tool execution result")
	return result, nil
}

func notFound(name string, known []string) error {
	ranks := fuzzy.RankFindFold(name, known)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return fmt.Errorf("%w: %s (did you mean %s?)", ErrToolNotFound, name, ranks[0].Target)
	}
	return fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
