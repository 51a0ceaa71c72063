package gateway

import (
	"sync"

	"ragchat/models"

	"github.com/rs/zerolog/log"
)

// Selector stores the process-wide default model choice. Writes are
// last-write-wins; each query reads it once and carries the value with it.
type Selector struct {
	mu     sync.RWMutex
	choice models.ModelChoice
}

func NewSelector(initial models.ModelChoice) *Selector {
	return &Selector{choice: Normalize(string(initial))}
}

func (s *Selector) Get() models.ModelChoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.choice
}

// Set stores any value. Unsupported values are kept so that the next query
// fails with ErrUnsupportedModelChoice instead of silently using another
// provider.
func (s *Selector) Set(value string, supported func(models.ModelChoice) bool) models.ModelChoice {
	choice := Normalize(value)

	s.mu.Lock()
	s.choice = choice
	s.mu.Unlock()

	if supported != nil && !supported(choice) {
		log.Warn().Str("model", string(choice)).Msg("Model choice is not supported by any provider")
	} else {
		log.Info().Str("model", string(choice)).Msg("Model choice updated")
	}
	return choice
}
