package directory

import (
	"context"

	"github.com/rickgao/chat-relay/internal/model"
)

// Static is a fixed account set.
type Static struct {
	accounts map[string]struct{}
}

// NewStatic creates a directory containing accounts.
func NewStatic(accounts ...string) *Static {
	s := &Static{accounts: make(map[string]struct{}, len(accounts))}
	for _, id := range accounts {
		if id = model.NormalizeIdentity(id); id != "" {
			s.accounts[id] = struct{}{}
		}
	}
	return s
}

// AccountExists reports whether identity is in the set.
func (s *Static) AccountExists(_ context.Context, identity string) (bool, error) {
	_, ok := s.accounts[identity]
	return ok, nil
}
