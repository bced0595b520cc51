package mention

import (
	"context"
	"regexp"

	"github.com/kevingma/slack-clone-v6/internal/model/chat"
)

var tokenPattern = regexp.MustCompile(`@(\w+)`)

// Parse extracts mentioned names from content in order of first appearance.
// A name mentioned several times is returned once.
func Parse(content string) []string {
	matches := tokenPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// UserFinder looks users up by exact display name.
type UserFinder interface {
	FindUsersByDisplayName(ctx context.Context, displayName string) ([]chat.User, error)
}

// Resolver maps mentioned names to users.
type Resolver struct {
	users UserFinder
}

// NewResolver builds a resolver backed by users.
func NewResolver(users UserFinder) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the single human user whose display name equals name.
// Unknown and ambiguous names report ok=false without an error.
func (r *Resolver) Resolve(ctx context.Context, name string) (chat.User, bool, error) {
	candidates, err := r.users.FindUsersByDisplayName(ctx, name)
	if err != nil {
		return chat.User{}, false, err
	}

	var (
		match chat.User
		found int
	)
	for _, u := range candidates {
		if u.IsBot {
			continue
		}
		match = u
		found++
	}
	if found != 1 {
		return chat.User{}, false, nil
	}
	return match, true, nil
}
