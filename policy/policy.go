package policy

import (
	"context"
	"strings"
)

// Request admission modes.
const (
	ModeOpen   = "open"   // every requester not on the block list (default)
	ModeClosed = "closed" // only requesters on the allow list
	ModeDeny   = "deny"   // no requests are admitted
)

// Policy holds the operator set and requester filters. A nil *Policy admits
// every requester and recognises no operator.
type Policy struct {
	Mode      string
	Operators []string
	AllowList []string
	BlockList []string
}

// Config represents the serialisable form of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Operators []string `json:"operators,omitempty" yaml:"operators,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		Operators: append([]string(nil), p.Operators...),
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		Operators: append([]string(nil), c.Operators...),
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsOperator reports whether actor may run administrative operations.
// Identities compare case-insensitively.
func (p *Policy) IsOperator(actor string) bool {
	if p == nil || actor == "" {
		return false
	}
	return contains(p.Operators, actor)
}

// IsAllowed reports whether requester may request an identifier.
func (p *Policy) IsAllowed(requester string) bool {
	if requester == "" {
		return false
	}
	if p == nil {
		return true
	}
	if contains(p.BlockList, requester) {
		return false
	}
	switch strings.ToLower(p.Mode) {
	case ModeDeny:
		return false
	case ModeClosed:
		return contains(p.AllowList, requester)
	}
	return len(p.AllowList) == 0 || contains(p.AllowList, requester)
}

func contains(list []string, value string) bool {
	for _, candidate := range list {
		if strings.EqualFold(candidate, value) {
			return true
		}
	}
	return false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx, overriding the allocator default.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the embedded policy or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}

type actorKeyT struct{}

var actorKey actorKeyT

// WithActor records the identity calling an allocator operation.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the caller identity or "".
func ActorFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}
