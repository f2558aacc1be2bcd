// Package keys resolves storage keys to their kind and holds the catalog of
// keys the application persists.
package keys

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind selects the on-disk treatment of a key.
type Kind int

const (
	// Meta keys are small structured settings stored as plain JSON.
	Meta Kind = iota
	// Content keys are large documents stored compressed.
	Content
)

func (k Kind) String() string {
	switch k {
	case Meta:
		return "meta"
	case Content:
		return "content"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Registry maps keys to kinds. Exact declarations win over namespaces;
// among namespaces the longest matching prefix wins. Undeclared keys are Meta.
type Registry struct {
	mu         sync.RWMutex
	exact      map[string]Kind
	namespaces map[string]Kind
	contentNS  string
}

// NewRegistry creates a registry whose content namespace is contentPrefix.
// An empty prefix registers no namespace.
func NewRegistry(contentPrefix string) *Registry {
	r := &Registry{
		exact:      make(map[string]Kind),
		namespaces: make(map[string]Kind),
	}
	if contentPrefix != "" {
		r.DeclareNamespace(contentPrefix, Content)
	}
	return r
}

// Declare sets the kind of one exact key.
func (r *Registry) Declare(key string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[key] = kind
}

// DeclareNamespace sets the kind of every key starting with prefix. The
// first Content namespace declared is used by ContentKey.
func (r *Registry) DeclareNamespace(prefix string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[prefix] = kind
	if kind == Content && r.contentNS == "" {
		r.contentNS = prefix
	}
}

// Resolve returns the kind of key.
func (r *Registry) Resolve(key string) Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if k, ok := r.exact[key]; ok {
		return k
	}
	best, kind := -1, Meta
	for prefix, k := range r.namespaces {
		if len(prefix) > best && strings.HasPrefix(key, prefix) {
			best, kind = len(prefix), k
		}
	}
	return kind
}

// ContentKey builds the key of a content document from its id.
func (r *Registry) ContentKey(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contentNS + id
}

// Declared returns the exact keys declared with kind, sorted.
func (r *Registry) Declared(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for key, k := range r.exact {
		if k == kind {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
