package keys

import (
	"encoding/json"
	"strconv"

	"boardstore/internal/config"
)

// Catalog is the set of keys the application writes: the fixed metadata
// keys and the index from which content keys are derived.
type Catalog struct {
	Registry *Registry
	MetaKeys []string
	IndexKey string
	IDField  string
}

// NewCatalog builds a catalog and its registry from configuration. Every
// fixed metadata key is declared Meta.
func NewCatalog(cfg config.KeysConfig) *Catalog {
	reg := NewRegistry(cfg.ContentPrefix)
	for _, k := range cfg.MetaKeys {
		reg.Declare(k, Meta)
	}
	if cfg.IndexKey != "" {
		reg.Declare(cfg.IndexKey, Meta)
	}
	idField := cfg.IndexIDField
	if idField == "" {
		idField = "id"
	}
	return &Catalog{
		Registry: reg,
		MetaKeys: append([]string(nil), cfg.MetaKeys...),
		IndexKey: cfg.IndexKey,
		IDField:  idField,
	}
}

// ContentKeys derives content keys from the JSON array stored under the
// index key. Elements without a usable id are skipped. A malformed index
// yields no keys.
func (c *Catalog) ContentKeys(index json.RawMessage) []string {
	if len(index) == 0 {
		return nil
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(index, &entries); err != nil {
		return nil
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		id, ok := elementID(e[c.IDField])
		if !ok {
			continue
		}
		out = append(out, c.Registry.ContentKey(id))
	}
	return out
}

// elementID accepts a string or a number.
func elementID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return n.String(), true
	}
	return "", false
}
