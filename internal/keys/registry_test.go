package keys

import (
	"encoding/json"
	"testing"

	"boardstore/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry("wb_content_")
	r.Declare("wb_content_settings", Meta)
	r.DeclareNamespace("wb_content_pdf_", Meta)

	tests := []struct {
		key  string
		want Kind
	}{
		{"wb_content_42", Content},
		{"wb_content_", Content},
		{"wb_content_settings", Meta}, // exact wins
		{"wb_content_pdf_7", Meta},    // longest namespace wins
		{"wb_boards", Meta},
		{"anything", Meta},
		{"", Meta},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.key))
		})
	}
}

func TestRegistry_NoPrefix(t *testing.T) {
	r := NewRegistry("")
	assert.Equal(t, Meta, r.Resolve("wb_content_1"))
	assert.Equal(t, "1", r.ContentKey("1"))
}

func TestRegistry_ContentKeyAndDeclared(t *testing.T) {
	r := NewRegistry("doc_")
	r.Declare("z", Meta)
	r.Declare("a", Meta)
	r.Declare("big", Content)

	assert.Equal(t, "doc_abc", r.ContentKey("abc"))
	assert.Equal(t, []string{"a", "z"}, r.Declared(Meta))
	assert.Equal(t, []string{"big"}, r.Declared(Content))
	assert.Equal(t, "content", Content.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestCatalog_ContentKeys(t *testing.T) {
	cat := NewCatalog(config.DefaultStorageConfig().Keys)

	assert.Equal(t, "id", cat.IDField)
	assert.Equal(t, Meta, cat.Registry.Resolve("wb_boards"))
	assert.Len(t, cat.MetaKeys, 4)

	tests := []struct {
		name  string
		index string
		want  []string
	}{
		{"strings", `[{"id":"a"},{"id":"b"}]`, []string{"wb_content_a", "wb_content_b"}},
		{"numbers", `[{"id":42},{"id":7}]`, []string{"wb_content_42", "wb_content_7"}},
		{"mixed and missing", `[{"id":"x"},{"name":"no id"},{"id":null},{"id":""},{"id":3}]`, []string{"wb_content_x", "wb_content_3"}},
		{"not an array", `{"id":"a"}`, nil},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cat.ContentKeys(json.RawMessage(tt.index))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_CustomIDField(t *testing.T) {
	cat := NewCatalog(config.KeysConfig{ContentPrefix: "c_", IndexKey: "docs", IndexIDField: "uuid"})
	got := cat.ContentKeys(json.RawMessage(`[{"uuid":"u1","id":"ignored"}]`))
	assert.Equal(t, []string{"c_u1"}, got)
}
