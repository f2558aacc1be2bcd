package config

// StorageConfig configures the persistence tiers.
type StorageConfig struct {
	Metadata    MetadataConfig    `yaml:"metadata"`
	Directory   DirectoryConfig   `yaml:"directory"`
	Mirror      MirrorConfig      `yaml:"mirror"`
	Compression CompressionConfig `yaml:"compression"`
	Keys        KeysConfig        `yaml:"keys"`
	Sync        SyncConfig        `yaml:"sync"`
}

// MetadataConfig configures the embedded fallback database.
type MetadataConfig struct {
	Driver      string `yaml:"driver"`       // sqlite, bolt
	Path        string `yaml:"path"`         // ":memory:" is accepted by sqlite only
	MaxBytes    int64  `yaml:"max_bytes"`    // 0 = unlimited; sqlite enforces it via max_page_count
	BusyTimeout string `yaml:"busy_timeout"` // sqlite busy_timeout / bolt open timeout
}

// DirectoryConfig configures the user-chosen directory tier.
type DirectoryConfig struct {
	// Enabled=false forces EmbeddedOnly mode regardless of platform support.
	Enabled bool `yaml:"enabled"`

	// Path preselects the folder the host's picker returns.
	Path string `yaml:"path"`

	// How long a user gesture may gate a prompt after it happened.
	ActivationWindow string `yaml:"activation_window"`

	// Watch the granted directory and invalidate permission when it disappears.
	Watch bool `yaml:"watch"`
}

// MirrorConfig configures the synchronous in-process mirror.
type MirrorConfig struct {
	QuotaBytes int `yaml:"quota_bytes"` // 0 = unlimited
}

// CompressionConfig configures the content codec.
type CompressionConfig struct {
	Level int `yaml:"level"` // gzip level, -1 = default, -2 = huffman only
}

// KeysConfig declares the application key catalog.
type KeysConfig struct {
	// Keys starting with ContentPrefix are Content keys (compressed).
	ContentPrefix string `yaml:"content_prefix"`

	// Fixed Meta keys copied by a bulk sync.
	MetaKeys []string `yaml:"meta_keys"`

	// Meta key whose array value lists the documents; each element's
	// IndexIDField yields a content key ContentPrefix+id.
	IndexKey     string `yaml:"index_key"`
	IndexIDField string `yaml:"index_id_field"`
}

// SyncConfig configures the bulk sync run after a folder is picked.
type SyncConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DefaultStorageConfig returns the defaults used by the whiteboard app.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Metadata: MetadataConfig{
			Driver:      "sqlite",
			Path:        "data/boardstore.db",
			BusyTimeout: "5s",
		},
		Directory: DirectoryConfig{
			Enabled:          true,
			ActivationWindow: "5s",
			Watch:            true,
		},
		Mirror: MirrorConfig{
			QuotaBytes: 5 << 20, // same order as browser localStorage
		},
		Compression: CompressionConfig{
			Level: -1,
		},
		Keys: KeysConfig{
			ContentPrefix: "wb_content_",
			MetaKeys:      []string{"wb_boards", "wb_folders", "wb_view_settings", "wb_expanded_folders"},
			IndexKey:      "wb_boards",
			IndexIDField:  "id",
		},
		Sync: SyncConfig{
			Concurrency: 1,
		},
	}
}
