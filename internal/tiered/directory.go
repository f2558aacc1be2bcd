package tiered

import (
	"encoding/json"
	"fmt"

	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// writeDirectory encodes raw with the key's current format and replaces
// {key}{ext} atomically through a temp file in the same directory.
func (s *Store) writeDirectory(fs afero.Fs, key string, raw json.RawMessage) error {
	f := s.chain(key).Current()
	data, err := f.Encode(raw)
	if err != nil {
		return err
	}
	name := key + f.Ext()

	tmp, err := afero.TempFile(fs, ".", name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, storeerr.Classify(err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, storeerr.Classify(err))
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, storeerr.Classify(err))
	}
	if err := fs.Rename(tmpName, name); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, storeerr.Classify(err))
	}
	return nil
}
