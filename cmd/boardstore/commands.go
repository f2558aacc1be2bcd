package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"boardstore/internal/codec"
	"boardstore/internal/permission"
	"boardstore/internal/persist"
	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var osFs = afero.NewOsFs()

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openManager builds and initializes a manager whose picker offers folder,
// falling back to the configured folder.
func openManager(cmd *cobra.Command, folder string) (*persist.Manager, error) {
	if folder == "" {
		folder = cfg.Storage.Directory.Path
	}
	picker := func(context.Context) (string, error) {
		if folder == "" {
			return "", errors.New("no storage folder given (pass one or set --folder)")
		}
		return folder, nil
	}
	prompter := func(_ context.Context, path string) (bool, error) {
		if assumeYes {
			return true, nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Allow boardstore to read and write %s? [y/N] ", path)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}

	m, err := persist.New(cfg, persist.Options{
		Platform: permission.NewLocalPlatform(picker, prompter),
	})
	if err != nil {
		return nil, err
	}
	m.OnWarning(func(key string, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", key, err)
	})
	if err := m.Init(commandContext(cmd)); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()
	return printJSON(cmd.OutOrStdout(), m.Status(commandContext(cmd)))
}

func runGet(cmd *cobra.Command, args []string) error {
	var def any
	if err := json.Unmarshal([]byte(defaultJSON), &def); err != nil {
		return fmt.Errorf("invalid --default: %w", err)
	}

	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	return printJSON(cmd.OutOrStdout(), m.GetItem(commandContext(cmd), args[0], def))
}

func runSet(cmd *cobra.Command, args []string) error {
	var raw []byte
	switch {
	case valueFile != "":
		data, err := afero.ReadFile(osFs, valueFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", valueFile, err)
		}
		raw = data
	case len(args) == 2:
		raw = []byte(args[1])
	default:
		return errors.New("a JSON value or --file is required")
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("value is not valid JSON: %w", err)
	}

	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.SaveItem(commandContext(cmd), args[0], value); err != nil {
		return err
	}
	logger.Debug("Stored key", zap.String("key", args[0]), zap.Int("bytes", len(raw)))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	m.RemoveItem(commandContext(cmd), args[0])
	return nil
}

func runPick(cmd *cobra.Command, args []string) error {
	folder := ""
	if len(args) == 1 {
		folder = args[0]
	}
	m, err := openManager(cmd, folder)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := commandContext(cmd)
	if !m.PickStorageFolder(ctx, permission.NewGesture()) {
		if m.Mode() == permission.EmbeddedOnly {
			return fmt.Errorf("cannot pick a folder: %w", storeerr.ErrCapabilityUnavailable)
		}
		return errors.New("storage folder was not selected")
	}

	st := m.Status(ctx)
	logger.Info("Storage folder selected", zap.String("folder", st.Folder))
	return printJSON(cmd.OutOrStdout(), st)
}

func runGrant(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := commandContext(cmd)
	if !m.RequestStoredPermission(ctx, permission.NewGesture()) {
		return fmt.Errorf("access to the storage folder: %w", storeerr.ErrPermissionDenied)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "access granted to %s\n", m.Status(ctx).Folder)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	key, file := args[0], args[1]

	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	v := m.GetItem(commandContext(cmd), key, nil)
	if v == nil {
		return fmt.Errorf("key %q: %w", key, storeerr.ErrNotFound)
	}
	blob, err := m.CreatePortableBlob(v)
	if err != nil {
		return err
	}

	if file == "-" {
		_, err = blob.WriteTo(cmd.OutOrStdout())
		return err
	}
	f, err := osFs.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}
	if _, err := blob.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	logger.Info("Exported key", zap.String("key", key), zap.String("file", file), zap.Int("bytes", blob.Len()))
	return f.Close()
}

func runImport(cmd *cobra.Command, args []string) error {
	file, key := args[0], args[1]

	var (
		v   any
		err error
	)
	if file == "-" {
		v, err = codec.ReadPortableBlob(cmd.InOrStdin())
	} else {
		v, err = codec.ReadPortableFile(osFs, file)
	}
	if err != nil {
		return err
	}

	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	return m.SaveItem(commandContext(cmd), key, v)
}

func runSync(cmd *cobra.Command, args []string) error {
	m, err := openManager(cmd, "")
	if err != nil {
		return err
	}
	defer m.Close()

	if m.Status(commandContext(cmd)).Permission != permission.Granted.String() {
		return fmt.Errorf("no accessible storage folder: %w", storeerr.ErrPermissionDenied)
	}
	report, err := m.BulkSync(commandContext(cmd))
	if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
		return perr
	}
	return err
}
