package helper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/0xPolygon/proof-relay/command"
	"github.com/0xPolygon/proof-relay/command/relayer/config"
	"github.com/0xPolygon/proof-relay/types"
	"github.com/0xPolygon/proof-relay/verifier"
	"github.com/hashicorp/go-hclog"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
)

const (
	ProcessedDBName  = "processed.db"
	ProcessedDirName = "processed"
	CursorsDBName    = "cursors.db"
	TrieDirName      = "trie"
)

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// NewLogger builds the process logger. An empty logFile logs to stderr.
// The returned closer releases the log file.
func NewLogger(name, level string, jsonFormat bool, logFile string) (hclog.Logger, io.Closer, error) {
	var (
		output io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0750); err != nil {
			return nil, nil, fmt.Errorf("could not create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("could not create log file, %w", err)
		}

		output, closer = file, file
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
	})

	return logger, closer, nil
}

// OpenProcessedSet opens the processed set of the given backend under dataDir
func OpenProcessedSet(backend, dataDir string) (verifier.ProcessedSet, error) {
	switch backend {
	case config.DBBackendMemory:
		return verifier.NewMemoryProcessedSet(), nil
	case config.DBBackendBolt:
		return verifier.NewBoltProcessedSet(filepath.Join(dataDir, ProcessedDBName))
	case config.DBBackendLevelDB:
		return verifier.NewLevelDBProcessedSet(filepath.Join(dataDir, ProcessedDirName))
	default:
		return nil, fmt.Errorf("unknown db backend %q", backend)
	}
}

// ParseAddress parses a 0x prefixed 20 byte address
func ParseAddress(raw string) (types.Address, error) {
	var addr types.Address

	if err := addr.UnmarshalText([]byte(raw)); err != nil {
		return types.ZeroAddress, err
	}

	return addr, nil
}

// ParseHash parses a 0x prefixed 32 byte hash
func ParseHash(raw string) (types.Hash, error) {
	var hash types.Hash

	if err := hash.UnmarshalText([]byte(raw)); err != nil {
		return types.ZeroHash, err
	}

	return hash, nil
}
