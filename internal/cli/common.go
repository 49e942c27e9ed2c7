package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/normalize"
	"github.com/ppiankov/caselabel/internal/pipeline"
	"github.com/ppiankov/caselabel/internal/store"
	"github.com/ppiankov/caselabel/internal/taxonomy"
)

// loadSchema resolves the configured taxonomy version. The built-in catalogue
// is always registered; a taxonomy file is registered under the configured
// version.
func loadSchema(cfg *model.Config) (*taxonomy.Schema, error) {
	registry := taxonomy.NewRegistry(taxonomy.Build(taxonomy.DefaultVersion))

	version := cfg.Taxonomy.Version
	if version == "" {
		version = taxonomy.DefaultVersion
	}

	if cfg.Taxonomy.File != "" {
		def, err := taxonomy.LoadDefinition(cfg.Taxonomy.File)
		if err != nil {
			return nil, err
		}
		if version == taxonomy.DefaultVersion {
			return nil, fmt.Errorf("taxonomy file %s needs its own version, %s is the built-in catalogue", cfg.Taxonomy.File, version)
		}
		if err := registry.Register(def.Build(version)); err != nil {
			return nil, err
		}
	} else if version != taxonomy.DefaultVersion {
		// The built-in catalogue under a different version label
		if err := registry.Register(taxonomy.Build(version)); err != nil {
			return nil, err
		}
	}

	schema, ok := registry.Get(version)
	if !ok {
		return nil, fmt.Errorf("unknown taxonomy version %q", version)
	}
	return schema, nil
}

// openStore opens the configured database
func openStore(cfg *model.Config) (*store.Store, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return s, nil
}

// newPipeline builds the suggestion pipeline for cfg
func newPipeline(cfg *model.Config, schema *taxonomy.Schema) *pipeline.Pipeline {
	return pipeline.NewFromConfig(cfg, schema, logger)
}

// cmdContext returns the command context, which is nil when a run function
// is called outside Execute
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// readInput reads a file, or stdin when path is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// textArg joins positional args, or reads --file when given. HTML files
// are reduced to their visible text.
func textArg(cmd *cobra.Command, args []string, file string) (string, error) {
	if file != "" {
		data, err := readInput(cmd, file)
		if err != nil {
			return "", err
		}
		if normalize.IsHTML(file) {
			text, err := normalize.VisibleText(string(data))
			if err != nil {
				return "", fmt.Errorf("parse %s: %w", file, err)
			}
			return text, nil
		}
		return strings.TrimSpace(string(data)), nil
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", fmt.Errorf("case text is required (pass it as arguments or use --file)")
	}
	return text, nil
}

// decodeLabel reads a label document in the persisted JSON shape. Unknown
// fields are rejected so a misspelled key is not silently dropped.
func decodeLabel(data []byte) (model.Label, error) {
	var label model.Label
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&label); err != nil {
		return label, fmt.Errorf("decode label: %w", err)
	}
	return label, nil
}

// decodeSuggestion reads the output of "caselabel suggest"
func decodeSuggestion(data []byte) (model.Suggestion, error) {
	var suggestion model.Suggestion
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&suggestion); err != nil {
		return suggestion, fmt.Errorf("decode suggestion: %w", err)
	}
	return suggestion, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
