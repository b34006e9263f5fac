// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/internal/issue"
	"github.com/mkgen/mkgen/internal/manifest"
	"github.com/mkgen/mkgen/internal/recipe"
)

// WriteRecipe writes the recipe text to w.
func (p *Plan) WriteRecipe(w io.Writer) error {
	return recipe.Write(w, p.Actions)
}

// WriteFiles writes the recipe and the configured manifests below dir and
// returns the paths written. Each file is replaced atomically.
func (p *Plan) WriteFiles(dir string, out config.OutputConfig) ([]string, error) {
	format, err := manifest.ParseFormat(string(out.ManifestFormat))
	if err != nil {
		return nil, err
	}

	type output struct {
		name   string
		encode func(io.Writer) error
	}
	outputs := []output{
		{out.Recipe, p.WriteRecipe},
		{out.TestManifest, func(w io.Writer) error { return manifest.Write(w, format, p.Tests) }},
		{out.PublishManifest, func(w io.Writer) error { return manifest.Write(w, format, p.Publish) }},
	}

	var written []string
	for _, o := range outputs {
		if o.name == "" {
			continue
		}
		var buf bytes.Buffer
		if err := o.encode(&buf); err != nil {
			return written, fmt.Errorf("encode %s: %w", o.name, err)
		}
		target := filepath.Join(dir, o.name)
		if err := writeFileAtomic(target, buf.Bytes()); err != nil {
			return written, issue.NewErrorContext().
				WithOperation("write output").
				WithResource(target).
				WithSuggestion("Check that the output directory is writable").
				WithSuggestion("Use 'mkgen gen --stdout' to print the recipe instead").
				Wrap(err).
				BuildError()
		}
		written = append(written, target)
	}
	return written, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // the write error is reported
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
