// SPDX-License-Identifier: MPL-2.0

package buildfile

import (
	_ "embed"

	"cuelang.org/go/cue"

	"github.com/mkgen/mkgen/pkg/cueutil"
)

//go:embed build_schema.cue
var cueSchema []byte

// cueFile is the CUE shape of a descriptor. Package flags are top-level
// fields because "package" is a CUE keyword.
type cueFile struct {
	Private     bool   `json:"private"`
	PublishOnly bool   `json:"publish_only"`
	Rules       []Rule `json:"rules"`
}

// ParseCUE decodes a BUILD.cue descriptor. Schema violations are returned as
// *cueutil.Error.
func ParseCUE(data []byte, filename string) (*File, error) {
	res, err := cueutil.ParseAndDecode[cueFile](cueSchema, data, "#File", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	f := &File{
		Package: Package{Private: res.Value.Private, PublishOnly: res.Value.PublishOnly},
		Rules:   res.Value.Rules,
	}

	iter, err := res.Unified.LookupPath(cue.ParsePath("rules")).List()
	if err == nil {
		for i := 0; iter.Next() && i < len(f.Rules); i++ {
			f.Rules[i].Line = iter.Value().Pos().Line()
		}
	}
	return f, nil
}
