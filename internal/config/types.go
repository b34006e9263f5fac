// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// LogLevelDebug logs every package load and emitted rule.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per generation.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs recoverable problems only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	LogFormatText   LogFormat = "text"
	LogFormatJSON   LogFormat = "json"
	LogFormatLogfmt LogFormat = "logfmt"

	ManifestFormatText ManifestFormat = "text"
	ManifestFormatTOML ManifestFormat = "toml"
	ManifestFormatYAML ManifestFormat = "yaml"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidManifestFormat is returned when a ManifestFormat value is not recognized.
	ErrInvalidManifestFormat = errors.New("invalid manifest format")
	// ErrInvalidVariants is the sentinel error wrapped by InvalidVariantsError.
	ErrInvalidVariants = errors.New("invalid variants")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// LogFormat selects the charmbracelet/log formatter.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// ManifestFormat selects the encoding of the test and publish manifests.
	ManifestFormat string

	// InvalidManifestFormatError is returned when a ManifestFormat value is not recognized.
	InvalidManifestFormatError struct {
		Value ManifestFormat
	}

	// InvalidVariantsError describes an inconsistent variant list. Field is
	// the configuration key at fault.
	InvalidVariantsError struct {
		Field   string
		Variant string
		Reason  string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the workspace configuration.
	Config struct {
		// SourceRoot holds the package tree, relative to the workspace.
		SourceRoot string `json:"source_root" mapstructure:"source_root"`
		// BuildRoot is the prefix of every generated artifact path.
		BuildRoot   string `json:"build_root" mapstructure:"build_root"`
		PublishRoot string `json:"publish_root" mapstructure:"publish_root"`
		// Variants lists build variants; the first is the reference variant.
		Variants []string `json:"variants" mapstructure:"variants"`
		// VerifyVariants get header verification actions only.
		VerifyVariants []string        `json:"verify_variants" mapstructure:"verify_variants"`
		Toolchain      ToolchainConfig `json:"toolchain" mapstructure:"toolchain"`
		Flags          FlagsConfig     `json:"flags" mapstructure:"flags"`
		Test           TestConfig      `json:"test" mapstructure:"test"`
		// VersionStamp is compiled into binaries when non-empty.
		VersionStamp string       `json:"version_stamp" mapstructure:"version_stamp"`
		Output       OutputConfig `json:"output" mapstructure:"output"`
		Log          LogConfig    `json:"log" mapstructure:"log"`
	}

	// ToolchainConfig names the programs written into recipe commands.
	ToolchainConfig struct {
		CC     string `json:"cc" mapstructure:"cc"`
		CXX    string `json:"cxx" mapstructure:"cxx"`
		MPICXX string `json:"mpicxx" mapstructure:"mpicxx"`
		AR     string `json:"ar" mapstructure:"ar"`
		Protoc string `json:"protoc" mapstructure:"protoc"`
		// PythonLDFlags are appended when linking py_extension rules,
		// typically the output of python3-config --ldflags.
		PythonLDFlags []string `json:"python_ldflags" mapstructure:"python_ldflags"`
	}

	// FlagsConfig holds compiler flags.
	FlagsConfig struct {
		Common []string `json:"common" mapstructure:"common"`
		// Variant maps a variant name to the flags of its compile and link
		// lines.
		Variant map[string][]string `json:"variant" mapstructure:"variant"`
	}

	// TestConfig configures test binaries.
	TestConfig struct {
		FrameworkLibs []string `json:"framework_libs" mapstructure:"framework_libs"`
	}

	// OutputConfig names the generated files. Empty manifest paths disable
	// the manifest.
	OutputConfig struct {
		Recipe          string         `json:"recipe" mapstructure:"recipe"`
		TestManifest    string         `json:"test_manifest" mapstructure:"test_manifest"`
		PublishManifest string         `json:"publish_manifest" mapstructure:"publish_manifest"`
		ManifestFormat  ManifestFormat `json:"manifest_format" mapstructure:"manifest_format"`
	}

	// LogConfig configures the CLI logger.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// AllVariants returns the build variants followed by the verify variants.
func (c Config) AllVariants() []string {
	return slices.Concat(c.Variants, c.VerifyVariants)
}

// IsValid returns whether the Config has valid fields. CUE checks the file
// shape; this covers values that can also arrive through the environment
// and relations between fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	errs = append(errs, c.variantErrors()...)
	if valid, fieldErrs := c.Output.ManifestFormat.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (c Config) variantErrors() []error {
	var errs []error
	if len(c.Variants) == 0 {
		errs = append(errs, &InvalidVariantsError{Field: "variants", Reason: "at least one build variant is required"})
	}
	seen := make(map[string]string)
	check := func(field string, vs []string) {
		for _, v := range vs {
			switch {
			case strings.TrimSpace(v) == "":
				errs = append(errs, &InvalidVariantsError{Field: field, Variant: v, Reason: "variant names must not be empty"})
			case v != strings.ToLower(v):
				errs = append(errs, &InvalidVariantsError{Field: field, Variant: v, Reason: "variant names must be lower case"})
			case reservedVariant(v):
				errs = append(errs, &InvalidVariantsError{Field: field, Variant: v, Reason: "name is reserved for a recipe alias"})
			case seen[v] != "":
				errs = append(errs, &InvalidVariantsError{Field: field, Variant: v, Reason: "already listed in " + seen[v]})
			default:
				seen[v] = field
			}
		}
	}
	check("variants", c.Variants)
	check("verify_variants", c.VerifyVariants)

	names := make([]string, 0, len(c.Flags.Variant))
	for name := range c.Flags.Variant {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, ok := seen[name]; !ok {
			errs = append(errs, &InvalidVariantsError{Field: "flags.variant", Variant: name, Reason: "not a configured variant"})
		}
	}
	return errs
}

// reservedVariant reports names that would collide with the aliases the
// recipe defines.
func reservedVariant(v string) bool {
	return v == "all" || v == "script_test" || strings.HasSuffix(v, "_test")
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func (e *InvalidVariantsError) Error() string {
	if e.Variant == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %q: %s", e.Field, e.Variant, e.Reason)
}

func (e *InvalidVariantsError) Unwrap() error { return ErrInvalidVariants }

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

func (f ManifestFormat) String() string { return string(f) }

// IsValid returns whether the ManifestFormat is one of the defined formats.
func (f ManifestFormat) IsValid() (bool, []error) {
	switch f {
	case ManifestFormatText, ManifestFormatTOML, ManifestFormatYAML:
		return true, nil
	default:
		return false, []error{&InvalidManifestFormatError{Value: f}}
	}
}

func (e *InvalidManifestFormatError) Error() string {
	return fmt.Sprintf("invalid manifest format %q (valid: text, toml, yaml)", e.Value)
}

func (e *InvalidManifestFormatError) Unwrap() error { return ErrInvalidManifestFormat }

// wellKnownVariantFlags apply to variants of these names when the
// configuration has no flags.variant table.
var wellKnownVariantFlags = map[string][]string{
	"opt": {"-O2", "-DNDEBUG"},
	"dbg": {"-O0", "-g"},
}

// DefaultVariantFlags returns the conventional flags of the well-known
// variants among variants.
func DefaultVariantFlags(variants []string) map[string][]string {
	out := make(map[string][]string)
	for _, v := range variants {
		if flags, ok := wellKnownVariantFlags[v]; ok {
			out[v] = slices.Clone(flags)
		}
	}
	return out
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SourceRoot:     ".",
		BuildRoot:      "build",
		PublishRoot:    "publish",
		Variants:       []string{"opt", "dbg"},
		VerifyVariants: []string{},
		Toolchain: ToolchainConfig{
			CC:            "cc",
			CXX:           "c++",
			MPICXX:        "mpicxx",
			AR:            "ar",
			Protoc:        "protoc",
			PythonLDFlags: []string{},
		},
		Flags: FlagsConfig{
			Common:  []string{"-Wall"},
			Variant: DefaultVariantFlags([]string{"opt", "dbg"}),
		},
		Test: TestConfig{
			FrameworkLibs: []string{"-lgtest_main", "-lgtest", "-lpthread"},
		},
		Output: OutputConfig{
			Recipe:          "build/mkgen.mk",
			TestManifest:    "build/tests.manifest",
			PublishManifest: "build/publish.manifest",
			ManifestFormat:  ManifestFormatText,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}
