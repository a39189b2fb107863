package wrappers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
)

var yamlErrorLine = regexp.MustCompile(`line (\d+)`)

// Data checks that JSON, YAML and TOML files parse. Files of other types
// are ignored. When the "command" option is set the wrapper instead runs
// that validator (e.g. a dbt or great-expectations entrypoint) like native.
type Data struct {
	svc    domain.Services
	native *Native
}

// NewData constructs the data wrapper
func NewData(svc domain.Services, _ map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewIndividualInstance(constants.WrapperData, &Data{
		svc:    svc,
		native: &Native{svc: svc},
	}), nil
}

// Name returns the wrapper name
func (d *Data) Name() string { return constants.WrapperData }

// Execute validates every data file in files
func (d *Data) Execute(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	if optString(opts, "command", "") != "" {
		return d.native.Execute(ctx, files, opts)
	}

	var violations []domain.Violation
	checked := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		validate := validatorFor(file)
		if validate == nil {
			continue
		}
		checked++

		data, err := d.svc.FS.ReadFile(file)
		if err != nil {
			violations = append(violations, domain.Violation{File: file, Severity: domain.SeverityError, Message: err.Error()})
			continue
		}
		if line, msg, ok := validate(data); !ok {
			violations = append(violations, domain.Violation{
				File:     file,
				Severity: domain.SeverityError,
				Message:  msg,
				Line:     line,
				Rule:     "syntax",
			})
		}
	}

	return &domain.WrapperResult{
		Success:    len(violations) == 0,
		Violations: violations,
		Metadata:   metadata(checked),
	}, nil
}

// validator returns the failing line (0 if unknown), a message, and whether data is valid
type validator func(data []byte) (int, string, bool)

func validatorFor(file string) validator {
	switch strings.ToLower(path.Ext(file)) {
	case ".json":
		return validateJSON
	case ".yaml", ".yml":
		return validateYAML
	case ".toml":
		return validateTOML
	}
	return nil
}

func validateJSON(data []byte) (int, string, bool) {
	var v any
	err := json.Unmarshal(data, &v)
	if err == nil {
		return 0, "", true
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return lineAt(data, syntaxErr.Offset), syntaxErr.Error(), false
	}
	return 0, err.Error(), false
}

func validateYAML(data []byte) (int, string, bool) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	// multi-document streams are valid; check each document
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return 0, "", true
		}
		line := 0
		if m := yamlErrorLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		return line, err.Error(), false
	}
}

func validateTOML(data []byte) (int, string, bool) {
	var v map[string]any
	err := toml.Unmarshal(data, &v)
	if err == nil {
		return 0, "", true
	}
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, _ := decodeErr.Position()
		return row, decodeErr.Error(), false
	}
	return 0, err.Error(), false
}

// lineAt converts a byte offset into a 1-based line number
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}
