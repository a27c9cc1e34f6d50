// Command trickle streams a JSON document through the incremental parser,
// reporting field completions and validation issues as they happen.
//
//	trickle --schema schema.json --llm --chunk 16 < response.json
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	trickle "github.com/sohama/trickle"
	"github.com/sohama/trickle/jsonschema"
)

var CLI struct {
	Input    string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Schema   string `help:"Path to a JSON or YAML schema file." short:"s" type:"path"`
	Chunk    int    `help:"Feed the input in chunks of this many bytes (0 = one feed)." short:"c" default:"64"`
	LLM      bool   `help:"Enable lenient parsing for language-model output." name:"llm"`
	MaxDepth int    `help:"Maximum container nesting depth." default:"100"`
	Progress bool   `help:"Print field completions and issues while streaming." short:"p" default:"true" negatable:""`
}

func main() {
	parser := kong.Must(&CLI,
		kong.Name("trickle"),
		kong.Description("Incrementally parse and validate streamed JSON"),
		kong.UsageOnError(),
	)
	if _, err := parser.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trickle: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var schema *jsonschema.Schema
	if CLI.Schema != "" {
		var err error
		schema, err = loadSchema(CLI.Schema)
		if err != nil {
			return err
		}
	}

	input, err := readInput()
	if err != nil {
		return err
	}

	opts := trickle.Options{
		Schema:   schema,
		LLMMode:  CLI.LLM,
		MaxDepth: CLI.MaxDepth,
	}
	if CLI.Progress {
		opts.Events = trickle.Events{
			OnFieldComplete: func(key string, value any, parentPath string) {
				fmt.Fprintf(os.Stderr, "field %s.%s = %s\n", parentPath, key, render(value))
			},
			OnValidationIssue: func(it trickle.Issue) {
				fmt.Fprintf(os.Stderr, "issue %s at %s: %s\n", it.Keyword, it.PathString(), it.Message)
			},
		}
	}

	p := trickle.New(opts)
	var last trickle.Result
	for _, chunk := range chunks(input, CLI.Chunk) {
		last, err = p.Feed(chunk)
		if err != nil {
			return err
		}
	}

	if !last.Complete {
		fmt.Fprintf(os.Stderr, "input ended before the document completed; pending: %s\n",
			strings.Join(last.PendingFields, ", "))
	}
	fmt.Println(render(last.Data))
	if len(last.Errors) > 0 {
		return last.Errors
	}
	return nil
}

func readInput() (string, error) {
	if CLI.Input == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(CLI.Input)
	return string(data), err
}

// loadSchema reads a schema document, accepting YAML for .yaml/.yml files.
func loadSchema(path string) (*jsonschema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return jsonschema.FromValue(normalizeYAML(doc))
	default:
		return jsonschema.Parse(data)
	}
}

// normalizeYAML converts yaml.v3's map[string]any/[]any trees into the JSON
// data model (yaml.v3 already yields string keys; nested values recurse).
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func chunks(s string, size int) []string {
	if size <= 0 || size >= len(s) {
		return []string{s}
	}
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	return append(out, s)
}

func render(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
