package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skdltmxn/cxxfilt-go/demangle"
)

func newDumpCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump <mangled-name>",
		Short: "Print the syntax tree of a mangled name",
		Long: `Decode one mangled name and print its syntax tree.

Supported formats:
  - text: one node per line (default)
  - json: nested records with kind, detail and rendered text
  - yaml: same records as json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ast, err := demangle.Decode(args[0])
			if err != nil {
				return err
			}
			switch format {
			case "text":
				_, err = io.WriteString(a.output, ast.Dump())
				return err
			case "json":
				enc := json.NewEncoder(a.output)
				enc.SetIndent("", "  ")
				return enc.Encode(newNodeDump(ast.Root(), a.cfg.RenderOptions()))
			case "yaml":
				enc := yaml.NewEncoder(a.output)
				enc.SetIndent(2)
				if err := enc.Encode(newNodeDump(ast.Root(), a.cfg.RenderOptions())); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json, yaml)")
	return cmd
}

// NodeDump is the structured form of one syntax tree node.
type NodeDump struct {
	Kind     string     `json:"kind" yaml:"kind"`
	Detail   string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	Text     string     `json:"text,omitempty" yaml:"text,omitempty"`
	Children []NodeDump `json:"children,omitempty" yaml:"children,omitempty"`
}

func newNodeDump(n demangle.Node, opts demangle.Options) NodeDump {
	d := NodeDump{
		Kind:   n.Kind().String(),
		Detail: demangle.Describe(n),
	}
	if text, err := demangle.RenderNode(n, opts); err == nil {
		d.Text = text
	}
	for i := 0; i < n.NodeCount(); i++ {
		d.Children = append(d.Children, newNodeDump(n.Child(i), opts))
	}
	return d
}
