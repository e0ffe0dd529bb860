package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints payload as JSON under --json and otherwise calls render.
func (c *commandContext) emit(cmd *cobra.Command, payload any, render func(io.Writer) error) error {
	if c.jsonMode() {
		return writeJSON(cmd, payload)
	}
	return render(cmd.OutOrStdout())
}
