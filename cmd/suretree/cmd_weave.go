package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suretree-go/suretree/internal/weave"
)

// WeaveCommand defines the CLI command parameters for weave.
type WeaveCommand struct {
	Action     string // "append" or "read"
	Path       string
	DeltaName  string
	Compressed bool
}

var weaveCommand *WeaveCommand

var argWeaveAction string
var argWeavePath string
var argWeaveDeltaName string
var argWeaveCompressed bool

var weaveCmd = &cobra.Command{
	Use:   "weave",
	Short: "Append a delta of lines to a weave file, or read one back",
	Long: `weave appends a named delta of lines (read from stdin) to an
append-only weave file, or reads every delta back out in order.

For example:

	echo -e "a\nb\nc" | suretree weave --action=append --path=log.weave --delta=gen1
	suretree weave --action=read --path=log.weave
`,
	Args: func(cmd *cobra.Command, args []string) error {
		weaveCommand = new(WeaveCommand)
		weaveCommand.Action = argWeaveAction
		weaveCommand.Path = argWeavePath
		weaveCommand.DeltaName = argWeaveDeltaName
		weaveCommand.Compressed = argWeaveCompressed

		if weaveCommand.Path == "" {
			return fmt.Errorf("expected --path pointing at a weave file")
		}
		switch weaveCommand.Action {
		case "append":
			if weaveCommand.DeltaName == "" {
				return fmt.Errorf("--action=append requires --delta=<name>")
			}
		case "read":
		default:
			return fmt.Errorf("expected --action to be 'append' or 'read', got %q", weaveCommand.Action)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = weaveCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(weaveCmd)
	weaveCmd.PersistentFlags().StringVar(&argWeaveAction, "action", "read", "'append' or 'read'")
	weaveCmd.PersistentFlags().StringVarP(&argWeavePath, "path", "p", "", "weave file path")
	weaveCmd.PersistentFlags().StringVar(&argWeaveDeltaName, "delta", "", "delta name, for --action=append")
	weaveCmd.PersistentFlags().BoolVar(&argWeaveCompressed, "gzip", true, "gzip-compress the weave file")
}

// Run executes weave and returns (exit code, error).
func (c *WeaveCommand) Run(w, log Output) (int, error) {
	switch c.Action {
	case "append":
		return c.runAppend(w)
	case "read":
		return c.runRead(w)
	default:
		return 1, fmt.Errorf("unknown action %q", c.Action)
	}
}

func (c *WeaveCommand) runAppend(w Output) (int, error) {
	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 1, fmt.Errorf("reading stdin: %w", err)
	}

	ws, err := weave.Open(c.Path, c.Compressed)
	if os.IsNotExist(err) {
		ws, err = weave.Create(c.Path, c.Compressed)
	}
	if err != nil {
		return 1, fmt.Errorf("opening weave file: %w", err)
	}
	defer ws.Close()

	if err := ws.WriteLines(c.DeltaName, lines); err != nil {
		return 1, fmt.Errorf("appending delta: %w", err)
	}
	w.Printfln("appended delta %q (%d lines) to %s", c.DeltaName, len(lines), ws.Name())
	return 0, nil
}

func (c *WeaveCommand) runRead(w Output) (int, error) {
	r, err := weave.OpenReader(c.Path, c.Compressed)
	if err != nil {
		return 1, fmt.Errorf("opening weave file: %w", err)
	}
	defer r.Close()

	for {
		name, line, ok, err := r.ReadLine()
		if err != nil {
			return 1, fmt.Errorf("reading weave file: %w", err)
		}
		if !ok {
			break
		}
		w.Printfln("%s: %s", name, line)
	}
	return 0, nil
}
