package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suretree-go/suretree/internal/meter"
	"github.com/suretree-go/suretree/internal/treehash"
)

// HashUpdateCommand defines the CLI command parameters for hash-update.
type HashUpdateCommand struct {
	Tree     string
	DB       string
	Root     string
	Threaded bool
	Workers  int
}

var hashUpdateCommand *HashUpdateCommand

var argHUTree string
var argHUDB string
var argHURoot string
var argHUThreaded bool
var argHUWorkers int

var hashUpdateCmd = &cobra.Command{
	Use:   "hash-update",
	Short: "Hash every file in a sure tree that doesn't have a hash yet",
	Long: `hash-update walks a sure tree file, computes SHA-1 for every file
entry lacking one, and records the results in a SQLite hash database.

For example:

	suretree hash-update --tree snapshot.sure --db hashes.sqlite --threaded --workers 4
`,
	Args: func(cmd *cobra.Command, args []string) error {
		hashUpdateCommand = new(HashUpdateCommand)
		hashUpdateCommand.Tree = argHUTree
		hashUpdateCommand.DB = argHUDB
		hashUpdateCommand.Root = argHURoot
		hashUpdateCommand.Threaded = argHUThreaded
		hashUpdateCommand.Workers = argHUWorkers

		if hashUpdateCommand.Tree == "" {
			return fmt.Errorf("expected --tree pointing at a sure tree file")
		}
		if hashUpdateCommand.DB == "" {
			hashUpdateCommand.DB = EnvOr("SURETREE_HASH_DB", "hashes.sqlite")
		}
		if !argHUThreaded {
			if envThreaded, err := EnvToBool("SURETREE_THREADED"); err == nil {
				hashUpdateCommand.Threaded = envThreaded
			}
		}
		if hashUpdateCommand.Workers <= 0 {
			if envWorkers, ok := EnvToInt("SURETREE_WORKERS"); ok {
				hashUpdateCommand.Workers = envWorkers
			} else {
				hashUpdateCommand.Workers = countCPUs()
			}
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = hashUpdateCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(hashUpdateCmd)
	hashUpdateCmd.PersistentFlags().StringVarP(&argHUTree, "tree", "t", "", "sure tree file to hash")
	hashUpdateCmd.PersistentFlags().StringVarP(&argHUDB, "db", "d", "", "SQLite hash database path")
	hashUpdateCmd.PersistentFlags().StringVarP(&argHURoot, "root", "r", treehash.RootName, "logical root path reported in output")
	hashUpdateCmd.PersistentFlags().BoolVar(&argHUThreaded, "threaded", false, "use the worker-pool hasher")
	hashUpdateCmd.PersistentFlags().IntVarP(&argHUWorkers, "workers", "w", 0, "worker count for --threaded (default: NumCPU)")
}

// Run executes hash-update and returns (exit code, error).
func (c *HashUpdateCommand) Run(w, log Output) (int, error) {
	reader, err := treehash.OpenSureTree(c.Tree)
	if err != nil {
		return 1, fmt.Errorf("opening sure tree: %w", err)
	}
	defer reader.Close()

	ctx := context.Background()
	db, err := treehash.OpenHashDB(ctx, c.DB)
	if err != nil {
		return 1, fmt.Errorf("opening hash database: %w", err)
	}
	defer db.Close()

	m := meter.NewFor(os.Stderr)
	opts := treehash.DriverOptions{
		Root:     c.Root,
		Threaded: c.Threaded,
		Workers:  c.Workers,
		Meter:    m,
	}

	if err := treehash.UpdateHashes(ctx, db, reader, opts); err != nil {
		return 1, err
	}
	if t, ok := m.(*meter.Terminal); ok {
		t.Finish()
	}
	w.Println("done")
	return 0, nil
}
