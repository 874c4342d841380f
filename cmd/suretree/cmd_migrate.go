package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suretree-go/suretree/internal/treehash"
	"github.com/suretree-go/suretree/internal/weave"
)

// MigrateCommand defines the CLI command parameters for migrate.
type MigrateCommand struct {
	Older    string
	Newer    string
	Out      string
	WeaveLog string
}

var migrateCommand *MigrateCommand

var argMigOlder string
var argMigNewer string
var argMigOut string
var argMigWeaveLog string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Forward sha1 hashes from an older sure tree onto a newer one",
	Long: `migrate co-walks an older and a newer sure tree and writes out a
tree shaped like the newer one, with sha1 attributes copied across from the
older tree wherever a file's inode and ctime show it hasn't changed.

For example:

	suretree migrate --older gen1.sure --newer gen2.sure --out gen2.migrated.sure
`,
	Args: func(cmd *cobra.Command, args []string) error {
		migrateCommand = new(MigrateCommand)
		migrateCommand.Older = argMigOlder
		migrateCommand.Newer = argMigNewer
		migrateCommand.Out = argMigOut
		migrateCommand.WeaveLog = argMigWeaveLog

		if migrateCommand.Older == "" || migrateCommand.Newer == "" {
			return fmt.Errorf("expected --older and --newer sure tree paths")
		}
		if migrateCommand.Out == "" {
			return fmt.Errorf("expected --out path for the migrated tree")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = migrateCommand.Run(w, log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().StringVar(&argMigOlder, "older", "", "older generation's sure tree file")
	migrateCmd.PersistentFlags().StringVar(&argMigNewer, "newer", "", "newer generation's sure tree file")
	migrateCmd.PersistentFlags().StringVarP(&argMigOut, "out", "o", "", "path to write the migrated tree to")
	migrateCmd.PersistentFlags().StringVar(&argMigWeaveLog, "weave-log", "", "optional weave file to append a migration record to")
}

// Run executes migrate and returns (exit code, error).
func (c *MigrateCommand) Run(w, log Output) (int, error) {
	older, err := treehash.OpenSureTree(c.Older)
	if err != nil {
		return 1, fmt.Errorf("opening older sure tree: %w", err)
	}
	defer older.Close()

	newer, err := treehash.OpenSureTree(c.Newer)
	if err != nil {
		return 1, fmt.Errorf("opening newer sure tree: %w", err)
	}
	defer newer.Close()

	out, err := os.Create(c.Out)
	if err != nil {
		return 1, fmt.Errorf("creating output tree: %w", err)
	}
	defer out.Close()

	sw, err := treehash.NewSureTreeWriter(out)
	if err != nil {
		return 1, fmt.Errorf("writing output tree: %w", err)
	}

	forwarded := 0
	err = treehash.Migrate(older, newer, func(n treehash.Node) error {
		if n.Tag == treehash.TagFile && n.Attrs.HasSHA1() {
			forwarded++
		}
		return sw.Write(n)
	})
	if err != nil {
		return 1, err
	}
	if err := sw.Flush(); err != nil {
		return 1, fmt.Errorf("writing output tree: %w", err)
	}

	if c.WeaveLog != "" {
		if err := appendMigrationRecord(c.WeaveLog, c.Older, c.Newer, c.Out, forwarded); err != nil {
			return 1, fmt.Errorf("writing weave log: %w", err)
		}
	}

	log.Printfln("migrated tree written to %s (%d files carry a hash)", c.Out, forwarded)
	return 0, nil
}

func appendMigrationRecord(path, older, newer, out string, forwarded int) error {
	compressed := true
	w, err := weave.Open(path, compressed)
	if os.IsNotExist(err) {
		w, err = weave.Create(path, compressed)
	}
	if err != nil {
		return err
	}
	defer w.Close()

	lines := []string{
		fmt.Sprintf("older=%s", older),
		fmt.Sprintf("newer=%s", newer),
		fmt.Sprintf("out=%s", out),
		fmt.Sprintf("forwarded=%d", forwarded),
	}
	return w.WriteLines("migration", lines)
}
