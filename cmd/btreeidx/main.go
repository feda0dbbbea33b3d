// Command btreeidx is the thin front-end that binds the index
// session's command surface onto a terminal: one cobra subcommand per
// session operation, plus a readline-driven REPL for interactive use.
// It never touches the tree engine or node codec directly — every
// operation goes through pkg/index.Session.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"btreeidx/pkg/index"
)

var (
	yes = false
	log = newLogger()

	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetOutput(os.Stderr)
	return l
}

func main() {
	root := &cobra.Command{
		Use:   "btreeidx",
		Short: "A disk-backed B-tree index",
	}
	root.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "auto-confirm overwriting existing files")

	root.AddCommand(
		createCmd(),
		insertCmd(),
		searchCmd(),
		loadCmd(),
		printCmd(),
		extractCmd(),
		replCmd(),
	)

	if err := root.Execute(); err != nil {
		fail(err)
		os.Exit(1)
	}
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <path>",
		Short: "Create a new index file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := index.New(log)
			if err := s.Create(args[0], yes); err != nil {
				return err
			}
			defer s.Close()
			succeed("created %s", args[0])
			return nil
		},
	}
}

func insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <path> <key> <value>",
		Short: "Insert a key/value pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := parseKeyValue(args[1], args[2])
			if err != nil {
				return err
			}
			s := index.New(log)
			if err := s.Open(args[0]); err != nil {
				return err
			}
			defer s.Close()
			if err := s.Insert(key, value); err != nil {
				return err
			}
			succeed("inserted key=%d, value=%d", key, value)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <path> <key>",
		Short: "Search for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseUint(args[1])
			if err != nil {
				return err
			}
			s := index.New(log)
			if err := s.Open(args[0]); err != nil {
				return err
			}
			defer s.Close()
			value, ok, err := s.Search(key)
			if err != nil {
				return err
			}
			if !ok {
				warn("key %d not found", key)
				return nil
			}
			succeed("found: key=%d, value=%d", key, value)
			return nil
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <path> <datafile>",
		Short: "Bulk-load key,value lines from a text file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := index.New(log)
			if err := s.Open(args[0]); err != nil {
				return err
			}
			defer s.Close()
			if err := s.Load(args[1]); err != nil {
				return err
			}
			succeed("loaded data from %s", args[1])
			return nil
		},
	}
}

func printCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <path>",
		Short: "Print the tree structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := index.New(log)
			if err := s.Open(args[0]); err != nil {
				return err
			}
			defer s.Close()
			return s.Print(os.Stdout)
		},
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <path> <outfile>",
		Short: "Extract all key,value pairs in order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := index.New(log)
			if err := s.Open(args[0]); err != nil {
				return err
			}
			defer s.Close()
			if err := s.Extract(args[1], yes); err != nil {
				return err
			}
			succeed("extracted to %s", args[1])
			return nil
		},
	}
}

// replCmd starts an interactive line-editing loop over the same verbs
// the one-shot subcommands expose, keeping a single session open
// across commands the way the source's command loop does.
func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

func runRepl() error {
	rl, err := readline.New("index> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	s := index.New(log)
	defer s.Close()

	fmt.Println("Commands: create, open, insert, search, load, print, extract, quit")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, rest := fields[0], fields[1:]
		if cmd == "quit" {
			break
		}
		if err := dispatch(s, cmd, rest); err != nil {
			fail(err)
		}
	}
	return nil
}

func dispatch(s *index.Session, cmd string, args []string) error {
	switch cmd {
	case "create":
		if len(args) != 1 {
			return fmt.Errorf("usage: create <path>")
		}
		if err := s.Create(args[0], yes); err != nil {
			return err
		}
		succeed("created %s", args[0])
	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: open <path>")
		}
		if err := s.Open(args[0]); err != nil {
			return err
		}
		succeed("opened %s", args[0])
	case "insert":
		if len(args) != 2 {
			return fmt.Errorf("usage: insert <key> <value>")
		}
		key, value, err := parseKeyValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := s.Insert(key, value); err != nil {
			return err
		}
		succeed("inserted key=%d, value=%d", key, value)
	case "search":
		if len(args) != 1 {
			return fmt.Errorf("usage: search <key>")
		}
		key, err := parseUint(args[0])
		if err != nil {
			return err
		}
		value, ok, err := s.Search(key)
		if err != nil {
			return err
		}
		if !ok {
			warn("key %d not found", key)
			return nil
		}
		succeed("found: key=%d, value=%d", key, value)
	case "load":
		if len(args) != 1 {
			return fmt.Errorf("usage: load <path>")
		}
		if err := s.Load(args[0]); err != nil {
			return err
		}
		succeed("loaded data from %s", args[0])
	case "print":
		return s.Print(os.Stdout)
	case "extract":
		if len(args) != 1 {
			return fmt.Errorf("usage: extract <path>")
		}
		if err := s.Extract(args[0], yes); err != nil {
			return err
		}
		succeed("extracted to %s", args[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func parseKeyValue(rawKey, rawValue string) (uint64, uint64, error) {
	key, err := parseUint(rawKey)
	if err != nil {
		return 0, 0, err
	}
	value, err := parseUint(rawValue)
	if err != nil {
		return 0, 0, err
	}
	return key, value, nil
}

func parseUint(raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", index.ErrInvalidInput, raw)
	}
	return v, nil
}

func succeed(format string, args ...any) {
	okColor.Println(fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warn(msg)
	warnColor.Fprintln(os.Stderr, msg)
}

func fail(err error) {
	log.Error(err)
	errColor.Fprintln(os.Stderr, err)
}
