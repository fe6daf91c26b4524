package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/logging"
)

// shellMetaCommands registers the commands that only make sense inside the
// interactive shell: output formatting, delegating to the system shell,
// and inspecting/clearing the line history. quit/EOF are handled directly
// by runShell's read loop rather than as cobra commands, since they need
// to break out of it.
func shellMetaCommands(sess *session) []*cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "set output_format={table|csv|json}",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || !strings.HasPrefix(args[0], "output_format=") {
				err := fmt.Errorf("usage: set output_format={table|csv|json}")
				printError(sess.ctx, err)
				return err
			}
			value := strings.TrimPrefix(args[0], "output_format=")
			switch OutputFormat(value) {
			case FormatTable, FormatCSV, FormatJSON:
				sess.format = OutputFormat(value)
				printSuccess("output_format set to %s", value)
				return nil
			default:
				err := fmt.Errorf("unknown output_format %q", value)
				printError(sess.ctx, err)
				return err
			}
		},
	}

	shellCmd := &cobra.Command{
		Use:                "shell",
		Short:              "Run a command through the system shell",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemShell(sess.ctx, strings.Join(args, " "))
		},
	}

	showHistory := &cobra.Command{
		Use:   "show_history",
		Short: "List the commands entered this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, line := range sess.history {
				fmt.Printf("%4d  %s\n", i+1, line)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the terminal screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("\033[H\033[2J")
			return nil
		},
	}

	return []*cobra.Command{setCmd, shellCmd, showHistory, clearCmd}
}

func runSystemShell(ctx context.Context, command string) error {
	if command == "" {
		return nil
	}
	c := exec.Command("/bin/sh", "-c", command)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		printError(ctx, err)
		return err
	}
	return nil
}

// runShell is the interactive REPL. Per spec.md §6's exit code policy, a
// failing command in shell mode prints its error and continues the loop
// rather than exiting — only quit/EOF ends the session.
func runShell(sess *session, cfg *config.Config) {
	pterm.DefaultHeader.Println("pgbackman interactive shell")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("pgbackman=# ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("pgbackman=# ")
			continue
		}
		if expanded, stop := expandShortcut(line); stop {
			break
		} else {
			line = expanded
		}

		switch line {
		case "quit", "EOF":
			return
		}

		sess.history = append(sess.history, line)
		sess.ctx = logging.ContextWithNewOperationID(sess.ctx)

		fields, err := splitShellLine(line)
		if err != nil {
			printError(sess.ctx, err)
			fmt.Print("pgbackman=# ")
			continue
		}

		root := newRootCmd(sess, cfg)
		root.SetArgs(fields)
		if err := root.Execute(); err != nil {
			// Already reported via printError inside the command's RunE;
			// the shell never exits on a command failure.
		}
		fmt.Print("pgbackman=# ")
	}
}

// expandShortcut rewrites the \h/\?/\s/\q/\! shell shortcuts into their
// full command form. stop is true only for \q, which ends the shell
// immediately; a typed "quit" or "EOF" is handled by runShell's loop.
func expandShortcut(line string) (expanded string, stop bool) {
	switch {
	case line == "\\h" || line == "\\?":
		return "help", false
	case line == "\\s":
		return "show_history", false
	case line == "\\q":
		return "quit", true
	case strings.HasPrefix(line, "\\!"):
		return "shell " + strings.TrimSpace(strings.TrimPrefix(line, "\\!")), false
	default:
		return line, false
	}
}

// splitShellLine does a simple quote-aware split of a shell command line
// into argv, the way the CLI's non-interactive entrypoint receives
// os.Args: double- and single-quoted spans are kept together.
func splitShellLine(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	var quote rune
	inField := false

	flush := func() {
		if inField {
			fields = append(fields, cur.String())
			cur.Reset()
			inField = false
		}
	}

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inField = true
		case r == ' ' || r == '\t':
			flush()
		default:
			inField = true
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in: %s", line)
	}
	flush()
	return fields, nil
}
