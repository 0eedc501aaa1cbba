package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/polzovatel/web-agent-ai/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.New()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var saveLog bool

	root := &cobra.Command{
		Use:   "agent [instruction]",
		Short: "Turn a natural-language instruction into browser actions and run them",
		Long: `agent fetches the page named in the instruction, asks a language model for a
list of browser actions and executes them in a chromium window.

Example:
  agent "https://example.com click the More information link and take a screenshot"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction, ok, err := instructionFrom(args, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil || !ok {
				return err
			}
			a, err := newApp(v)
			if err != nil {
				return report(cmd, err)
			}
			defer a.close()
			return report(cmd, a.run(cmd.Context(), instruction, cmd.OutOrStdout(), saveLog))
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.StringP("model", "m", "claude", "generation backend: claude or gpt4o")
	flags.Bool("no-chunk", false, "send all page elements in a single request")
	flags.Int("max-chunk-size", 100000, "maximum serialized chunk size in characters")
	flags.Bool("headless", false, "run chromium without a window")
	flags.Bool("install", false, "install the playwright driver and chromium before launching")
	flags.String("log-level", "debug", "log level for the log file and console")
	root.Flags().BoolVar(&saveLog, "save-log", false, "write reported steps to the action log file")
	root.Flags().String("action-log", "actions_log.txt", "action log path used by --save-log")

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("model", flags.Lookup("model"))
	_ = v.BindPFlag("chunking.max_size", flags.Lookup("max-chunk-size"))
	_ = v.BindPFlag("browser.headless", flags.Lookup("headless"))
	_ = v.BindPFlag("browser.install", flags.Lookup("install"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("action_log.path", root.Flags().Lookup("action-log"))

	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if noChunk, _ := cmd.Flags().GetBool("no-chunk"); noChunk {
			v.Set("chunking.enabled", false)
		}
	}

	root.AddCommand(newPlanCmd(v))
	return root
}

func newPlanCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [instruction]",
		Short: "Print the generated actions without opening a browser",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction, ok, err := instructionFrom(args, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil || !ok {
				return err
			}
			a, err := newApp(v)
			if err != nil {
				return report(cmd, err)
			}
			defer a.close()
			return report(cmd, a.plan(cmd.Context(), instruction, cmd.OutOrStdout()))
		},
	}
}

func report(cmd *cobra.Command, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	}
	return err
}

func instructionFrom(args []string, in io.Reader, out io.Writer) (string, bool, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), true, nil
	}
	task, cancelled, err := promptTask(in, out)
	if err != nil {
		return "", false, err
	}
	if cancelled {
		fmt.Fprintln(out, "Cancelled.")
		return "", false, nil
	}
	return task, true, nil
}

const maxTaskLength = 2000

func promptTask(in io.Reader, out io.Writer) (string, bool, error) {
	reader := bufio.NewReader(in)
	fmt.Fprint(out, "Enter an instruction (leave empty to cancel): ")
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", true, nil
		}
		return "", false, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", true, nil
	}

	if r := []rune(line); len(r) > maxTaskLength {
		fmt.Fprintf(out, "Instruction too long (max %d characters), truncated\n", maxTaskLength)
		line = string(r[:maxTaskLength])
	}

	// drop control characters except tabs
	var sanitized strings.Builder
	for _, r := range line {
		if r >= 32 || r == '\t' {
			sanitized.WriteRune(r)
		}
	}
	return sanitized.String(), false, nil
}
