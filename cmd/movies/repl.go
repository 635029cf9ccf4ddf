package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	movies "github.com/cloudxsgmbh/dynamodb-movies-go"
)

const commandPrompt = "Enter command ('help' to see all commands, 'exit' to quit)> "

// dispatcher is the part of *movies.Dispatcher the loop uses.
type dispatcher interface {
	Dispatch(ctx context.Context, line string, in movies.Prompter) movies.Response
}

// linePrompter prints a label and reads one line from r. A last line without
// a newline still counts.
func linePrompter(r *bufio.Reader, out io.Writer) movies.PrompterFunc {
	return func(label string) (string, error) {
		fmt.Fprint(out, label)
		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// runLoop reads commands until 'exit' or end of input. Commands run one at a
// time; a command that panics is reported and the loop goes on.
func runLoop(ctx context.Context, d dispatcher, in io.Reader, out io.Writer, logger *zap.Logger) error {
	prompt := linePrompter(bufio.NewReader(in), out)
	for {
		line, err := prompt(commandPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}
		line = movies.CollapseSpaces(line)
		switch line {
		case "":
			continue
		case movies.CmdExit:
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		runCycle(ctx, d, line, prompt, out, logger)
	}
}

func runCycle(ctx context.Context, d dispatcher, line string, p movies.Prompter, out io.Writer, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Command panicked", zap.String("command", line), zap.Any("panic", r))
			fmt.Fprintln(out, r)
		}
	}()
	resp := d.Dispatch(ctx, line, p)
	fmt.Fprintln(out, resp.Render())
}
