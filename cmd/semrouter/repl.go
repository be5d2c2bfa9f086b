package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

const replHelp = `Type a query to route it. Commands:
  :k <n>     set the number of routes shown
  :routes    list the catalog
  :help      show this help
  :quit      leave`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Route queries interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		router, closer, err := buildRouter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		rl, err := readline.New("> ")
		if err != nil {
			return err
		}
		defer func() {
			_ = rl.Close()
		}()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, replHelp)

		session := &replSession{router: router, topK: router.DefaultTopK(), out: out}
		for {
			line, err := rl.Readline()
			if err != nil { // io.EOF or interrupt
				return nil
			}
			if !session.handle(ctx, line) {
				return nil
			}
		}
	},
}

// replSession holds the state of one interactive session.
type replSession struct {
	router *semanticrouter.Router
	topK   int
	out    io.Writer
}

// handle processes one input line and reports whether to keep going.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	if strings.HasPrefix(line, ":") {
		fields := strings.Fields(line[1:])
		switch {
		case len(fields) == 0:
		case fields[0] == "quit" || fields[0] == "q" || fields[0] == "exit":
			return false
		case fields[0] == "help":
			fmt.Fprintln(s.out, replHelp)
		case fields[0] == "routes":
			for _, r := range s.router.Routes() {
				fmt.Fprintf(s.out, "%s\t%s (%d examples)\n", r.Name, r.Description, len(r.Examples))
			}
		case fields[0] == "k" && len(fields) == 2:
			k, err := strconv.Atoi(fields[1])
			if err != nil || k < 1 {
				fmt.Fprintln(s.out, "top_k must be a positive integer")
				return true
			}
			s.topK = k
		default:
			fmt.Fprintf(s.out, "unknown command %q\n", line)
		}
		return true
	}

	res, err := s.router.Route(ctx, line, s.topK)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return true
	}
	printResults(s.out, []semanticrouter.Result{res})
	return true
}
