// movierec 是推荐引擎的命令行入口。
//
//	movierec train     -config c.yaml [-rank 100]
//	movierec index     -config c.yaml
//	movierec recommend -config c.yaml (-user N | -liked a,b | -genres x -keywords y)
//	movierec evaluate  -config c.yaml
//	movierec options   -config c.yaml
//
// 配置按 默认值 -> YAML -> MOVIEREC_* 环境变量 叠加，详见 config.Load。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rushteam/movierec/logging"
)

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

var commands = map[string]command{
	"train":     {usage: "fit the SVD model and save the artifact", run: runTrain},
	"index":     {usage: "embed catalog genres/keywords and save the indexes", run: runIndex},
	"recommend": {usage: "print recommendations as JSON", run: runRecommend},
	"evaluate":  {usage: "holdout evaluation report", run: runEvaluate},
	"options":   {usage: "print catalog filter options as JSON", run: runOptions},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, os.Args[2:]); err != nil {
		log := logging.Component("cli")
		log.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: movierec <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].usage)
	}
}
