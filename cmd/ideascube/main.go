// ideascube 服务器管理命令行：重建索引、备份、配置、媒体导入、用户与迁移
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ideascube/ideascube-sub000/config"
	"github.com/ideascube/ideascube-sub000/internal/app"
	"github.com/ideascube/ideascube-sub000/internal/service"
	applogger "github.com/ideascube/ideascube-sub000/pkg/logger"
)

// 退出码
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var (
	// errUsage 参数错误，输出用法后以 exitUsage 退出
	errUsage = errors.New("usage")
	// errSilent 命令已自行输出结果，仅需以 exitError 退出
	errSilent = errors.New("silent failure")
)

// env 命令执行环境
type env struct {
	svc *service.Service
	in  *bufio.Reader
	out io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"reindex":       {usage: "reindex", run: runReindex},
	"backup":        {usage: "backup [list|create|add|delete|restore|push] [reference] [--format F] [--noinput]", run: runBackup},
	"config":        {usage: "config list|get|set|reset|describe [namespace] [key] [json-value]", run: runConfig},
	"import-medias": {usage: "import-medias <path> [--update] [--dry-run] [--encoding E] [--verbosity N]", run: runImportMedias},
	"user":          {usage: "user create <serial> <password> [--staff] [--full-name N] | user list", run: runUser},
	"migrate":       {usage: "migrate", run: runMigrate},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("ideascube", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "配置文件路径")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		printUsage(stderr)
		return exitUsage
	}

	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command %q\n\n", name)
		printUsage(stderr)
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return exitError
	}
	if os.Getenv("IDEASCUBE_LOG_FORMAT") == "" {
		cfg.Log.Format = "console"
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("初始化失败", zap.Error(err))
		return exitError
	}
	defer a.Close()

	e := &env{svc: a.Service, in: bufio.NewReader(stdin), out: stdout}
	return finish(cmd.run(ctx, e, global.Args()[1:]), cmd.usage, stderr)
}

// finish 将命令错误转换为退出码
func finish(err error, usage string, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errSilent):
		return exitError
	case errors.Is(err, errUsage):
		if msg := strings.TrimPrefix(err.Error(), errUsage.Error()); msg != "" {
			fmt.Fprintln(stderr, strings.TrimPrefix(msg, ": "))
		}
		fmt.Fprintf(stderr, "usage: ideascube %s\n", usage)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: ideascube [--config path] <command> [args]")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

// usageError 参数错误
func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// parseArgs 解析允许与位置参数交错出现的选项，返回位置参数
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageError("%v", err)
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func runMigrate(_ context.Context, e *env, args []string) error {
	if len(args) > 0 {
		return usageError("unexpected arguments %v", args)
	}
	// 迁移在初始化阶段已执行
	fmt.Fprintln(e.out, "Migrations applied.")
	return nil
}
