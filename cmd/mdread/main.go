package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/Giulio2002/mdmp"
)

var cfg struct {
	verbose bool
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	ctx := withOutput(context.Background(), os.Stdout)

	app := kingpin.New(filepath.Base(os.Args[0]), "Inspect Windows minidump files.").UsageWriter(os.Stdout)
	app.Version(mdmp.Version())
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Envar("MDREAD_VERBOSE").Default("false").BoolVar(&cfg.verbose)

	readCmd := app.Command("read", "Hex dump captured process memory.")
	readParams := addReadParams(readCmd)

	regionsCmd := app.Command("regions", "List captured memory regions.")
	regionsFile := addFileArg(regionsCmd)

	streamsCmd := app.Command("streams", "List the stream directory.")
	streamsFile := addFileArg(streamsCmd)

	threadsCmd := app.Command("threads", "List threads.")
	threadsFile := addFileArg(threadsCmd)

	modulesCmd := app.Command("modules", "List loaded modules.")
	modulesFile := addFileArg(modulesCmd)

	sysinfoCmd := app.Command("sysinfo", "Show system, exception and process information.").Alias("info")
	sysinfoFile := addFileArg(sysinfoCmd)

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	switch parsedCmd {
	case readCmd.FullCommand():
		os.Exit(checkError(readMemory(ctx, readParams)))
	case regionsCmd.FullCommand():
		os.Exit(checkError(listRegions(ctx, *regionsFile)))
	case streamsCmd.FullCommand():
		os.Exit(checkError(listStreams(ctx, *streamsFile)))
	case threadsCmd.FullCommand():
		os.Exit(checkError(listThreads(ctx, *threadsFile)))
	case modulesCmd.FullCommand():
		os.Exit(checkError(listModules(ctx, *modulesFile)))
	case sysinfoCmd.FullCommand():
		os.Exit(checkError(systemInfo(ctx, *sysinfoFile)))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
	}
}

func checkError(err error) int {
	switch {
	case err == nil:
		return 0
	case mdmp.IsFormatError(err):
		fmt.Fprintf(os.Stderr, "error: not a usable minidump: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return 1
}

func addFileArg(cmd *kingpin.CmdClause) *string {
	return cmd.Arg("file", "minidump file path").Required().ExistingFile()
}

type contextKey uint8

const (
	contextKeyOutput contextKey = iota
)

func withOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, contextKeyOutput, w)
}

func output(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(contextKeyOutput).(io.Writer); ok {
		return w
	}
	return os.Stdout
}
