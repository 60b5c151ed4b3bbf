// Command kaleido compiles and evaluates kaleido programs.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	kcli "github.com/orizon-lang/kaleido/internal/cli"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log progress information",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "Log debug information",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format: text, json or terminal",
	}

	watchFlag = cli.BoolFlag{
		Name:  "watch",
		Usage: "Re-run when the source file changes",
	}
	stopOnErrorFlag = cli.BoolFlag{
		Name:  "stop-on-error",
		Usage: "Stop at the first form that fails",
	}
	astFlag = cli.BoolFlag{
		Name:  "ast",
		Usage: "Print the parsed tree before generating",
	}
	fillDeclarationsFlag = cli.BoolFlag{
		Name:  "fill-declarations",
		Usage: "Let a definition supply the body of an earlier extern",
	}
	traceScanFlag = cli.BoolFlag{
		Name:  "trace-scan",
		Usage: "Print every token",
	}
	quietIRFlag = cli.BoolFlag{
		Name:  "quiet-ir",
		Usage: "Do not print generated IR",
	}
	maxStepsFlag = cli.IntFlag{
		Name:  "max-steps",
		Usage: "Instruction budget per top-level expression (0 = unlimited)",
	}
	emitLLVMFlag = cli.StringFlag{
		Name:  "emit-llvm",
		Usage: "Write LLVM assembly to `FILE` (- for stdout)",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "Output in JSON format",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "kaleido"
	app.Usage = "compile and evaluate kaleido programs"
	app.Version = kcli.Version
	app.Flags = []cli.Flag{configFileFlag, verboseFlag, debugFlag, logFormatFlag}
	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "Generate and evaluate programs",
			ArgsUsage: "FILE [FILE...]",
			Flags:     []cli.Flag{watchFlag, stopOnErrorFlag, fillDeclarationsFlag, astFlag, traceScanFlag, quietIRFlag, maxStepsFlag},
			Action:    runCommand,
		},
		{
			Name:      "ast",
			Usage:     "Print the parsed tree",
			ArgsUsage: "FILE",
			Action:    astCommand,
		},
		{
			Name:      "ir",
			Usage:     "Print the generated module",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{stopOnErrorFlag, fillDeclarationsFlag},
			Action:    irCommand,
		},
		{
			Name:      "build",
			Usage:     "Translate a program to LLVM assembly",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{emitLLVMFlag, stopOnErrorFlag, fillDeclarationsFlag},
			Action:    buildCommand,
		},
		{
			Name:      "symbols",
			Usage:     "List the functions a program defines",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{fillDeclarationsFlag},
			Action:    symbolsCommand,
		},
		{
			Name:   "repl",
			Usage:  "Start an interactive session",
			Flags:  []cli.Flag{fillDeclarationsFlag, quietIRFlag, maxStepsFlag},
			Action: replCommand,
		},
		{
			Name:   "version",
			Usage:  "Print version information",
			Flags:  []cli.Flag{jsonFlag},
			Action: versionCommand,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
