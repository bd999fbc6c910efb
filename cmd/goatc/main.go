// Command goatc is the C11-subset compiler's entry point: a single cobra
// command taking one source file and the flags spec.md §6 lists. Grounded
// on the teacher's own `command`/`init`/`main` shape (main.go): a
// package-level `*cobra.Command` built with `cobra.ExactArgs(1)`, flags
// registered in `init`, and a `Run` func that builds the pipeline object
// and reports its error the teacher's way.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gorse-io/goatc/internal/diag"
	"github.com/gorse-io/goatc/internal/driver"
)

var command = &cobra.Command{
	Use:  "goatc <source> [-o output]",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.PersistentFlags()
		includePaths, _ := flags.GetStringSlice("include-path")
		defines, _ := flags.GetStringSlice("define")
		undefines, _ := flags.GetStringSlice("undefine")
		output, _ := flags.GetString("output")
		preprocessOnly, _ := flags.GetBool("preprocess-only")
		stopAtAsm, _ := flags.GetBool("stop-at-assembly")
		assemble, _ := flags.GetBool("compile")
		dumpAST, _ := flags.GetBool("dump-ast")
		dumpStack, _ := flags.GetBool("dump-stack")
		noDumpSource, _ := flags.GetBool("no-dump-source")
		wall, _ := flags.GetBool("wall")
		werror, _ := flags.GetBool("werror")
		nowarn, _ := flags.GetBool("no-warn")

		sink := diag.NewSink()
		sink.WarningsEnabled = !nowarn
		sink.WarningsAsErrors = werror

		opts := driver.Options{
			IncludePaths:   includePaths,
			Defines:        defines,
			Undefines:      undefines,
			Output:         output,
			PreprocessOnly: preprocessOnly,
			StopAtAssembly: stopAtAsm,
			Assemble:       assemble,
			DumpAST:        dumpAST,
			DumpStack:      dumpStack,
			NoDumpSource:   noDumpSource,
			WarnAll:        wall,
			WarnError:      werror,
			NoWarn:         nowarn,
		}

		unit, err := driver.NewUnit(args[0], opts, sink)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := unit.Compile(); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	flags := command.PersistentFlags()
	flags.StringSliceP("include-path", "I", nil, "additional #include search path")
	flags.StringSliceP("define", "D", nil, "predefine a macro, name or name=body")
	flags.StringSliceP("undefine", "U", nil, "undefine a predefined macro")
	flags.StringP("output", "o", "", "output path")
	flags.BoolP("preprocess-only", "E", false, "preprocess only; print reconstructed source to stdout")
	flags.BoolP("stop-at-assembly", "S", false, "stop after assembly emission (no external assembler)")
	flags.BoolP("compile", "c", false, "emit object file (invoke as)")
	flags.Bool("dump-ast", false, "print the parsed tree to stdout")
	flags.Bool("dump-stack", false, "accepted, no effect")
	flags.Bool("no-dump-source", false, "accepted, no effect (the emitted assembly has no source-line directives or comments)")
	flags.Bool("wall", false, "enable all warnings (accepted for CLI symmetry; warnings are on by default)")
	flags.Bool("werror", false, "treat warnings as errors")
	flags.BoolP("no-warn", "w", false, "suppress warnings")
	flags.Bool("g", false, "accepted, no effect")
	flags.IntP("optimize", "O", 0, "accepted, no effect")
	flags.Bool("m64", false, "accepted, no effect")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
