package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/risor-io/regasm/builder"
	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/dis"
	"github.com/risor-io/regasm/internal/listing"
	"github.com/risor-io/regasm/internal/token"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/regopt"
	"github.com/risor-io/regasm/srcpos"
)

// errReported is returned once a diagnostic has been written to stderr.
var errReported = errors.New("error reported")

var outputFormats = []string{"text", "json", "cbor"}

var asmCmd = &cobra.Command{
	Use:   "asm [file]",
	Short: "Assemble a listing",
	Long: `Assemble a listing and print the resulting program.

The listing is read from the file argument, from --code, or from stdin
when --stdin is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		src, file, err := getSource(cmd, args)
		if err != nil {
			return err
		}
		program, err := listing.AssembleSource(src, file, builderOptions(logger)...)
		if err != nil {
			f := token.NewFormatter(!viper.GetBool("no-color") && isTerminal(os.Stderr))
			fmt.Fprint(cmd.ErrOrStderr(), f.Format(err, src))
			return errReported
		}
		logger.Debug().
			Str("name", program.Name()).
			Int("bytes", program.Length()).
			Int("constants", program.ConstantCount()).
			Msg("assembled")

		format := strings.ToLower(viper.GetString("output"))
		data, err := render(program, format, shouldColorize(cmd))
		if err != nil {
			return err
		}
		if out := viper.GetString("out"); out != "" {
			return os.WriteFile(out, data, 0o644)
		}
		if format == "cbor" {
			return errors.New("cbor output requires --out")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	f := asmCmd.Flags()
	f.StringP("code", "c", "", "Listing to assemble")
	f.Bool("stdin", false, "Read the listing from stdin")
	f.StringP("output", "o", "text", "Output format: "+strings.Join(outputFormats, ", "))
	f.String("out", "", "Write output to this file")
	f.Bool("no-elide", false, "Keep redundant register loads")
	f.Bool("drop-dead", false, "Discard unreachable instructions after a return, throw or jump")
	f.Bool("omit-positions", false, "Do not record source positions")
	f.Bool("keep-expressions", false, "Keep expression positions that precede a statement")
	f.Bool("optimize", false, "Enable the register optimizer")
	f.Bool("stats", false, "Print program statistics after the listing")
	asmCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func builderOptions(logger zerolog.Logger) []builder.Option {
	opts := []builder.Option{builder.WithLogger(logger)}
	if viper.GetBool("no-elide") {
		opts = append(opts, builder.WithElision(false))
	}
	if viper.GetBool("drop-dead") {
		opts = append(opts, builder.WithDeadCodeElimination(true))
	}
	if viper.GetBool("omit-positions") {
		opts = append(opts, builder.WithSourcePositions(srcpos.OmitSourcePositions))
	}
	if viper.GetBool("keep-expressions") {
		opts = append(opts, builder.WithExpressionPositionFiltering(false))
	}
	if viper.GetBool("optimize") {
		opts = append(opts, builder.WithRegisterOptimizer(func(a *register.Allocator) builder.RegisterOptimizer {
			return regopt.New(a, regopt.WithLogger(logger))
		}))
	}
	return opts
}

func getSource(cmd *cobra.Command, args []string) (string, string, error) {
	codeSet := cmd.Flags().Lookup("code").Changed
	stdinSet := viper.GetBool("stdin")
	count := 0
	for _, set := range []bool{codeSet, stdinSet, len(args) > 0} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", "", errors.New("multiple input sources specified")
	}
	switch {
	case codeSet:
		return viper.GetString("code"), "", nil
	case stdinSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return string(data), "", nil
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(data), args[0], nil
	}
	return "", "", errors.New("no input provided")
}

func shouldColorize(cmd *cobra.Command) bool {
	if color.NoColor {
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTerminal(f)
}

// render encodes p in the given output format.
func render(p *bytecode.Program, format string, colorize bool) ([]byte, error) {
	switch format {
	case "", "text":
		var sb strings.Builder
		if err := printProgram(&sb, p); err != nil {
			return nil, err
		}
		if viper.GetBool("stats") {
			printStats(&sb, p.Stats())
		}
		return []byte(sb.String()), nil
	case "json":
		data, err := bytecode.Marshal(p)
		if err != nil {
			return nil, err
		}
		data, err = formatJSON(data, colorize)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "cbor":
		return bytecode.MarshalCBOR(p)
	}
	return nil, fmt.Errorf("unknown output format: %s", format)
}

// printProgram writes the disassembly of p and of every function nested in
// its constant pool.
func printProgram(w io.Writer, p *bytecode.Program) error {
	for i, prog := range p.Flatten() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		name := prog.Name()
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(w, "%s (params: %d, frame: %d)\n", name, prog.ParameterCount(), prog.FrameSize())
		instructions, err := dis.Disassemble(prog)
		if err != nil {
			return err
		}
		dis.Print(instructions, w)
		dis.PrintHandlers(prog, w)
	}
	return nil
}

func printStats(w io.Writer, s bytecode.Stats) {
	fmt.Fprintf(w, "\nbytes: %d, instructions: %d, prefixed: %d, constants: %d, handlers: %d\n",
		s.ByteLength, s.InstructionCount, s.PrefixedCount, s.ConstantCount, s.HandlerCount)
}
