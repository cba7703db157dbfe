package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/dis"
)

var disCmd = &cobra.Command{
	Use:   "dis <file>",
	Short: "Disassemble a serialized program",
	Long: `Disassemble a program written by "regasm asm --output json" or
"--output cbor". Files ending in .cbor are decoded as CBOR, all others as
JSON unless --format is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		format := viper.GetString("format")
		if format == "" {
			format = formatFromPath(args[0])
		}
		program, err := decodeProgram(data, format)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if name := viper.GetString("func"); name != "" {
			program, err = findFunction(program, name)
			if err != nil {
				return err
			}
		}
		return disassemble(cmd.OutOrStdout(), program)
	},
}

func init() {
	f := disCmd.Flags()
	f.String("format", "", "Input format: json or cbor")
	f.String("func", "", "Disassemble only the named function")
}

func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return "cbor"
	}
	return "json"
}

func decodeProgram(data []byte, format string) (*bytecode.Program, error) {
	switch strings.ToLower(format) {
	case "json":
		return bytecode.Unmarshal(data)
	case "cbor":
		return bytecode.UnmarshalCBOR(data)
	}
	return nil, fmt.Errorf("unknown input format: %s", format)
}

func findFunction(p *bytecode.Program, name string) (*bytecode.Program, error) {
	for _, prog := range p.Flatten() {
		for _, fn := range prog.Functions() {
			if fn.Name() == name {
				return fn.Program(), nil
			}
		}
	}
	return nil, fmt.Errorf("function %q not found", name)
}

func disassemble(w io.Writer, p *bytecode.Program) error {
	instructions, err := dis.Disassemble(p)
	if err != nil {
		return err
	}
	dis.Print(instructions, w)
	dis.PrintHandlers(p, w)
	return nil
}
