// Command gdsc is the CLI front end for the GDS/GDA toolchain: it loads
// the command-definition registry once, then drives compile/decompile
// batches over it, in the same cobra-subcommand shape as
// zboralski-galago/cmd/galago's trace/info split.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gdsc/internal/gdslog"
	"gdsc/pkg/batch"
	"gdsc/pkg/doctemplate"
	"gdsc/pkg/gda"
	"gdsc/pkg/gdscmd"
	"gdsc/pkg/gdserr"
	"gdsc/pkg/patch"
	"gdsc/pkg/reader"
	"gdsc/pkg/utils"
	"gdsc/pkg/writer"
)

var (
	definitionsDir string
	verbose        bool

	recursive   bool
	quiet       bool
	workdirFlag string
	omitDocs    bool
	includeDocs bool

	applyPatch bool
	noPatch    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gdsc",
		Short: "Compile and decompile GDS bytecode scripts",
		Long: `gdsc translates between the binary GDS bytecode format and its
textual GDA assembly form, using a declarative command-definition
registry loaded from a directory of YAML files.

Examples:
  gdsc compile script.gda script.gds       # GDA text to GDS bytecode
  gdsc decompile -r data/script out/gda    # whole tree, recursively
  gdsc commands                            # list the loaded registry`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&definitionsDir, "definitions", "definitions", "command-definition directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostic logging")

	rootCmd.AddCommand(newCompileCmd(), newDecompileCmd(), newCommandsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "walk input directories recursively")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")
	cmd.Flags().StringVarP(&workdirFlag, "workdir", "w", "", "base directory for doc-template file splices (defaults to the input's directory)")
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [input] [output]",
		Short: "Translate GDA text to GDS bytecode",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runCompile,
	}
	addCommonFlags(cmd)
	cmd.Flags().BoolVarP(&omitDocs, "omit-file-contents", "o", false, "accepted for symmetry with decompile; compile expands no doc templates")
	cmd.Flags().BoolVarP(&includeDocs, "include-file-contents", "O", false, "accepted for symmetry with decompile; compile expands no doc templates")
	cmd.MarkFlagsMutuallyExclusive("omit-file-contents", "include-file-contents")
	return cmd
}

func newDecompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompile [input] [output]",
		Short: "Translate GDS bytecode to GDA text",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runDecompile,
	}
	addCommonFlags(cmd)
	cmd.Flags().BoolVarP(&omitDocs, "omit-file-contents", "o", false, "omit $(path) file contents when expanding doc templates")
	cmd.Flags().BoolVarP(&includeDocs, "include-file-contents", "O", false, "force inclusion of $(path) file contents in doc templates")
	cmd.MarkFlagsMutuallyExclusive("omit-file-contents", "include-file-contents")
	cmd.Flags().BoolVarP(&applyPatch, "patch", "p", false, "apply the baked-in baseline patch table before decoding")
	cmd.Flags().BoolVarP(&noPatch, "no-patch", "P", false, "explicitly skip the baseline patch table")
	cmd.MarkFlagsMutuallyExclusive("patch", "no-patch")
	return cmd
}

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List every command loaded from the definition registry",
		Args:  cobra.NoArgs,
		RunE:  runCommands,
	}
}

func loadRegistry(diag gdserr.Diagnostics) (*gdscmd.Registry, error) {
	defs, err := gdscmd.LoadDirectory(definitionsDir)
	if err != nil {
		return nil, err
	}
	return gdscmd.BuildRegistry(defs, diag)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func runCompile(cmd *cobra.Command, args []string) error {
	logger := gdslog.New(verbose)
	defer logger.Sync()

	registry, err := loadRegistry(logger.Sink())
	if err != nil {
		return fmt.Errorf("load command definitions: %w", err)
	}

	pairs, err := batch.FilePairs(argAt(args, 0), argAt(args, 1), ".gda", ".gds", recursive)
	if err != nil {
		return err
	}

	bar := newBar(len(pairs), "compiling")
	results := batch.Run(cmd.Context(), pairs, 0, func(p batch.Pair) error {
		defer bar.Add(1)
		return compileOne(p, registry, logger.Sink())
	})
	return reportResults(results)
}

func runDecompile(cmd *cobra.Command, args []string) error {
	logger := gdslog.New(verbose)
	defer logger.Sync()

	registry, err := loadRegistry(logger.Sink())
	if err != nil {
		return fmt.Errorf("load command definitions: %w", err)
	}

	pairs, err := batch.FilePairs(argAt(args, 0), argAt(args, 1), ".gds", ".gda", recursive)
	if err != nil {
		return err
	}

	var patchTable patch.Table
	if applyPatch {
		patchTable = patch.Default
	}

	bar := newBar(len(pairs), "decompiling")
	results := batch.Run(cmd.Context(), pairs, 0, func(p batch.Pair) error {
		defer bar.Add(1)
		return decompileOne(p, registry, logger.Sink(), patchTable)
	})
	return reportResults(results)
}

func runCommands(cmd *cobra.Command, args []string) error {
	logger := gdslog.New(verbose)
	defer logger.Sync()

	registry, err := loadRegistry(logger.Sink())
	if err != nil {
		return fmt.Errorf("load command definitions: %w", err)
	}
	for _, c := range registry.All() {
		marker := ""
		if c.IsComplex() {
			marker = " [complex]"
		}
		if c.SetsCondition() {
			marker += " [condition]"
		}
		fmt.Printf("0x%02X  %-32s%s\n", c.CommandID(), c.CommandName(), marker)
		if desc := c.Desc; desc != "" {
			fmt.Printf("      %s\n", desc)
		}
	}
	return nil
}

func newBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(!quiet),
	)
}

func compileOne(p batch.Pair, registry *gdscmd.Registry, diag gdserr.Diagnostics) error {
	src, err := os.ReadFile(p.Input)
	if err != nil {
		return err
	}
	prog, err := gda.Parse(string(src), registry, p.Input, diag)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Input, err)
	}
	out, err := writer.Write(prog, registry)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Input, err)
	}
	return writeOutput(p.Output, out)
}

func decompileOne(p batch.Pair, registry *gdscmd.Registry, diag gdserr.Diagnostics, patchTable patch.Table) error {
	data, err := os.ReadFile(p.Input)
	if err != nil {
		return err
	}
	if patchTable != nil {
		data = patch.Apply(patchTable, patchKey(p.Input), data, diag)
	}
	prog, err := reader.Read(data, registry, p.Input, diag)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Input, err)
	}

	dir := workdirFlag
	if dir == "" {
		_, dir, err = utils.GetPathInfo(p.Input)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Input, err)
		}
	}
	expander := &doctemplate.Expander{
		WorkDir:          dir,
		OmitFileContents: omitDocs,
		CurrentPath:      p.Input,
	}

	var buf bytes.Buffer
	opts := gda.WriteOptions{Version: "1.0", ExpandDocs: true, Expander: expander}
	if err := gda.Write(&buf, prog, opts); err != nil {
		return fmt.Errorf("%s: %w", p.Input, err)
	}
	return writeOutput(p.Output, buf.Bytes())
}

// patchKey strips any workdir-style prefix down to the forward-slashed
// relative form the patch table's keys are written in, so a file
// addressed either as an absolute path or relative to the current
// directory still matches "data/script/...".
func patchKey(path string) string {
	clean := filepath.ToSlash(path)
	if i := indexLast(clean, "data/script/"); i >= 0 {
		return clean[i:]
	}
	return clean
}

func indexLast(s, sub string) int {
	last := -1
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			last = i
		}
	}
	return last
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func reportResults(results []batch.Result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", r.Pair.Input, r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
