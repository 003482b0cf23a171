// Command efientry checks //efi:entry functions and writes the exported
// wrapper the firmware calls.  It is meant to run from go:generate:
//
//	//go:generate go run efiboot/src/tools/efientry/cmd/efientry generate
package main

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"efiboot/src/tools/efientry"
)

// errDiagnostics means diagnostics were printed; the exit status is 1.
var errDiagnostics = errors.New("entry contract violated")

var (
	verbose bool

	output         string
	bare           bool
	ifStale        bool
	contractImport string
	runtimeImport  string

	format string
)

var rootCmd = &cobra.Command{
	Use:           "efientry",
	Short:         "Check firmware entry points and generate their wrappers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [dir]",
	Short: "Write the efi_main wrapper for the package in dir",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Report entry contract violations without writing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log what is being done")

	generateCmd.Flags().StringVarP(&output, "output", "o", efientry.DefaultOutput, "name of the generated file")
	generateCmd.Flags().BoolVar(&bare, "bare", false, "call the entry function directly instead of through the bootstrap")
	generateCmd.Flags().BoolVar(&ifStale, "if-stale", false, "do nothing when the output is newer than every input")
	generateCmd.Flags().StringVar(&contractImport, "contract-import", efientry.DefaultContract.ImportPath, "import path of the package declaring Handle, SystemTable and Status")
	generateCmd.Flags().StringVar(&runtimeImport, "runtime-import", efientry.DefaultContract.RuntimeImport, "import path of the package providing Run")

	checkCmd.Flags().StringVar(&format, "format", efientry.FormatText, "output format: text, table, json or yaml")

	rootCmd.AddCommand(generateCmd, checkCmd)
}

func dirArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func runGenerate(cmd *cobra.Command, args []string) error {
	dir := dirArg(args)
	if ifStale {
		stale, err := efientry.Stale(dir, output)
		if err != nil {
			return err
		}
		if !stale {
			logrus.WithField("dir", dir).Debug("wrapper is up to date")
			return nil
		}
	}
	c := efientry.DefaultContract
	if contractImport != c.ImportPath {
		c.ImportPath = contractImport
		c.PackageName = path.Base(contractImport)
	}
	if runtimeImport != c.RuntimeImport {
		c.RuntimeImport = runtimeImport
		c.RuntimeName = path.Base(runtimeImport)
	}
	res, err := efientry.Write(dir, efientry.Options{Output: output, Bare: bare, Contract: c})
	var diags efientry.Diagnostics
	if errors.As(err, &diags) {
		if werr := efientry.WriteDiagnostics(cmd.ErrOrStderr(), diags, efientry.FormatText); werr != nil {
			return werr
		}
		return errDiagnostics
	}
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"dir":        dir,
		"output":     output,
		"trampoline": res.Trampoline,
	}).Info("generated entry wrapper")
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	pkg, err := efientry.ParseDir(token.NewFileSet(), dirArg(args))
	if err != nil {
		return err
	}
	diags, err := efientry.CheckPackage(pkg)
	if err != nil {
		return err
	}
	if len(diags) == 0 && (format == "" || format == efientry.FormatText) {
		return nil
	}
	if err := efientry.WriteDiagnostics(cmd.OutOrStdout(), diags, format); err != nil {
		return err
	}
	if len(diags) > 0 {
		return errDiagnostics
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintf(os.Stderr, "efientry: %v\n", err)
		}
		os.Exit(1)
	}
}
