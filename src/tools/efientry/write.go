package efientry

import (
	"bufio"
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Write generates the wrapper for the package in dir and writes it to
// Options.Output.  When the package has diagnostics any previous output is
// removed, so a stale wrapper cannot hide the failure, and the diagnostics
// are returned as the error.
func Write(dir string, opts Options) (*Result, error) {
	fset := token.NewFileSet()
	pkg, err := ParseDir(fset, dir)
	if err != nil {
		return nil, err
	}
	res, err := Generate(pkg, opts)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, opts.output())
	if err := checkOwned(out); err != nil {
		return nil, err
	}
	if len(res.Diagnostics) > 0 {
		if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return res, err
		}
		return res, res.Diagnostics
	}
	if err := os.WriteFile(out, res.Source, 0o644); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"package": pkg.Name,
		"file":    out,
		"types":   len(pkg.Types),
	}).Debug("efientry: wrote wrapper")
	return res, nil
}

// checkOwned refuses to replace a file this generator did not write.
func checkOwned(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() && sc.Text() == Banner {
		return nil
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("efientry: %s exists and was not generated by efientry", path)
}

// Stale reports whether the output in dir is missing or older than any of
// the package's input files.
func Stale(dir, output string) (bool, error) {
	if output == "" {
		output = DefaultOutput
	}
	st, err := os.Stat(filepath.Join(dir, output))
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	lastGen := st.ModTime()
	names, err := inputFiles(dir)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == output {
			continue
		}
		in, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return false, err
		}
		if in.ModTime().After(lastGen) {
			logrus.WithFields(logrus.Fields{
				"input":    name,
				"modified": in.ModTime(),
				"last gen": lastGen,
			}).Debug("efientry: output is stale")
			return true, nil
		}
	}
	return false, nil
}
