// Command efirun boots a firmware image in QEMU and reports whether it
// passed.  Settings come from efirun.yaml, EFIRUN_* variables and flags, in
// increasing order of precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"efiboot/src/lib/qemuexit"
	"efiboot/src/tools/efirun"
)

var (
	cfgFile string
	verbose bool
)

var errFailed = errors.New("image did not pass")

var rootCmd = &cobra.Command{
	Use:           "efirun [esp-dir]",
	Short:         "Boot a firmware image in QEMU and serve its test harness",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runImage,
}

func init() {
	cobra.OnInitialize(initConfig)
	efirun.SetDefaults(viper.GetViper())

	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ./efirun.yaml)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log QEMU's command line and other details")
	f.String("qemu", "", "emulator binary (default qemu-system-<arch>)")
	f.String("arch", efirun.ArchX86_64, "guest architecture: x86_64 or aarch64")
	f.String("ovmf-code", "", "firmware code image")
	f.String("ovmf-vars", "", "firmware variable store")
	f.Duration("timeout", 0, "give up after this long")
	f.String("screenshot-dir", "", "reference screenshots; enables the test serial line")
	f.String("work-dir", "", "where fresh screenshots and the monitor socket go")
	f.Bool("headless", true, "run without a display window")

	for _, name := range []string{"qemu", "arch", "ovmf-code", "ovmf-vars", "timeout", "screenshot-dir", "work-dir", "headless"} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), f.Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("efirun")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("EFIRUN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logrus.WithError(err).Fatal("efirun: reading config")
		}
	}
}

func runImage(cmd *cobra.Command, args []string) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if len(args) == 1 {
		viper.Set("esp", args[0])
	}
	c, err := efirun.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := efirun.Run(ctx, c)
	if err != nil {
		return err
	}
	if res.Outcome != qemuexit.Passed {
		return fmt.Errorf("%w: qemu exit status %d (%s)", errFailed, res.ExitCode, res.Outcome)
	}
	logrus.WithField("screenshots", len(res.Screenshots)).Info("efirun: image passed")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "efirun: %v\n", err)
		os.Exit(1)
	}
}
