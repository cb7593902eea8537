package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lemachinarbo/RockShell/internal/config"
)

var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks failures caused by the invocation itself.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// reportedError has already been shown to the operator as an event.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintln(stderr, uerr)
		return exitUsage
	}
	var rerr reportedError
	if !errors.As(err, &rerr) {
		fmt.Fprintln(stderr, err)
	}
	return exitError
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unexpected argument %q", args[0])}
	}
	return nil
}

type streams struct {
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := config.NewViper()
	st := streams{out: stdout, errOut: stderr}
	var cfgFile string

	root := &cobra.Command{
		Use:   "pwinstall",
		Short: "Drive the ProcessWire web installer from the terminal",
		Long: `pwinstall walks the ProcessWire installer (install.php) of a local site,
filling every form from flags, a defaults table or interactive prompts.`,
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), v, cfgFile, st)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := root.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default: pwinstall.yaml in the docroot or ~/.config/pwinstall)")
	f.String("docroot", ".", "site root that will receive install.php")
	f.BoolP("debug", "d", false, "print form values and HTTP detail")

	fl := root.Flags()
	fl.String("host", "", "site host, e.g. mysite.ddev.site")
	fl.String("profile", "", "site profile to install")
	fl.Bool("lazy", false, "answer every question from the defaults table")
	fl.StringP("timezone", "t", "", "timezone key, name or label")
	fl.BoolP("remove", "r", false, "remove existing database tables")
	fl.BoolP("ignore", "i", false, "ignore existing database tables")
	fl.StringP("url", "u", "", "admin page name")
	fl.String("name", "", "admin user name")
	fl.StringP("pass", "p", "", "admin password")
	fl.StringP("mail", "m", "", "admin email")
	fl.String("pw-version", "", "ProcessWire version to download (master, dev or a tag)")
	fl.Bool("dev", false, "download the dev branch")
	fl.Bool("log", false, "always write pwinstall-log.md")
	fl.String("log-file", "", "write JSON diagnostics to this file")
	fl.Bool("quiet", false, "print only warnings, errors and results")
	fl.Bool("no-ddev-check", false, "run even when the docroot is a DDEV project and this is not its container")
	fl.Bool("insecure", false, "skip TLS certificate verification")

	bind := map[string]string{
		config.KeyDocroot:     "docroot",
		config.KeyDebug:       "debug",
		config.KeyHost:        "host",
		config.KeyProfile:     "profile",
		config.KeyLazy:        "lazy",
		config.KeyTimezone:    "timezone",
		config.KeyRemove:      "remove",
		config.KeyIgnore:      "ignore",
		config.KeyURL:         "url",
		config.KeyName:        "name",
		config.KeyPass:        "pass",
		config.KeyMail:        "mail",
		config.KeyPWVersion:   "pw-version",
		config.KeyDev:         "dev",
		config.KeyLog:         "log",
		config.KeyLogFile:     "log-file",
		config.KeyQuiet:       "quiet",
		config.KeyNoDDEVCheck: "no-ddev-check",
		config.KeyInsecure:    "insecure",
	}
	bindFlags(v, bind, fl, f)

	root.AddCommand(newDefaultsCmd(v, &cfgFile), newMockCmd())
	return root
}

// bindFlags points each viper key at the first flag set that defines the
// named flag.
func bindFlags(v *viper.Viper, keys map[string]string, sets ...*pflag.FlagSet) {
	for key, name := range keys {
		for _, fs := range sets {
			if flag := fs.Lookup(name); flag != nil {
				_ = v.BindPFlag(key, flag)
				break
			}
		}
	}
}
