package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindEnvVars lets every flag of cmd fall back to PKGPACK_<FLAG>, e.g.
// --log-level reads PKGPACK_LOG_LEVEL. A flag given on the command line is
// left alone. Values the flag rejects are joined into the returned error.
func bindEnvVars(cmd *cobra.Command) error {
	var errs []error
	bind := func(f *pflag.Flag) {
		name := envName(f.Name)
		if !strings.Contains(f.Usage, name) {
			f.Usage = fmt.Sprintf("%s ($%s)", f.Usage, name)
		}
		if f.Changed {
			return
		}
		if v, ok := os.LookupEnv(name); ok {
			if err := f.Value.Set(v); err != nil {
				errs = append(errs, fmt.Errorf("$%s: %w", name, err))
			}
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.PersistentFlags().VisitAll(bind)
	return errors.Join(errs...)
}

func envName(flag string) string {
	return strings.ToUpper(cmdName + "_" + strings.ReplaceAll(flag, "-", "_"))
}
