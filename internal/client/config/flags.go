package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -a, -t and -f are considered; other arguments are filtered out with
// flagx.FilterArgs so they do not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SessionDBPath, "f", cfg.SessionDBPath, "local session database path")
	fs.Func("t", "request timeout", func(s string) error {
		d, err := timex.ParseDuration(s)
		if err != nil {
			return err
		}
		cfg.RequestTimeout = d
		return nil
	})

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
