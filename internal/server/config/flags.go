package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   metrics/health bind address, empty to disable
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      token validity, minutes
//	-g string   session strategy (only "jwt")
//	-v bool     debug logging
//	-b string   storage backend ("postgres" or "memory")
//
// Only the flags above are picked out of os.Args via flagx.FilterArgs, so the
// -c/-config flag handled by parseJson does not cause a parse error here.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-s", "-t", "-g", "-v", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for metrics and health probes")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token_validity_duration (in minutes)")

	fs.StringVar(&config.SessionStrategy, "g", config.SessionStrategy, "session strategy")
	fs.BoolVar(&config.Debug, "v", config.Debug, "debug logging")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend: postgres or memory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// keep a sub-minute JSON value unless -t was given explicitly
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
		}
	})
}
