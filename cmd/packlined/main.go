// Command packlined runs the packing kiosk daemon in the foreground. The
// -config flag names the configuration file; without it the default path is
// used. Logs go to the configured log file and standard output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"packline/internal/config"
	"packline/internal/daemonrun"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("packlined: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("packlined", flag.ContinueOnError)
	configPath := flags.String("config", "", "Configuration file path")
	logLevel := flags.String("log-level", "", "Override the configured log level")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return daemonrun.Run(ctx, cfg, daemonrun.Options{
		LogLevel: *logLevel,
		Stdout:   true,
	})
}
