// Command taskctl drives a running streamtasks server over its HTTP API.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	flagAddr    string
	flagTimeout time.Duration
	flagWidth   int
)

var rootCmd = &cobra.Command{
	Use:          "taskctl",
	Short:        "Inspect and drive a streamtasks board",
	SilenceUsage: true,
}

func init() {
	defaultAddr := strings.TrimSpace(os.Getenv("STREAMTASKS_ADDR"))
	if defaultAddr == "" {
		defaultAddr = "http://127.0.0.1:8080"
	}
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", defaultAddr, "server base URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().IntVar(&flagWidth, "width", 48, "render width for board output")
}

func newClient() *Client {
	return NewClient(flagAddr, flagTimeout)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
