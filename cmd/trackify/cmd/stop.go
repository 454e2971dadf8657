package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running trackify web surface",
	Long: `Stop a running "trackify start" by reading its PID file and sending SIGTERM.

The agent stops sampling before it exits. The PID file is located at
~/.trackify/trackify.pid.

Examples:
  trackify stop`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := pidFilePath()
	errOut := cmd.ErrOrStderr()

	pid := readPIDFile(pidPath)
	if pid == 0 {
		return fmt.Errorf("no PID file found at %s\nIs trackify running?", pidPath)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidPath)
		return fmt.Errorf("invalid PID %d: %w", pid, err)
	}

	if !processIsAlive(proc) {
		os.Remove(pidPath)
		return fmt.Errorf("trackify process %d is not running (stale PID file removed)", pid)
	}

	fmt.Fprintf(errOut, "Stopping trackify (PID %d)...\n", pid)
	if err := sendGracefulStop(proc); err != nil {
		return fmt.Errorf("failed to stop trackify: %w", err)
	}

	// Poll every 200ms, max 10s.
	for i := 0; i < 50; i++ {
		time.Sleep(200 * time.Millisecond)
		if !processIsAlive(proc) {
			os.Remove(pidPath)
			fmt.Fprintf(errOut, "trackify stopped.\n")
			return nil
		}
	}

	fmt.Fprintf(errOut, "trackify did not stop gracefully, killing it...\n")
	_ = proc.Kill()
	os.Remove(pidPath)
	fmt.Fprintf(errOut, "trackify killed.\n")
	return nil
}

// readPIDFile reads a PID from the given file path. Returns 0 if unreadable.
func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
