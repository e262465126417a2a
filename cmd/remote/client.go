package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelsched/remote/internal/lockfile"
	"github.com/kestrelsched/remote/internal/monitor"
	"github.com/kestrelsched/remote/internal/workerclient"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Talk to a running scheduler",
}

var clientRunCmd = &cobra.Command{
	Use:   "run [cmd...]",
	Short: "Run a shell command on whichever worker the scheduler hands it to",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClientRun,
}

var clientAddNodeCmd = &cobra.Command{
	Use:   "add-node [addr]",
	Short: "Register a worker address with the scheduler's node pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientAddNode,
}

var clientMonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of node pool occupancy",
	RunE:  runClientMonitor,
}

var (
	runWrkDir string
	addrFile  string
)

func init() {
	clientCmd.AddCommand(clientRunCmd, clientAddNodeCmd, clientMonitorCmd)

	clientCmd.PersistentFlags().StringVarP(&addrFile, "addr-file", "w", "", "scheduler address lock file, as written by bootstrap (overrides --scheduler)")

	clientRunCmd.Flags().StringVar(&runWrkDir, "wrkdir", ".", "working directory for the job on the worker")
}

// resolveSchedulerAddr honors --addr-file over the bare --scheduler address,
// the way bootstrap.go's worker path reads the scheduler's freeport-chosen
// address back out of the same lock file.
func resolveSchedulerAddr() (string, error) {
	if addrFile == "" {
		return schedulerAddr, nil
	}
	addr, err := lockfile.ReadAddress(addrFile)
	if err != nil {
		return "", fmt.Errorf("client: reading scheduler address from %s: %w", addrFile, err)
	}
	return addr, nil
}

func runClientRun(cmd *cobra.Command, args []string) error {
	addr, err := resolveSchedulerAddr()
	if err != nil {
		return err
	}
	c := workerclient.Connect(addr)
	result, err := c.RunCmd(cmd.Context(), strings.Join(args, " "), runWrkDir)
	if err != nil {
		return err
	}
	if result.IsFailed() {
		fmt.Fprintln(os.Stderr, result.String())
		os.Exit(1)
	}
	fmt.Print(result.String())
	return nil
}

func runClientAddNode(cmd *cobra.Command, args []string) error {
	addr, err := resolveSchedulerAddr()
	if err != nil {
		return err
	}
	c := workerclient.Connect(addr)
	if err := c.AddNode(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("registered %s\n", args[0])
	return nil
}

func runClientMonitor(cmd *cobra.Command, args []string) error {
	addr, err := resolveSchedulerAddr()
	if err != nil {
		return err
	}
	return monitor.Run(addr)
}
