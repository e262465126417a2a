package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "remote",
	Short: "remote - a distributed job-dispatch fabric for HPC workers",
	Long:  `remote coordinates a pool of MPI-launched worker ranks behind a single scheduler, fanning shell jobs and molecule computations out across whichever node is idle.`,
}

var schedulerAddr string

func init() {
	rootCmd.PersistentFlags().StringVar(&schedulerAddr, "scheduler", "127.0.0.1:9000", "scheduler address")

	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
