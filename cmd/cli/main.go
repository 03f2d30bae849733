package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/misttheater/cmd/cli/play"
	"github.com/myrjola/misttheater/cmd/cli/voice"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(play.Group)
	rootCmd.AddCommand(play.Play, play.Reset)
	rootCmd.AddGroup(voice.Group)
	rootCmd.AddCommand(voice.Say)
}

var rootCmd = &cobra.Command{
	Use:  "misttheater-cli",
	Long: `Command line utilities for Mist Theater, the bamboo grove interrogation game`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
