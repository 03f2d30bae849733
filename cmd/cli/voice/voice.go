package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/myrjola/misttheater/internal/ai"
	"github.com/myrjola/misttheater/internal/casefile"
	"github.com/myrjola/misttheater/internal/config"
	"github.com/myrjola/misttheater/internal/logging"
	"github.com/myrjola/misttheater/internal/voice"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "voice",
	Title: "Voice operations",
}

func init() {
	Say.Flags().String("out", "", "path to the generated mp3 file, defaults to ./<suspect>.mp3")
}

var Say = &cobra.Command{
	Use:     "say <suspect> [text]",
	GroupID: "voice",
	Short:   "Speak a line in the voice of a suspect",
	Long:    `Synthesizes the text, or the initial statement when no text is given, in the voice of the suspect.`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(io.Discard, nil)))

		cfg, err := config.Parse(os.Environ())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			return
		}
		if cfg.AI.APIKey == "" {
			_, _ = fmt.Fprintln(os.Stderr, "MIST_AI_API_KEY is required for speech")
			return
		}
		caseFile, err := casefile.Load()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Case error: %v\n", err)
			return
		}

		suspectID, ok := casefile.ParseSuspectID(strings.ToLower(args[0]))
		if !ok {
			_, _ = fmt.Fprintf(os.Stderr, "Unknown suspect %q\n", args[0])
			return
		}
		suspect, _ := caseFile.Suspect(suspectID)
		text := strings.Join(args[1:], " ")
		if text == "" {
			text = suspect.Statement
		}

		client := ai.NewClient(cfg.AI, logger)
		speaker := voice.NewSpeaker(client, caseFile, logger)
		audio, err := client.Speak(ctx, text, speaker.VoiceFor(suspectID))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Speech error: %v\n", err)
			return
		}

		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid out flag: %v\n", err)
			return
		}
		if outPath == "" {
			outPath = "./" + suspectID.String() + ".mp3"
		}
		if err = os.WriteFile(outPath, audio, 0o600); err != nil { //nolint:mnd // owner only
			_, _ = fmt.Fprintf(os.Stderr, "File write error: %v\n", err)
			return
		}
		cmd.Printf("Wrote %s\n", outPath)
	},
}
