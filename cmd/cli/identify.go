package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zfogg/resonate/internal/audio"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <clip.wav>",
	Short: "Identify a query clip against the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := openEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		pcm, sampleRate, err := audio.DecodeWAVFile(args[0])
		if err != nil {
			return err
		}
		if sampleRate != eng.Config().SampleRate {
			return fmt.Errorf("audio is %d Hz but the engine expects %d Hz", sampleRate, eng.Config().SampleRate)
		}

		result, err := eng.Identify(cmd.Context(), pcm)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Println("No match")
			return nil
		}

		cfg := eng.Config()
		offsetSeconds := float64(result.Offset) * float64(cfg.HopSize) / float64(cfg.SampleRate)

		rec, err := eng.GetRecording(cmd.Context(), result.RecordingID)
		if err != nil {
			fmt.Printf("Match: recording %d (score %d, offset %.1fs)\n",
				result.RecordingID, result.Score, offsetSeconds)
			return nil
		}

		fmt.Printf("Match: %s — %s (score %d, offset %.1fs)\n",
			rec.Name, strings.Join(rec.Artists, ", "), result.Score, offsetSeconds)
		return nil
	},
}
