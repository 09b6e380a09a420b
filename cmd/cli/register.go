package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zfogg/resonate/internal/audio"
)

var (
	registerName    string
	registerArtists []string
)

var registerCmd = &cobra.Command{
	Use:   "register <audio.wav>",
	Short: "Fingerprint a WAV file and add it to the index",
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

		id, err := eng.Register(cmd.Context(), pcm, registerName, registerArtists)
		if err != nil {
			return err
		}

		fmt.Printf("Registered %q as recording %d\n", registerName, id)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "Display name of the recording (required)")
	registerCmd.Flags().StringSliceVar(&registerArtists, "artist", nil, "Artist name; repeat for multiple (required)")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("artist")
}
