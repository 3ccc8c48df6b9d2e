package cli

import (
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/minutemaestro/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			cfg := deps.Config
			ok := true

			if path, err := exec.LookPath(cfg.Audio.FFmpegCommand); err != nil {
				f.SetupCheck("Recorder", false, cfg.Audio.FFmpegCommand+" not found. Install ffmpeg or set AUDIO_FFMPEG_COMMAND")
				ok = false
			} else {
				f.SetupCheck("Recorder", true, path)
			}

			f.SetupCheck("Input", true, cfg.Audio.InputFormat+" / "+cfg.Audio.InputDevice)
			f.SetupCheck("Streaming backend", true, cfg.Streaming.URL+" ("+cfg.Streaming.Dialect+")")

			if cfg.Streaming.APIKey != "" {
				f.SetupCheck("Streaming API key", true, "configured")
			} else {
				f.SetupCheck("Streaming API key", false, "not set. Set STREAMING_API_KEY")
				ok = false
			}

			if cfg.Groq.APIKey != "" {
				f.SetupCheck("Groq API key", true, "configured ("+cfg.Groq.Model+")")
			} else {
				f.SetupCheck("Groq API key", false, "not set. Set GROQ_API_KEY")
				ok = false
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
