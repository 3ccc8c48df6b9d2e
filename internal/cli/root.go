package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/pkg/config"
)

type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "minutes",
		Short:        "Live meeting transcription and minutes",
		Long:         "Streams microphone audio to a speech backend, shows the live transcript, and turns it into meeting minutes with Groq.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
