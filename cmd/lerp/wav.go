package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-lerp/internal/audio"
	"github.com/spf13/cobra"
)

func newWAVCmd() *cobra.Command {
	var (
		rate   int
		depth  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "wav <in.wav>",
		Short: "Resample a WAV file through a (time, channel) grid",
		Long: `Resample a WAV file.

The clip becomes a grid over time in seconds and channel index; the time
axis is re-evaluated at the target rate with the configured interpolation
method while channels keep their own samples.`,
		Example: "  lerp wav speech.wav --rate 16000 --interp steffen -o speech-16k.wav",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if output == "" {
				return errors.New("--output is required for wav")
			}

			interp, _, err := cfg.Lookup.Methods()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			clip, err := audio.DecodeWAV(data)
			if err != nil {
				return err
			}

			if rate == 0 {
				rate = clip.SampleRate
			}

			out, err := audio.Resample(clip, rate, interp, cfg.Runtime.RunOptions()...)
			if err != nil {
				return err
			}

			if depth > 0 {
				out.BitDepth = depth
			}

			wavBytes, err := audio.EncodeWAV(out)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, wavBytes, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			slog.Info("audio resampled",
				slog.String("input", args[0]),
				slog.Int("from_rate", clip.SampleRate),
				slog.Int("to_rate", out.SampleRate),
				slog.Int("channels", out.Channels),
				slog.Int("frames", out.Frames()),
				slog.String("interp", interp.String()),
			)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d Hz x %d ch, %d frames -> %s: %d Hz, %d frames\n",
				args[0], clip.SampleRate, clip.Channels, clip.Frames(), output, out.SampleRate, out.Frames())

			return err
		},
	}

	cmd.Flags().IntVar(&rate, "rate", 0, "Target sample rate in Hz (default: keep)")
	cmd.Flags().IntVar(&depth, "depth", 0, "Output bit depth (default: keep)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output WAV file (required)")

	return cmd
}
