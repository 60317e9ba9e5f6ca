package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/digitrace"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/section"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show the capture header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := digitrace.Open(args[0], a.readerOptions()...)
			if err != nil {
				return err
			}
			defer f.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "File:            %s\n", f.Name())
			printHeader(w, f.Header())
			fmt.Fprintf(w, "Compression:     %s\n", f.Compression())
			fmt.Fprintf(w, "Record size:     %d bytes\n", f.RecordSize())

			if !f.Seekable() {
				fmt.Fprintln(w, "Events:          unknown (sequential source)")
				return nil
			}

			n, err := f.CountEvents()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Events:          %d\n", n)

			return nil
		},
	}
}

func printHeader(w io.Writer, h *section.FileHeader) {
	fmt.Fprintf(w, "Program version: %s\n", h.ProgramVersion)
	fmt.Fprintf(w, "Description:     %s\n", h.RunDescription)
	fmt.Fprintf(w, "Fingerprint:     %016x\n", h.Fingerprint)
	fmt.Fprintf(w, "Resolution:      %d bits\n", h.Resolution)
	fmt.Fprintf(w, "Sample interval: %g s\n", h.SampleInterval)
	fmt.Fprintf(w, "Samples/trace:   %d (%g s)\n", h.SampleCount, h.TraceDuration())
	fmt.Fprintf(w, "Channels:        %d (%d enabled)\n", h.ChannelCount, h.EnabledChannelCount)

	for i := range int(h.ChannelCount) {
		state := "off"
		if h.ChannelEnabled[i] {
			state = "on"
		}
		trig := "-"
		if h.TriggerEnabled[i] {
			trig = fmt.Sprintf("%g V %s", h.TriggerLevel[i], slopeLabel(h.TriggerSlope[i]))
		}
		fmt.Fprintf(w, "  ch%-2d %-3s scale=%g offset=%g trigger=%s\n",
			i, state, h.VoltsScale[i], h.ChanOffsetVolts[i], trig)
	}

	ext := "-"
	if h.ExtTriggerEnabled {
		ext = fmt.Sprintf("%g V %s", h.ExtTriggerLevel, slopeLabel(h.ExtTriggerSlope))
	}
	fmt.Fprintf(w, "External trigger: %s\n", ext)
}

// slopeLabel names a trigger slope; values outside the known set keep their
// raw number.
func slopeLabel(s format.TriggerSlope) string {
	if !s.IsValid() {
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}

	return s.String()
}
