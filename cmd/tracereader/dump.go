package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/digitrace"
	"github.com/arloliu/digitrace/event"
)

type dumpTrace struct {
	Channel int       `json:"channel" msgpack:"channel"`
	Volts   []float64 `json:"volts" msgpack:"volts"`
	Raw     []int16   `json:"raw,omitempty" msgpack:"raw,omitempty"`
}

type dumpEvent struct {
	Index       uint32      `json:"index" msgpack:"index"`
	RunTime     float64     `json:"run_time" msgpack:"run_time"`
	TriggerTime float64     `json:"trigger_time" msgpack:"trigger_time"`
	Saved       []bool      `json:"saved" msgpack:"saved"`
	Traces      []dumpTrace `json:"traces" msgpack:"traces"`
}

func newDumpEvent(ev event.Event) dumpEvent {
	out := dumpEvent{
		Index:       ev.Index,
		RunTime:     ev.RunTime,
		TriggerTime: ev.TriggerTime,
		Saved:       ev.Saved,
		Traces:      make([]dumpTrace, len(ev.Traces)),
	}
	for i, t := range ev.Traces {
		out.Traces[i] = dumpTrace{Channel: t.Channel, Volts: t.Volts, Raw: t.Raw}
	}

	return out
}

// eventEncoder writes one self-delimiting record per event.
type eventEncoder interface {
	Encode(v any) error
}

func newEventEncoder(w io.Writer, format string) (eventEncoder, error) {
	switch format {
	case "jsonl":
		return json.NewEncoder(w), nil
	case "msgpack":
		return msgpack.NewEncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown dump format %q (want jsonl or msgpack)", format)
	}
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		chunkSize int
		outFormat string
		limit     int
		sample    int
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Decode events and write them to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("chunk-size") {
				a.cfg.Reader.ChunkSize = chunkSize
			}

			enc, err := newEventEncoder(cmd.OutOrStdout(), outFormat)
			if err != nil {
				return err
			}

			f, err := digitrace.Open(args[0], a.readerOptions()...)
			if err != nil {
				return err
			}
			defer f.Close()

			if sample > 0 {
				return dumpSample(a, f, enc, sample, seed)
			}

			written := 0
			for batch, err := range f.Batches() {
				if err != nil {
					return fmt.Errorf("after %d events: %w", written, err)
				}
				for _, ev := range batch {
					if limit > 0 && written >= limit {
						a.logger.Debug("dump limit reached", slog.Int("limit", limit))
						return nil
					}
					if err := enc.Encode(newDumpEvent(ev)); err != nil {
						return fmt.Errorf("encode event %d: %w", ev.Index, err)
					}
					written++
				}
			}

			a.logger.Info("dump finished", slog.Int("events", written))

			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "events per batch (0 reads the whole file at once; default from config)")
	cmd.Flags().StringVar(&outFormat, "format", "jsonl", "output format (jsonl, msgpack)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many events (0 for all)")
	cmd.Flags().IntVar(&sample, "sample", 0, "write this many events drawn at random with replacement (plain captures only)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed for --sample")

	return cmd
}

// dumpSample writes n events picked uniformly at random, with replacement,
// using random access into the capture.
func dumpSample(a *app, f *digitrace.File, enc eventEncoder, n int, seed uint64) error {
	total, err := f.CountEvents()
	if err != nil {
		return fmt.Errorf("sample events: %w", err)
	}
	if total == 0 {
		a.logger.Warn("capture holds no events to sample")
		return nil
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	for range n {
		ev, err := f.EventAt(rng.IntN(total))
		if err != nil {
			return err
		}
		if err := enc.Encode(newDumpEvent(ev)); err != nil {
			return fmt.Errorf("encode event %d: %w", ev.Index, err)
		}
	}

	a.logger.Info("sample finished", slog.Int("events", n), slog.Int("population", total))

	return nil
}
