// Package event decodes the event records that follow a capture header and
// streams them in bounded batches.
//
// A Decoder turns one record into an Event with calibrated traces
// (volts = scale*raw - offset). A ChunkedReader drives a Decoder over a
// source.Reader and hands out Batches of at most the configured chunk size,
// so a capture of any length is processed with bounded memory:
//
//	f, _ := source.OpenFile("run17.trace")
//	defer f.Close()
//
//	r, _ := event.NewChunkedReader(f, nil, event.WithChunkSize(500))
//	for batch, err := range r.All() {
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range batch {
//	        for _, tr := range ev.Traces {
//	            consume(tr.Channel, tr.Volts)
//	        }
//	    }
//	}
//
// End of file is structural: a record boundary with no bytes left ends the
// stream, and a record cut anywhere after its first byte is
// errs.ErrTruncatedEvent. Records are not self-delimiting, so a stream never
// resynchronizes after an error.
package event
