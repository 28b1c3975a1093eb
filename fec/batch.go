package fec

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ppopth/dna-fec/fec/bitstr"

	"golang.org/x/sync/errgroup"
)

// DecodeResult is the outcome of decoding one unit of a batch
type DecodeResult struct {
	Data   []byte
	Report *Report
	Err    error
}

// unitRand returns the private random source of unit i
func (c *Codec) unitRand(i int) *rand.Rand {
	return rand.New(rand.NewSource(c.config.Seed + int64(i)))
}

// EncodeBatch encodes independent data units concurrently, at most Workers at
// a time. Unit i draws its randomness from a source seeded with Seed+i, so the
// output does not depend on scheduling. The first failing unit cancels the
// units that have not started yet.
func (c *Codec) EncodeBatch(ctx context.Context, units [][]byte) ([][]bitstr.BitString, error) {
	out := make([][]bitstr.BitString, len(units))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)
	for i, unit := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			symbols, err := c.Encode(unit, c.unitRand(i))
			if err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			out[i] = symbols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeBatch decodes independent units concurrently, at most Workers at a
// time. Per-unit failures are reported in the results; the returned error is
// only set when ctx is done before every unit started.
func (c *Codec) DecodeBatch(ctx context.Context, batches [][]bitstr.BitString) ([]DecodeResult, error) {
	out := make([]DecodeResult, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)
	for i, symbols := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, report, err := c.Decode(symbols)
			out[i] = DecodeResult{Data: data, Report: report, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
