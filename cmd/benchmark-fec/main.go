package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ppopth/dna-fec/fec"
	"github.com/ppopth/dna-fec/fec/bitstr"
	"github.com/ppopth/dna-fec/fec/field"

	logging "github.com/ipfs/go-log/v2"
)

// BenchmarkResult stores timing and recovery data for one codec setting
type BenchmarkResult struct {
	Field          string        `json:"field"`
	N              int           `json:"n"`
	K              int           `json:"k"`
	Inner          string        `json:"inner"`
	Redundancy     float64       `json:"redundancy"`
	UnitSize       int           `json:"unit_size"`
	Units          int           `json:"units"`
	SymbolsPerUnit int           `json:"symbols_per_unit"`
	SymbolWidth    int           `json:"symbol_width"`
	Loss           float64       `json:"loss"`
	BitFlips       int           `json:"bit_flips"`
	Encode         time.Duration `json:"encode_ns"` // Average time per batch encode
	Decode         time.Duration `json:"decode_ns"` // Average time per batch decode
	Recovered      int           `json:"recovered"` // Units decoded exactly, summed over iterations
	Incomplete     int           `json:"incomplete"`
	Uncorrectable  int           `json:"uncorrectable"`
	CorrectedTotal int           `json:"corrected_symbols"`
	DroppedTotal   int           `json:"dropped_symbols"`
	Iterations     int           `json:"iterations"`
}

func main() {
	p := flag.Int("p", 2, "Field characteristic")
	q := flag.Int("q", 8, "Field extension degree")
	n := flag.Int("n", 255, "Outer codeword length in symbols")
	k := flag.Int("k", 223, "Outer message length in symbols (0 disables the outer code)")
	inner := flag.String("inner", "lt", "Inner code: lt, raptorq or none")
	elimination := flag.Bool("elimination", false, "Solve stalled LT decodes with Gaussian elimination")
	redundancy := flag.Float64("redundancy", 0.5, "Extra inner symbols as a fraction of the source block")
	unitSize := flag.Int("unit-size", 4096, "Bytes per data unit")
	units := flag.Int("units", 16, "Number of data units per batch")
	loss := flag.Float64("loss", 0.1, "Fraction of inner symbols dropped before decoding")
	flips := flag.Int("bit-flips", 8, "Random bit flips per unit before decoding")
	iterations := flag.Int("iterations", 10, "Number of iterations")
	seed := flag.Int64("seed", 1, "Random seed")
	workers := flag.Int("workers", 4, "Concurrent units")
	logLevel := flag.String("log-level", "error", "Log level")
	outputFile := flag.String("output", "fec_benchmark.json", "Output file for benchmark results")
	flag.Parse()

	if err := logging.SetLogLevel("*", *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}

	f, err := field.NewField(*p, *q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create field: %v\n", err)
		os.Exit(1)
	}
	innerCode, err := fec.ParseInner(*inner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	config := fec.DefaultConfig()
	config.Field = f
	config.N = *n
	config.K = *k
	config.Inner = innerCode
	config.Redundancy = *redundancy
	config.Elimination = *elimination
	config.Seed = *seed
	config.Workers = *workers
	codec, err := fec.NewCodec(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create codec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Benchmarking concatenated code with:\n")
	fmt.Printf("  Outer: RS(%d, %d) over %s\n", *n, *k, f)
	fmt.Printf("  Inner: %s with %.0f%% redundancy\n", innerCode, 100*config.Redundancy)
	fmt.Printf("  Units: %d x %d bytes\n", *units, *unitSize)
	fmt.Printf("  Channel: %.0f%% loss, %d bit flips per unit\n", 100*(*loss), *flips)
	fmt.Printf("  Iterations: %d\n", *iterations)
	fmt.Println()

	rng := rand.New(rand.NewSource(*seed))
	data := make([][]byte, *units)
	for i := range data {
		data[i] = make([]byte, *unitSize)
		rng.Read(data[i])
	}

	result := BenchmarkResult{
		Field:      f.String(),
		N:          *n,
		K:          *k,
		Inner:      innerCode.String(),
		Redundancy: *redundancy,
		UnitSize:   *unitSize,
		Units:      *units,
		Loss:       *loss,
		BitFlips:   *flips,
		Iterations: *iterations,
	}

	ctx := context.Background()
	var encodeTotal, decodeTotal time.Duration
	for it := 0; it < *iterations; it++ {
		start := time.Now()
		encoded, err := codec.EncodeBatch(ctx, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "EncodeBatch failed: %v\n", err)
			os.Exit(1)
		}
		encodeTotal += time.Since(start)

		if len(encoded) > 0 && len(encoded[0]) > 0 {
			result.SymbolsPerUnit = len(encoded[0])
			result.SymbolWidth = encoded[0][0].Len()
		}
		received := make([][]bitstr.BitString, len(encoded))
		for i, symbols := range encoded {
			received[i] = channel(rng, symbols, *loss, *flips)
		}

		start = time.Now()
		results, err := codec.DecodeBatch(ctx, received)
		if err != nil {
			fmt.Fprintf(os.Stderr, "DecodeBatch failed: %v\n", err)
			os.Exit(1)
		}
		decodeTotal += time.Since(start)

		for i, res := range results {
			switch {
			case res.Err == nil && string(res.Data) == string(data[i]):
				result.Recovered++
			case res.Report != nil && res.Report.Missing > 0:
				result.Incomplete++
			case res.Report != nil && res.Report.Uncorrectable > 0:
				result.Uncorrectable++
			}
			if res.Report != nil {
				result.CorrectedTotal += res.Report.Corrected
				result.DroppedTotal += res.Report.Dropped
			}
		}
		fmt.Printf("Iteration %d: %d/%d units recovered\n", it+1, result.Recovered, (it+1)*len(data))
	}
	if *iterations > 0 {
		result.Encode = encodeTotal / time.Duration(*iterations)
		result.Decode = decodeTotal / time.Duration(*iterations)
	}
	fmt.Printf("Encode: %v, Decode: %v per batch\n", result.Encode, result.Decode)

	// Write result to file
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal results: %v\n", err)
		os.Exit(1)
	}

	err = os.WriteFile(*outputFile, out, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write results to file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nBenchmark results written to: %s\n", *outputFile)
}

// channel drops a fraction of the symbols and flips random bits in the rest
func channel(rng *rand.Rand, symbols []bitstr.BitString, loss float64, flips int) []bitstr.BitString {
	out := make([]bitstr.BitString, 0, len(symbols))
	for _, s := range symbols {
		if rng.Float64() >= loss {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return out
	}
	for i := 0; i < flips; i++ {
		j := rng.Intn(len(out))
		out[j] = out[j].Flip(rng.Intn(out[j].Len()))
	}
	return out
}
