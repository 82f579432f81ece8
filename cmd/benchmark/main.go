// Command benchmark runs the timing benchmark harness twice: once with the
// default flat memory latency and once with the L1 tier in front of RAM.
//
// Usage:
//
//	go run ./cmd/benchmark
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/armv7sim/benchmarks"
	"github.com/sarchlab/armv7sim/timing/latency"
)

func main() {
	failed := false

	for _, l1 := range []bool{false, true} {
		config := benchmarks.DefaultConfig()
		config.Timing = latency.DefaultTimingConfig()
		config.Timing.L1Enabled = l1
		config.Output = os.Stdout

		fmt.Println("ARMv7 Timing Benchmark Harness")
		fmt.Println("==============================")
		fmt.Printf("L1: %v\n", l1)
		fmt.Println("")

		harness := benchmarks.NewHarness(config)
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

		results := harness.RunAll()
		harness.PrintResults(results)
		harness.PrintCSV(results)
		fmt.Println("")

		for _, r := range results {
			if r.Err != nil {
				failed = true
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}
