package lib

/* thread.go contains functions useful for multi-threading. */

import (
	"fmt"
	"runtime"
	"sync"
)

// SetThreads sets the number of threads vizgrid runs on and returns that
// number. Non-positive values of n mean one thread per core.
func SetThreads(n int) (int, error) {
	if n > runtime.NumCPU() {
		return 0, fmt.Errorf("%d threads requested, but your system only "+
			"has %d cores. If you want vizgrid to use the maximum number of "+
			"threads, set Threads = -1.", n, runtime.NumCPU())
	} else if n <= 0 {
		n = runtime.NumCPU()
	}

	runtime.GOMAXPROCS(n)
	return n, nil
}

// ForEach calls f(i) for every i in [0, n) on up to workers goroutines and
// returns the error from each call. Files in a batch can have very different
// sizes, so indices are handed out one at a time instead of in chunks.
func ForEach(n, workers int, f func(i int) error) []error {
	errs := make([]error, n)
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			errs[i] = f(i)
		}
		return errs
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = f(i)
			}
		}()
	}
	wg.Wait()

	return errs
}
