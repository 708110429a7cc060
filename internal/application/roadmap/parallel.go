package roadmap

import (
	"runtime"
	"sync"

	"github.com/turtacn/WinWin-Intelligence/pkg/types/common"
)

func defaultPoolSize() int {
	return runtime.NumCPU()
}

// branchPool bounds concurrent candidate evaluation with a channel
// semaphore.  Small candidate sets skip the goroutine overhead entirely and
// score sequentially.
type branchPool struct {
	size      int
	threshold int
}

func newBranchPool(size, threshold int) *branchPool {
	if size <= 0 {
		size = defaultPoolSize()
	}
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	return &branchPool{size: size, threshold: threshold}
}

// scoreAll evaluates score for every candidate and returns results indexed
// like the input.  score must be safe for concurrent invocation.
func (p *branchPool) scoreAll(candidates []common.ID, score func(common.ID) float64) []float64 {
	scores := make([]float64, len(candidates))

	if len(candidates) < p.threshold {
		for i, id := range candidates {
			scores[i] = score(id)
		}
		return scores
	}

	sem := make(chan struct{}, p.size)
	var wg sync.WaitGroup
	for i, id := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id common.ID) {
			defer func() {
				<-sem
				wg.Done()
			}()
			scores[i] = score(id)
		}(i, id)
	}
	wg.Wait()
	return scores
}
