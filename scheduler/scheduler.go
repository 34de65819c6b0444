// Package scheduler implements the Scheduler component (spec.md §2 item
// 7, §4.4, §5): it distributes each executable section's bytes across
// nb_thread goroutines in batches, joins each batch before starting the
// next, and folds every worker's local results into one shared gadget
// slice under a mutex held only for the append.
package scheduler

import (
	"sync"

	"github.com/sirupsen/logrus"

	"ropgadget/cpu"
	"ropgadget/disasm"
	"ropgadget/gadget"
	"ropgadget/pattern"
	"ropgadget/section"
	"ropgadget/walker"
	"ropgadget/worker"
)

// Config bundles everything a worker goroutine needs that doesn't vary
// per-assignment; every field is shared, read-only state (spec.md §5).
type Config struct {
	Profile         cpu.Profile
	TerminatorGroup cpu.TerminatorGroup
	RequestedGroup  gadget.Group
	Strategy        pattern.Strategy
	Disassembler    disasm.Disassembler
	Limits          walker.Limits
	NbThread        int
	Log             *logrus.Logger
}

// Run scans every section and returns the combined, unordered gadget list.
// Ordering and deduplication are the Output Pipeline's job, not the
// Scheduler's (spec.md §4.5).
func Run(sections []section.Section, cfg Config) []gadget.Gadget {
	nbThread := cfg.NbThread
	if nbThread < 1 {
		nbThread = 1
	}

	log := cfg.Log
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}

	var mu sync.Mutex
	var results []gadget.Gadget
	var panicCount int

	for secIdx, sec := range sections {
		dataLen := len(sec.Data)
		if dataLen == 0 {
			continue
		}

		chunk := dataLen / nbThread
		if chunk < 1 {
			chunk = 1
		}

		log.Debugf("scheduler: section %d (%q, %d bytes) over %d thread(s), chunk=%d", secIdx, sec.Name, dataLen, nbThread, chunk)

		pos := 0
		for pos < dataLen {
			var wg sync.WaitGroup
			localResults := make([][]gadget.Gadget, 0, nbThread)
			var localMu sync.Mutex

			for i := 0; i < nbThread && pos < dataLen; i++ {
				chunkStart := pos
				chunkEnd := pos + chunk
				if chunkEnd > dataLen || i == nbThread-1 {
					chunkEnd = dataLen
				}
				pos = chunkEnd

				log.Debugf("scheduler: spawning worker %d on section %d [%d:%d]", i, secIdx, chunkStart, chunkEnd)
				wg.Add(1)
				go func(chunkStart, chunkEnd int) {
					defer wg.Done()
					defer func() {
						if r := recover(); r != nil {
							log.Warnf("scheduler: worker panic on section %d [%d:%d]: %v", secIdx, chunkStart, chunkEnd, r)
							localMu.Lock()
							panicCount++
							localMu.Unlock()
						}
					}()

					g := worker.Scan(sec, chunkStart, chunkEnd, cfg.Profile, cfg.TerminatorGroup, cfg.RequestedGroup, cfg.Strategy, cfg.Disassembler, cfg.Limits)

					localMu.Lock()
					localResults = append(localResults, g)
					localMu.Unlock()
				}(chunkStart, chunkEnd)
			}

			wg.Wait()
			log.Debugf("scheduler: joined worker batch on section %d", secIdx)

			mu.Lock()
			for _, g := range localResults {
				results = append(results, g...)
			}
			mu.Unlock()
		}
	}

	if panicCount > 0 {
		log.Warnf("scheduler: %d worker(s) panicked; emitting partial results", panicCount)
	}

	return results
}
