package live

import (
	"sync"

	"github.com/ivlev/ministudio/internal/scene"
	"github.com/ivlev/ministudio/internal/session"
)

type job struct {
	sc   *scene.Scene
	sess *session.Session
}

// pool renders scenes on a fixed number of workers. submit blocks while
// every worker is busy and the queue is full.
type pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

func newPool(workers int, out chan<- result) *pool {
	p := &pool{jobs: make(chan job, workers)}
	for w := 0; w < workers; w++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				out <- result{c: j.sc.Run(), sc: j.sc, sess: j.sess}
			}
		}()
	}
	return p
}

func (p *pool) submit(sc *scene.Scene, sess *session.Session) {
	p.jobs <- job{sc: sc, sess: sess}
}

// close waits for in-flight scenes.
func (p *pool) close() {
	close(p.jobs)
	p.wg.Wait()
}
