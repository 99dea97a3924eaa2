package assets

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/** @brief Describes a job to be run by the job system. */
type JobTask struct {
	/** @brief Invoked on a worker when the job starts. Required. */
	Run func() error
	/** @brief Invoked on the worker after Run succeeded. Optional. */
	OnComplete func()
	/** @brief Invoked on the worker with the error Run returned. Optional. */
	OnFailure func(error)
}

// JobSystem runs tasks on a fixed set of worker goroutines.
type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogError(err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
					continue
				}
				if job.OnComplete != nil {
					job.OnComplete()
				}
			}
		}()
	}
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

/**
 * @brief Shuts the job system down once every queued job has run.
 */
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

/** @brief One asset to load in a batch. */
type LoadRequest struct {
	Path   string
	Params interface{}
}

/**
 * @brief Loads every request on its own job. Results keep the order of the
 * requests; all failures are joined into the returned error.
 */
func (am *AssetManager) LoadBatch(workers int, requests []LoadRequest) ([]*metadata.Resource, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	if workers > len(requests) {
		workers = len(requests)
	}
	js, err := NewJobSystem(workers, len(requests))
	if err != nil {
		return nil, err
	}

	results := make([]*metadata.Resource, len(requests))
	errs := make([]error, len(requests))
	for i, req := range requests {
		js.Submit(JobTask{
			Run: func() error {
				res, err := am.LoadAsset(req.Path, req.Params)
				if err != nil {
					return fmt.Errorf("%s: %w", req.Path, err)
				}
				results[i] = res
				return nil
			},
			OnFailure: func(err error) { errs[i] = err },
		})
	}
	if err := js.Shutdown(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
