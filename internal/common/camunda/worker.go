// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"credit-assessment/internal/common/logger"
)

// JobHandler processes one activated job and reports the outcome to Zeebe
// itself, by completing, failing or throwing a BPMN error.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// WorkerOptions tune job activation.
type WorkerOptions struct {
	MaxJobsActive  int
	Timeout        time.Duration
	RequestTimeout time.Duration
}

func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = 8
	}

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("handler panicked", map[string]interface{}{
						"jobKey": job.Key,
						"panic":  fmt.Sprint(r),
					})
				}
			}()
			handler.Handle(jc, job)
		}).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}
	if opts.RequestTimeout > 0 {
		step = step.RequestTimeout(opts.RequestTimeout)
	}

	return &Worker{worker: step.Open(), logger: log, taskType: taskType}
}

func (w *Worker) Start() {
	w.logger.Info("worker started", nil)
}

// Stop closes the job worker and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
