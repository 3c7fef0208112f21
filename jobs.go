package main

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pdf-tagger/extract"
)

const (
	jobPending    = "pending"
	jobInProgress = "in_progress"
	jobCompleted  = "completed"
	jobFailed     = "failed"
	jobCancelled  = "cancelled"
)

var errQueueFull = errors.New("extraction queue is full")

var (
	jobCancellersMu sync.Mutex
	jobCancellers   = make(map[string]context.CancelFunc)
)

// Job represents the region extraction for one load of a workspace's PDF
type Job struct {
	ID          string
	WorkspaceID string
	Generation  uint64
	Status      string // "pending", "in_progress", "completed", "failed", "cancelled"
	Error       string
	Added       int   // Number of regions added to the tree
	FailedPages []int // Pages skipped because they could not be read
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (job *Job) info() JobInfo {
	return JobInfo{
		JobID:       job.ID,
		WorkspaceID: job.WorkspaceID,
		Status:      job.Status,
		Error:       job.Error,
		Added:       job.Added,
		FailedPages: append([]int(nil), job.FailedPages...),
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// JobStore manages jobs and their statuses
type JobStore struct {
	sync.RWMutex
	jobs map[string]*Job
}

var (
	jobStore = &JobStore{
		jobs: make(map[string]*Job),
	}
	jobQueue = make(chan *Job, 100) // Buffered channel with capacity of 100 jobs
)

func generateJobID() string {
	return uuid.New().String()
}

func (store *JobStore) addJob(job *Job) {
	store.Lock()
	defer store.Unlock()
	store.jobs[job.ID] = job
	log.WithFields(logrus.Fields{"job_id": job.ID, "workspace_id": job.WorkspaceID}).Info("Extraction job added")
}

// getJob returns a copy of the job so callers never race with the workers.
func (store *JobStore) getJob(jobID string) (Job, bool) {
	store.RLock()
	defer store.RUnlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

func (store *JobStore) GetAllJobs() []JobInfo {
	store.RLock()
	defer store.RUnlock()

	jobs := make([]JobInfo, 0, len(store.jobs))
	for _, job := range store.jobs {
		jobs = append(jobs, job.info())
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs
}

func (store *JobStore) updateJobStatus(jobID, status, errMsg string) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Status = status
		if errMsg != "" {
			job.Error = errMsg
		}
		job.UpdatedAt = time.Now()
		log.WithFields(logrus.Fields{"job_id": jobID, "status": status}).Debug("Job status updated")
	}
}

func (store *JobStore) completeJob(jobID string, added int, failedPages []int) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Status = jobCompleted
		job.Added = added
		job.FailedPages = failedPages
		job.UpdatedAt = time.Now()
	}
}

// enqueueExtraction queues the extraction of the workspace's current PDF.
func enqueueExtraction(ws *Workspace) (*Job, error) {
	_, gen := ws.Source()
	now := time.Now()
	job := &Job{
		ID:          generateJobID(),
		WorkspaceID: ws.ID,
		Generation:  gen,
		Status:      jobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	jobStore.addJob(job)
	ws.setJob(job.ID)

	select {
	case jobQueue <- job:
		return job, nil
	default:
		jobStore.updateJobStatus(job.ID, jobFailed, errQueueFull.Error())
		return job, errQueueFull
	}
}

// cancelJob stops a running job. Pending jobs notice on pickup that their load is stale.
func cancelJob(jobID string) {
	jobCancellersMu.Lock()
	defer jobCancellersMu.Unlock()
	if cancel, ok := jobCancellers[jobID]; ok {
		cancel()
	}
}

func startWorkerPool(app *App, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			log.Infof("Worker %d started", workerID)
			for job := range jobQueue {
				log.Infof("Worker %d processing job: %s", workerID, job.ID)
				processJob(app, job)
			}
		}(i)
	}
}

func processJob(app *App, job *Job) {
	logger := log.WithFields(logrus.Fields{"job_id": job.ID, "workspace_id": job.WorkspaceID})
	jobStore.updateJobStatus(job.ID, jobInProgress, "")

	jobCtx, cancel := context.WithCancel(context.Background())
	jobCancellersMu.Lock()
	jobCancellers[job.ID] = cancel
	jobCancellersMu.Unlock()
	defer func() {
		cancel()
		jobCancellersMu.Lock()
		delete(jobCancellers, job.ID)
		jobCancellersMu.Unlock()
	}()

	ws, ok := app.Workspaces.Get(job.WorkspaceID)
	if !ok {
		jobStore.updateJobStatus(job.ID, jobCancelled, "Workspace was closed")
		logger.Info("Job cancelled, workspace closed")
		return
	}
	source, gen := ws.Source()
	if gen != job.Generation {
		jobStore.updateJobStatus(job.ID, jobCancelled, "Superseded by a newer load")
		logger.Info("Job cancelled, superseded by a newer load")
		return
	}

	extractor := extract.NewExtractor(app.Scale, extractionOptions(), ws.Tree.NewID)
	res, err := extractor.ExtractDocument(jobCtx, source)
	if err != nil {
		if jobCtx.Err() == context.Canceled {
			jobStore.updateJobStatus(job.ID, jobCancelled, "Job cancelled")
			logger.Info("Job cancelled")
		} else {
			logger.WithError(err).Error("Extraction failed")
			jobStore.updateJobStatus(job.ID, jobFailed, err.Error())
		}
		return
	}

	added, current := ws.applyDetected(job.Generation, res.All(), currentSettings().DuplicateTolerance)
	if !current {
		jobStore.updateJobStatus(job.ID, jobCancelled, "Superseded by a newer load")
		logger.Info("Discarding extraction result of a superseded load")
		return
	}

	jobStore.completeJob(job.ID, len(added), res.FailedPages)
	logger.WithField("added", len(added)).Info("Job completed")
}
