package workers

import (
	"fmt"
	"log"
	"sync"

	"github.com/pinatree/pinatreebackend/media"
	"github.com/pinatree/pinatreebackend/repository"
)

type PreviewJob struct {
	UploadID         string
	OriginalRelPath  string
	OriginalFilename string
}

// PreviewProcessor generates downscaled previews for stored uploads off the
// request path. Each upload is processed at most once at a time; the pending
// map deduplicates queueing.
type PreviewProcessor struct {
	JobQueue chan PreviewJob
	Uploads  repository.UploadRepositoryInterface
	Proc     *media.Processor
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex
}

func NewPreviewProcessor(uploads repository.UploadRepositoryInterface, proc *media.Processor, queueSize, numWorkers int) *PreviewProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	pp := &PreviewProcessor{
		JobQueue: make(chan PreviewJob, queueSize),
		Uploads:  uploads,
		Proc:     proc,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	pp.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pp.worker(i)
	}
	log.Printf("Started %d preview worker(s) with queue size %d", numWorkers, queueSize)
	return pp
}

func (pp *PreviewProcessor) worker(id int) {
	defer pp.Wg.Done()

	log.Printf("Preview worker %d started", id)
	for {
		select {
		case job, ok := <-pp.JobQueue:
			if !ok {
				log.Printf("Preview worker %d stopping: Job queue closed", id)
				return
			}

			log.Printf("Worker %d: Received preview job for upload %s", id, job.UploadID)

			if err := pp.Uploads.MarkPreviewProcessing(job.UploadID); err != nil {
				log.Printf("Worker %d: ERROR marking preview processing for %s: %v. Skipping job.", id, job.UploadID, err)
				pp.clearPending(job.UploadID)
				continue
			}

			pp.processPreviewJob(id, job)
			pp.clearPending(job.UploadID)

		case <-pp.StopChan:
			log.Printf("Preview worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (pp *PreviewProcessor) processPreviewJob(id int, job PreviewJob) {
	var taskErr error
	var previewPathPtr *string

	img, err := pp.Proc.DecodeOriginal(job.OriginalRelPath)
	if err != nil {
		taskErr = fmt.Errorf("failed to load original for preview: %w", err)
		log.Printf("Worker %d: ERROR %v", id, taskErr)
	} else {
		previewPath, genErr := pp.Proc.GeneratePreview(img, job.OriginalRelPath)
		if genErr != nil {
			taskErr = fmt.Errorf("preview generation failed: %w", genErr)
			log.Printf("Worker %d: ERROR %v", id, taskErr)
		} else {
			previewPathPtr = &previewPath
		}
	}

	if dbErr := pp.Uploads.SetPreviewResult(job.UploadID, previewPathPtr, taskErr); dbErr != nil {
		log.Printf("Worker %d: ERROR updating preview result for %s: %v", id, job.UploadID, dbErr)
	}
}

func (pp *PreviewProcessor) clearPending(uploadID string) {
	pp.Mutex.Lock()
	delete(pp.Pending, uploadID)
	pp.Mutex.Unlock()
}

// QueueJob queues a preview task if not already pending
func (pp *PreviewProcessor) QueueJob(job PreviewJob) bool {
	pp.Mutex.Lock()
	if pp.Pending[job.UploadID] {
		pp.Mutex.Unlock()
		return false
	}
	pp.Pending[job.UploadID] = true
	pp.Mutex.Unlock()

	select {
	case pp.JobQueue <- job:
		log.Printf("Queued preview task for upload %s", job.UploadID)
		return true
	default:
		log.Printf("WARNING: Preview job queue full. Failed to queue task for upload %s", job.UploadID)
		pp.clearPending(job.UploadID)
		return false
	}
}

func (pp *PreviewProcessor) Stop() {
	log.Println("Stopping preview workers...")
	close(pp.StopChan)
	pp.Wg.Wait()
	log.Println("All preview workers stopped")
}
