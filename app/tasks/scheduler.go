package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ssss81511-cloud/news-insight-parser/app/automation"
	"github.com/ssss81511-cloud/news-insight-parser/app/cfg"
	"github.com/ssss81511-cloud/news-insight-parser/app/database"
	"github.com/ssss81511-cloud/news-insight-parser/app/ingest"
	"github.com/ssss81511-cloud/news-insight-parser/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const cleanupInterval = 24 * time.Hour

type Scheduler struct {
	sourceConfigs []*sources.Config
	fetcher       *sources.Fetcher
	extractor     *sources.Extractor
	linker        *ingest.Linker
	orchestrator  *automation.Orchestrator
	postRepo      database.PostRepository
	groupRepo     database.GroupRepository
	usedTopicRepo database.UsedTopicRepository
	runRepo       database.RunRepository

	interval           time.Duration
	pipelineInterval   time.Duration
	workerCount        int
	postRetentionDays  int
	topicRetentionDays int

	mu          sync.Mutex
	nextFetch   map[string]time.Time
	nextCleanup time.Time
	nextRun     time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(sourceConfigs []*sources.Config, fetcher *sources.Fetcher,
	extractor *sources.Extractor, linker *ingest.Linker,
	orchestrator *automation.Orchestrator, postRepo database.PostRepository,
	groupRepo database.GroupRepository, usedTopicRepo database.UsedTopicRepository,
	runRepo database.RunRepository) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceConfigs:      sourceConfigs,
		fetcher:            fetcher,
		extractor:          extractor,
		linker:             linker,
		orchestrator:       orchestrator,
		postRepo:           postRepo,
		groupRepo:          groupRepo,
		usedTopicRepo:      usedTopicRepo,
		runRepo:            runRepo,
		interval:           time.Duration(cfg.SchedulerInterval) * time.Second,
		pipelineInterval:   time.Duration(cfg.PipelineInterval) * time.Second,
		workerCount:        cfg.WorkerCount,
		postRetentionDays:  cfg.PostRetentionDays,
		topicRetentionDays: cfg.UsedTopicRetentionDays,
		nextFetch:          make(map[string]time.Time),
		ctx:                ctx,
		cancel:             cancel,
		taskQueue:          make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueDueTasks() {
	now := time.Now().UTC()

	s.mu.Lock()
	var dueSources []*sources.Config
	for _, sourceConfig := range s.sourceConfigs {
		if next, ok := s.nextFetch[sourceConfig.ID]; ok && next.After(now) {
			continue
		}
		s.nextFetch[sourceConfig.ID] = now.Add(time.Duration(sourceConfig.RefreshInterval) * time.Minute)
		dueSources = append(dueSources, sourceConfig)
	}

	cleanupDue := !s.nextCleanup.After(now)
	if cleanupDue {
		s.nextCleanup = now.Add(cleanupInterval)
	}

	pipelineDue := s.pipelineInterval > 0 && !s.nextRun.After(now)
	if pipelineDue {
		s.nextRun = now.Add(s.pipelineInterval)
	}
	s.mu.Unlock()

	for _, sourceConfig := range dueSources {
		fetchTask := NewFetchSourceTask(sourceConfig, s.fetcher, s.linker, s.postRepo, s.runRepo)
		if err := s.EnqueueTask(fetchTask); err != nil {
			slog.Warn("Failed to enqueue FetchSourceTask", "source", sourceConfig.ID, "error", err)
		}

		if sourceConfig.ExtractContent {
			enrichTask := NewEnrichContentTask(sourceConfig, s.extractor, s.postRepo)
			if err := s.EnqueueTask(enrichTask); err != nil {
				slog.Warn("Failed to enqueue EnrichContentTask", "source", sourceConfig.ID, "error", err)
			}
		}
	}

	if cleanupDue {
		cleanupTask := NewCleanupTask(s.postRepo, s.groupRepo, s.usedTopicRepo,
			s.postRetentionDays, s.topicRetentionDays)
		if err := s.EnqueueTask(cleanupTask); err != nil {
			slog.Warn("Failed to enqueue CleanupTask", "error", err)
		}
	}

	if pipelineDue {
		pipelineTask := NewRunPipelineTask(s.orchestrator)
		if err := s.EnqueueTask(pipelineTask); err != nil {
			slog.Warn("Failed to enqueue RunPipelineTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSource(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
