package scheduler

import (
	"sync"
	"time"

	"solution_recommender/config"
	"solution_recommender/logger"
	"solution_recommender/services"
)

// TaskStatus 任务状态
type TaskStatus struct {
	LastRun   time.Time
	NextRun   time.Time
	IsRunning bool
}

// Scheduler 周期任务调度器，目前只负责案例缓存刷新
type Scheduler struct {
	cfg     *config.Config
	catalog *services.CatalogService
	status  TaskStatus
	mutex   sync.Mutex
	stop    chan struct{}
}

// NewScheduler 创建调度器
func NewScheduler(cfg *config.Config, catalog *services.CatalogService) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		catalog: catalog,
		stop:    make(chan struct{}),
	}
}

// Start 启动后台刷新循环。启动时先同步刷新一次，保证缓存可用。
func (s *Scheduler) Start() {
	interval := time.Duration(s.cfg.Scheduler.CatalogRefreshSec) * time.Second
	logger.Info("调度器启动", "catalog_refresh_interval", interval.String())

	s.runRefresh()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runRefresh()
			case <-s.stop:
				logger.Info("调度器停止")
				return
			}
		}
	}()
}

// Stop 停止调度循环
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) runRefresh() {
	s.mutex.Lock()
	if s.status.IsRunning {
		s.mutex.Unlock()
		return
	}
	s.status.IsRunning = true
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		s.status.IsRunning = false
		s.status.LastRun = time.Now()
		s.mutex.Unlock()
	}()

	if err := s.catalog.Refresh(); err != nil {
		logger.Error("案例缓存刷新失败", "error", err)
	}
}
