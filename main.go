package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/swaggo/swag" // 导入 swag

	"solution_recommender/config"
	"solution_recommender/db"
	_ "solution_recommender/docs" // 导入 swagger 文档
	"solution_recommender/handlers"
	"solution_recommender/logger"
	"solution_recommender/repository"
	"solution_recommender/scheduler"
	"solution_recommender/services"
)

func main() {
	cfg := config.Load()

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	if err := db.InitMySQL(cfg); err != nil {
		logger.Error("初始化MySQL失败", "error", err)
		os.Exit(1)
	}
	logger.Info("MySQL连接成功",
		"max_open_conns", cfg.DB.MaxOpenConns,
		"max_idle_conns", cfg.DB.MaxIdleConns,
		"conn_max_lifetime", cfg.DB.ConnMaxLifetime)

	// 外部搜索源按配置启用，全部禁用时仅依赖模板与案例库
	var providers []services.SearchProvider
	if cfg.Providers.GitHub.Enabled {
		providers = append(providers, services.NewGitHubProvider(cfg.Providers.GitHub))
	}
	if cfg.Providers.Gitee.Enabled {
		providers = append(providers, services.NewGiteeProvider(cfg.Providers.Gitee))
	}
	if cfg.Providers.GitCode.Enabled {
		providers = append(providers, services.NewGitCodeProvider(cfg.Providers.GitCode))
	}
	logger.Info("搜索源初始化完成", "enabled", len(providers))

	// LLM客户端可以为nil，此时引擎走确定性排序
	llm := services.NewLLMClient(cfg)
	if llm == nil {
		logger.Warn("LLM未配置，推荐将全程使用确定性排序")
	}

	registry := services.DefaultSemanticRegistry()
	repo := repository.NewCatalogRepo()
	catalog := services.NewCatalogService(repo,
		services.NewRanker(registry, services.NewTermExtractor(registry)))
	engine := services.NewEngine(cfg, llm, providers, catalog, services.NewDocumentFetcher(cfg), nil)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	handlers.RegisterRoutes(r, engine, catalog, repo)

	// 启动案例缓存刷新调度
	sched := scheduler.NewScheduler(cfg, catalog)
	sched.Start()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("服务器启动", "address", serverAddr)
	logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port), r))
}
