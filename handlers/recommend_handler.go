package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "solution_recommender/docs" // 导入 swagger 文档
	"solution_recommender/models"
	"solution_recommender/repository"
	"solution_recommender/services"
	"solution_recommender/utils"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(r chi.Router, engine *services.Engine, catalog *services.CatalogService, repo *repository.CatalogRepo) {
	r.Post("/api/recommend", func(w http.ResponseWriter, req *http.Request) {
		RecommendHandler(w, req, engine)
	})
	r.Post("/api/catalog/evaluate", func(w http.ResponseWriter, req *http.Request) {
		CatalogEvaluateHandler(w, req, engine, catalog)
	})
	r.Get("/api/catalog/cases", func(w http.ResponseWriter, req *http.Request) {
		ListCasesHandler(w, req, catalog)
	})
	r.Get("/api/catalog/cases/{id}", func(w http.ResponseWriter, req *http.Request) {
		GetCaseHandler(w, req, repo)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}

// RecommendHandler godoc
// @Summary 混合推荐
// @Description 根据自由文本需求推荐开源项目/商业方案，LLM不可用时自动走确定性排序
// @Tags 推荐
// @Accept json
// @Produce json
// @Param request body models.RecommendRequest true "推荐请求"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/recommend [post]
func RecommendHandler(w http.ResponseWriter, r *http.Request, engine *services.Engine) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if req.Query == "" && req.Requirement == "" {
		utils.WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{
			"param": "query",
		})
		return
	}

	resp := engine.Recommend(r.Context(), req)
	utils.WriteSuccessResponse(w, resp)
}

// catalogEvaluateRequest 案例评估请求
type catalogEvaluateRequest struct {
	Query           string   `json:"query"`
	CapabilityCodes []string `json:"capability_codes,omitempty"`
	Limit           int      `json:"limit,omitempty"`
}

// CatalogEvaluateHandler godoc
// @Summary 案例决策评分
// @Description 按需求对内部精选案例做加权评分，并写入评估审计记录
// @Tags 案例库
// @Accept json
// @Produce json
// @Param request body catalogEvaluateRequest true "评估请求"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/catalog/evaluate [post]
func CatalogEvaluateHandler(w http.ResponseWriter, r *http.Request, engine *services.Engine, catalog *services.CatalogService) {
	var req catalogEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if req.Query == "" {
		utils.WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{
			"param": "query",
		})
		return
	}

	scored := catalog.ScoreCases(engine.BuildRankContext(req.Query), req.CapabilityCodes)
	limit := req.Limit
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	items := make([]map[string]interface{}, 0, len(scored))
	for _, sc := range scored {
		items = append(items, map[string]interface{}{
			"case":      sc.Case,
			"breakdown": sc.Breakdown,
		})
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"query": req.Query,
		"items": items,
	})
}

// GetCaseHandler godoc
// @Summary 案例详情
// @Description 按ID返回单个启用案例及其能力标签
// @Tags 案例库
// @Produce json
// @Param id path int true "案例ID"
// @Success 200 {object} models.APIResponse "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Router /api/catalog/cases/{id} [get]
func GetCaseHandler(w http.ResponseWriter, r *http.Request, repo *repository.CatalogRepo) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{
			"param": "id",
		})
		return
	}

	cc, err := repo.GetCaseByID(id)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeCaseNotFound)
		return
	}
	utils.WriteSuccessResponse(w, cc)
}

// ListCasesHandler godoc
// @Summary 案例列表
// @Description 返回当前启用的内部精选案例
// @Tags 案例库
// @Produce json
// @Success 200 {object} models.APIResponse "成功"
// @Router /api/catalog/cases [get]
func ListCasesHandler(w http.ResponseWriter, r *http.Request, catalog *services.CatalogService) {
	cases := catalog.Cases()
	if len(cases) == 0 {
		utils.WriteErrorResponse(w, models.CodeCaseNotFound, map[string]interface{}{})
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"count": len(cases),
		"cases": cases,
	})
}
