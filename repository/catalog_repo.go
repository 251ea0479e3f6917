package repository

import (
	"encoding/json"

	"solution_recommender/db"
	"solution_recommender/logger"
	"solution_recommender/models"
)

// CatalogRepo 案例库与评估审计的存储实现
type CatalogRepo struct{}

// NewCatalogRepo 创建存储实现
func NewCatalogRepo() *CatalogRepo {
	return &CatalogRepo{}
}

// ListActiveCases 加载全部启用的案例及其能力标签
func (r *CatalogRepo) ListActiveCases() ([]models.CatalogCase, error) {
	rows, err := db.DB.Query(`
		SELECT id, name, product_type, action_type, description,
		       vendor, url, monthly_cost, cost_bonus_override, tags
		FROM catalog_cases
		WHERE active = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []models.CatalogCase
	byID := make(map[int64]int)
	for rows.Next() {
		var cc models.CatalogCase
		if err := rows.Scan(&cc.ID, &cc.Name, &cc.ProductType, &cc.ActionType, &cc.Description,
			&cc.Vendor, &cc.URL, &cc.MonthlyCost, &cc.CostBonusOverride, &cc.Tags); err != nil {
			logger.Error("案例行扫描失败", "error", err)
			continue
		}
		byID[cc.ID] = len(cases)
		cases = append(cases, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 能力标签按案例归并
	capRows, err := db.DB.Query(`
		SELECT cc.case_id, c.code, c.name, c.weight
		FROM case_capabilities cc
		JOIN capabilities c ON c.code = cc.capability_code
	`)
	if err != nil {
		return nil, err
	}
	defer capRows.Close()

	for capRows.Next() {
		var caseID int64
		var cap models.Capability
		if err := capRows.Scan(&caseID, &cap.Code, &cap.Name, &cap.Weight); err != nil {
			continue
		}
		if idx, ok := byID[caseID]; ok {
			cases[idx].Capabilities = append(cases[idx].Capabilities, cap)
		}
	}

	return cases, capRows.Err()
}

// GetCaseByID 按ID加载单个案例，不存在时返回 sql.ErrNoRows
func (r *CatalogRepo) GetCaseByID(id int64) (*models.CatalogCase, error) {
	var cc models.CatalogCase
	err := db.DB.QueryRow(`
		SELECT id, name, product_type, action_type, description,
		       vendor, url, monthly_cost, cost_bonus_override, tags
		FROM catalog_cases
		WHERE id = ? AND active = 1
	`, id).Scan(&cc.ID, &cc.Name, &cc.ProductType, &cc.ActionType, &cc.Description,
		&cc.Vendor, &cc.URL, &cc.MonthlyCost, &cc.CostBonusOverride, &cc.Tags)
	if err != nil {
		return nil, err
	}

	capRows, err := db.DB.Query(`
		SELECT c.code, c.name, c.weight
		FROM case_capabilities cc
		JOIN capabilities c ON c.code = cc.capability_code
		WHERE cc.case_id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer capRows.Close()

	for capRows.Next() {
		var cap models.Capability
		if err := capRows.Scan(&cap.Code, &cap.Name, &cap.Weight); err != nil {
			continue
		}
		cc.Capabilities = append(cc.Capabilities, cap)
	}
	return &cc, capRows.Err()
}

// ListCapabilities 加载全部能力标签
func (r *CatalogRepo) ListCapabilities() ([]models.Capability, error) {
	rows, err := db.DB.Query(`SELECT code, name, weight FROM capabilities ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caps []models.Capability
	for rows.Next() {
		var cap models.Capability
		if err := rows.Scan(&cap.Code, &cap.Name, &cap.Weight); err != nil {
			continue
		}
		caps = append(caps, cap)
	}
	return caps, rows.Err()
}

// CreateEvaluation 写入一条评估审计记录，评分明细以JSON列存储
func (r *CatalogRepo) CreateEvaluation(ev *models.Evaluation) error {
	b, _ := json.Marshal(ev.Breakdown)
	result, err := db.DB.Exec(`
		INSERT INTO evaluations (case_id, query, breakdown, final_score, generated_at)
		VALUES (?, ?, CAST(? AS JSON), ?, ?)
	`, ev.CaseID, ev.Query, string(b), ev.Breakdown.FinalScore, ev.GeneratedAt)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}
