package models

// QueryProfile 结构化需求画像，构建后不再修改
type QueryProfile struct {
	Summary     string   `json:"summary,omitempty"`
	SearchQuery string   `json:"search_query"`
	Keywords    []string `json:"keywords,omitempty"`
	MustHave    []string `json:"must_have,omitempty"`
	NiceToHave  []string `json:"nice_to_have,omitempty"`
	TargetStack []string `json:"target_stack,omitempty"`
	Scenarios   []string `json:"scenarios,omitempty"`
}

// SemanticGroup 同义词/跨语言词簇，静态注册表，只读
type SemanticGroup struct {
	Name    string
	Aliases []string
	Hard    bool // 是否属于核心意图（命中后进入硬性守卫）
}
