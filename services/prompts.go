package services

import (
	"fmt"
	"strings"

	"solution_recommender/models"
	"solution_recommender/utils"
)

// buildProfilePrompt 构建需求画像提示词，要求模型只返回JSON
func buildProfilePrompt(query, requirement string) string {
	return fmt.Sprintf(`请分析下面的软件选型需求，提炼结构化画像。

查询：%s

需求描述：
%s

要求：
1. summary 用一句话概括需求
2. search_query 给出一条适合在代码托管平台搜索的查询串
3. keywords 提取核心技术关键词
4. must_have 列出缺了就不可接受的能力点
5. nice_to_have 列出加分项
6. target_stack 推断目标技术栈（语言/框架），没有把握就留空
7. scenarios 给出适用场景标签

请严格以JSON格式返回，不要添加任何其他说明：
{
  "summary": "...",
  "search_query": "...",
  "keywords": ["..."],
  "must_have": ["..."],
  "nice_to_have": ["..."],
  "target_stack": ["..."],
  "scenarios": ["..."]
}`, query, utils.TruncateRunes(requirement, 1500))
}

// buildRewritePrompt 长需求改写提示词：从长文档中提炼3-5条技术性搜索短语
func buildRewritePrompt(requirement string) string {
	return fmt.Sprintf(`下面是一份较长的需求文档。请从中提炼3到5条适合在代码托管平台搜索开源项目的技术性短语。

要求：
1. 只保留技术词汇：协议、框架、数据形态、功能动词等
2. 丢弃行业/非技术词汇（如"医院"、"学校"、"银行"），除非它和技术标记成对出现（如"医院 HIS 对接"）
3. 每条短语2-6个词，中英文均可
4. 不要输出解释性文字

需求文档：
%s

请严格以JSON格式返回：
{"phrases": ["...", "..."]}`, utils.TruncateRunes(requirement, 2500))
}

// buildRerankPrompt 重排提示词：对候选列表按需求匹配度重新打分
func buildRerankPrompt(profile *models.QueryProfile, query string, candidates []RankedCandidate) string {
	var sb strings.Builder
	for i, rc := range candidates {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s — %s (stars:%d, language:%s)\n",
			i+1, rc.Candidate.Source, rc.Candidate.FullName,
			utils.TruncateRunes(rc.Candidate.Description, 160),
			rc.Candidate.Stars, rc.Candidate.Language))
	}

	mustHave := "无"
	if profile != nil && len(profile.MustHave) > 0 {
		mustHave = strings.Join(profile.MustHave, "、")
	}

	return fmt.Sprintf(`请根据需求对下列候选项目按匹配度打分（0-100）。

需求：%s
必备能力：%s

候选列表：
%s
要求：
1. score 只反映与需求的匹配程度，不要被star数影响
2. reasons 给出1-3条命中理由，每条对应需求中的具体点
3. tags 给出能力标签
4. risks 指出风险（归档、久未维护、许可证问题等），没有就留空

请严格以JSON格式返回：
{"results": [{"id": 1, "score": 85, "reasons": ["..."], "tags": ["..."], "risks": ["..."]}]}`,
		query, mustHave, sb.String())
}

// buildDeepSummaryPrompt 深度模式总结提示词
func buildDeepSummaryPrompt(query string, results []models.RecommendationResult, docs map[string]string) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s（匹配度%d）：%s\n", i+1, r.FullName, r.MatchScore,
			utils.TruncateRunes(r.Description, 120)))
		if doc, ok := docs[r.Identity()]; ok && doc != "" {
			sb.WriteString("   文档摘录：" + utils.TruncateRunes(doc, 400) + "\n")
		}
	}

	return fmt.Sprintf(`针对需求"%s"，下面是排序后的候选方案和部分文档摘录。

%s
请完成两件事：
1. summary：一段简短的中文综述，说明整体推荐思路和首选方案
2. insights：3-5条洞察点，每条必须把某个候选和需求中的一个具体要素关联起来

请严格以JSON格式返回：
{"summary": "...", "insights": [{"rank": 1, "candidate": "owner/name", "point": "..."}]}`,
		query, sb.String())
}
