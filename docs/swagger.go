package docs

// @title 方案推荐服务 API
// @version 1.0
// @description 混合推荐与排序引擎：从自由文本需求出发推荐开源项目、SaaS产品和内部私有方案
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @schemes http https
