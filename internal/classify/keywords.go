package classify

import "github.com/yulin-dev/jobsift/internal/model"

// triggerKeywords backs the suppression rule: a model-proposed category is
// kept only if at least one of its triggers appears in the posting text.
// This curbs over-assignment (e.g. "ai" on anything that mentions data).
// The reserved "other" category has no triggers on purpose.
var triggerKeywords = map[model.Category][]string{
	model.CategoryFrontend: {
		"frontend", "front-end", "front end", "react", "vue", "angular",
		"svelte", "css", "html", "typescript", "javascript", "ui", "前端",
	},
	model.CategoryBackend: {
		"backend", "back-end", "back end", "api", "server", "microservice",
		"python", "golang", " go ", "java", "ruby", "php", "rust", "node",
		"django", "rails", "spring", "后端", "服务端",
	},
	model.CategoryFullstack: {
		"fullstack", "full-stack", "full stack", "全栈",
	},
	model.CategoryMobile: {
		"mobile", "ios", "android", "flutter", "react native", "swift",
		"kotlin", "app", "移动端",
	},
	model.CategoryGame: {
		"game", "unity", "unreal", "godot", "gameplay", "游戏",
	},
	model.CategoryDevops: {
		"devops", "sre", "infrastructure", "kubernetes", "k8s", "docker",
		"terraform", "aws", "azure", "gcp", "cloud", "ci/cd", "运维",
	},
	model.CategoryAI: {
		"machine learning", " ml ", " ai ", "llm", "deep learning", "nlp",
		"pytorch", "tensorflow", "computer vision", "算法", "大模型",
	},
	model.CategoryBlockchain: {
		"blockchain", "web3", "solidity", "smart contract", "defi", "crypto",
		"ethereum", "区块链", "合约",
	},
	model.CategoryQuant: {
		"quant", "quantitative", "trading", "hedge fund", "market maker",
		"量化",
	},
	model.CategorySecurity: {
		"security", "infosec", "penetration", "pentest", "appsec", "soc",
		"vulnerability", "安全",
	},
	model.CategoryTesting: {
		"qa", "test", "testing", "automation", "sdet", "quality assurance",
		"测试",
	},
	model.CategoryData: {
		"data engineer", "data analyst", "data pipeline", "etl", "warehouse",
		"spark", "analytics", "数据",
	},
	model.CategoryEmbedded: {
		"embedded", "firmware", "rtos", "microcontroller", "fpga", "嵌入式",
		"单片机",
	},
}

// strongKeywords force-add a category regardless of model output. These are
// unambiguous: a posting naming solidity is a blockchain posting whatever
// the model said.
var strongKeywords = map[model.Category][]string{
	model.CategoryMobile:     {"react native", "flutter", "swiftui"},
	model.CategoryDevops:     {"kubernetes", "terraform"},
	model.CategoryBlockchain: {"solidity", "smart contract"},
	model.CategoryGame:       {"unreal", "unity3d"},
	model.CategoryQuant:      {"量化交易", "market maker"},
	model.CategoryEmbedded:   {"rtos", "firmware"},
}
