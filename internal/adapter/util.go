// Package adapter contains one SourceAdapter per external job site. Adapters
// fetch and lightly shape raw postings; they never retry (the orchestrator
// owns retry policy) and never write to the store.
package adapter

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// browserUserAgent is sent on every request; a couple of the sources reject
// default Go client UAs outright.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text: it
// unescapes entities, strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

// parseRetryAfter parses a Retry-After header value in seconds format.
// Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// containsAnyFold reports whether the lower-cased text contains any of the
// keywords (which must already be lower case).
func containsAnyFold(text string, keywords ...string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// internshipKeywords mark postings every source skips: the store only carries
// full roles.
var internshipKeywords = []string{"intern", "internship", "实习"}

// jobSeekerKeywords mark posts by people looking for work rather than hiring;
// community boards mix both under the same node.
var jobSeekerKeywords = []string{
	"求职", "找工作", "接活", "接单", "接私活", "求兼职", "找兼职",
	"找远程", "在找", "想找", "寻求机会", "个人简历", "自我介绍",
	"looking for work", "seeking opportunities", "open to work",
}

// devKeywords is the coarse prefilter for software roles; postings matching
// none of these never reach normalization.
var devKeywords = []string{
	"developer", "engineer", "programmer", "software", "architect",
	"frontend", "front-end", "backend", "back-end", "fullstack", "full-stack",
	"python", "java", "javascript", "typescript", "golang", "rust", "ruby",
	"php", "swift", "kotlin", "react", "vue", "angular", "node", "flutter",
	"ios", "android", "mobile", "devops", "sre", "kubernetes", "docker",
	"aws", "azure", "gcp", "cloud", "api", "database", "sql", "qa", "test",
	"security", "blockchain", "web3", "solidity", "machine learning", "ml",
	"ai", "data", "嵌入式", "前端", "后端", "全栈", "开发", "工程师", "测试",
	"运维", "算法", "区块链",
}

// isDevPosting reports whether the combined text looks like a software role.
func isDevPosting(text string) bool {
	return containsAnyFold(text, devKeywords...)
}

var (
	cjkBracketRegex = regexp.MustCompile(`[【\[](.*?)[】\]]`)
	companyNoise    = []string{"远程", "兼职", "全职", "长期", "招人", "急招", "招聘", "内推"}
)

// extractCompanyCJK pulls a company name out of a Chinese community post
// title. Bracketed segments come first (【字节】, [Acme]), stripped of hiring
// boilerplate; otherwise the text before a "招聘" separator. Falls back to
// empty, which the canonical model allows.
func extractCompanyCJK(title, description string) string {
	for _, m := range cjkBracketRegex.FindAllStringSubmatch(title, -1) {
		candidate := m[1]
		for _, noise := range companyNoise {
			candidate = strings.ReplaceAll(candidate, noise, "")
		}
		candidate = strings.TrimSpace(strings.ReplaceAll(candidate, " ", ""))
		if len([]rune(candidate)) >= 2 {
			return candidate
		}
	}

	if idx := strings.Index(title, "招聘"); idx > 0 {
		head := strings.TrimSpace(title[:idx])
		if n := len([]rune(head)); n > 1 && n < 20 {
			return head
		}
	}

	return ""
}
