package filter

import (
	"testing"

	"github.com/yulin-dev/jobsift/internal/model"
)

func posting(title string, categories ...model.Category) model.Posting {
	return model.Posting{Title: title, Categories: categories}
}

func TestPostingFilterMatch(t *testing.T) {
	tests := []struct {
		name          string
		titleKeywords []string
		categories    []model.Category
		posting       model.Posting
		want          bool
	}{
		{
			name:          "matches both title and category",
			titleKeywords: []string{"engineer", "developer"},
			categories:    []model.Category{model.CategoryBackend},
			posting:       posting("Senior Backend Engineer", model.CategoryBackend),
			want:          true,
		},
		{
			name:          "title match but category miss",
			titleKeywords: []string{"engineer"},
			categories:    []model.Category{model.CategoryFrontend},
			posting:       posting("Backend Engineer", model.CategoryBackend),
			want:          false,
		},
		{
			name:          "category match but title miss",
			titleKeywords: []string{"staff"},
			categories:    []model.Category{model.CategoryBackend},
			posting:       posting("Junior Developer", model.CategoryBackend),
			want:          false,
		},
		{
			name:          "case insensitive title matching",
			titleKeywords: []string{"FULLSTACK"},
			posting:       posting("Fullstack Developer", model.CategoryFullstack),
			want:          true,
		},
		{
			name:       "any of several categories suffices",
			categories: []model.Category{model.CategoryDevops, model.CategoryAI},
			posting:    posting("Platform Engineer", model.CategoryBackend, model.CategoryDevops),
			want:       true,
		},
		{
			name:    "empty filter passes everything",
			posting: posting("Any Role", model.CategoryOther),
			want:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.titleKeywords, tt.categories)
			if got := f.Match(tt.posting); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.posting.Title, got, tt.want)
			}
		})
	}
}

func TestPostingFilterApply(t *testing.T) {
	f := New([]string{"engineer"}, nil)
	in := []model.Posting{
		posting("Backend Engineer", model.CategoryBackend),
		posting("Product Manager", model.CategoryOther),
		posting("Data Engineer", model.CategoryData),
	}
	out := f.Apply(in)
	if len(out) != 2 {
		t.Fatalf("Apply kept %d postings, want 2", len(out))
	}
	if out[0].Title != "Backend Engineer" || out[1].Title != "Data Engineer" {
		t.Errorf("Apply reordered or mismatched: %+v", out)
	}
}
