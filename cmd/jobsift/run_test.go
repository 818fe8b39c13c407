package main

import (
	"testing"

	"github.com/yulin-dev/jobsift/internal/model"
)

func TestFailedSources(t *testing.T) {
	tests := []struct {
		name    string
		reports []model.RunReport
		want    int
	}{
		{
			name: "all succeeded",
			reports: []model.RunReport{
				{SourceSite: "remoteok", Status: model.RunSuccess},
				{SourceSite: "v2ex", Status: model.RunPartial},
			},
			want: 0,
		},
		{
			name: "one failed among healthy sources",
			reports: []model.RunReport{
				{SourceSite: "remoteok", Status: model.RunSuccess},
				{SourceSite: "v2ex", Status: model.RunFailed},
				{SourceSite: "eleduck", Status: model.RunSuccess},
			},
			want: 1,
		},
		{
			name: "everything failed",
			reports: []model.RunReport{
				{SourceSite: "remoteok", Status: model.RunFailed},
				{SourceSite: "v2ex", Status: model.RunFailed},
			},
			want: 2,
		},
		{name: "no reports", reports: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := failedSources(tt.reports)
			if len(got) != tt.want {
				t.Fatalf("failedSources() = %v, want %d entries", got, tt.want)
			}
		})
	}

	t.Run("names the failed source", func(t *testing.T) {
		got := failedSources([]model.RunReport{
			{SourceSite: "remoteok", Status: model.RunSuccess},
			{SourceSite: "rwfa", Status: model.RunFailed},
		})
		if len(got) != 1 || got[0] != "rwfa" {
			t.Fatalf("failedSources() = %v, want [rwfa]", got)
		}
	})
}
